package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/loykin/webwatch/internal/watcher"
)

var (
	ErrNotFound    = errors.New("watcher not found")
	ErrDuplicateID = errors.New("watcher id already exists")
	ErrAmbiguousID = errors.New("watcher id prefix is ambiguous")
)

// ConfigError reports a failure to load, parse or persist the registry.
type ConfigError struct {
	Op   string // "read", "parse", "encode", "write"
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Registry is the ordered collection of watchers.
// Mutators change memory only; Save (or Touch) writes the file.
type Registry struct {
	mu       sync.Mutex
	path     string
	watchers []watcher.Watcher
}

type fileFormat struct {
	Watchers []watcher.Watcher `json:"watchers"`
}

// New returns an empty registry bound to path.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Load reads the registry at path. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	r := New(path)
	ws, _, err := readFile(path)
	if err != nil {
		return nil, err
	}
	r.watchers = ws
	return r, nil
}

// readFile decodes the registry file. ok is false when the file does not exist.
func readFile(path string) (ws []watcher.Watcher, ok bool, err error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &ConfigError{Op: "read", Path: path, Err: err}
	}
	var ff fileFormat
	if err := json.Unmarshal(b, &ff); err != nil {
		return nil, false, &ConfigError{Op: "parse", Path: path, Err: err}
	}
	seen := make(map[string]struct{}, len(ff.Watchers))
	for _, w := range ff.Watchers {
		if _, dup := seen[w.ID]; dup {
			return nil, false, &ConfigError{Op: "parse", Path: path, Err: fmt.Errorf("%w: %s", ErrDuplicateID, w.ID)}
		}
		seen[w.ID] = struct{}{}
	}
	return ff.Watchers, true, nil
}

// Path returns the backing file path.
func (r *Registry) Path() string { return r.path }

// Save serializes the full collection to the backing file. Another process
// (a running daemon) may have recorded a later LastChecked for a watcher
// since this registry was loaded; that value is kept.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	onDisk, _, err := readFile(r.path)
	if err != nil {
		return err
	}
	for _, d := range onDisk {
		if d.LastChecked == nil {
			continue
		}
		i := r.indexLocked(d.ID)
		if i < 0 {
			continue
		}
		if lc := r.watchers[i].LastChecked; lc == nil || d.LastChecked.After(*lc) {
			t := *d.LastChecked
			r.watchers[i].LastChecked = &t
		}
	}
	return writeFile(r.path, r.watchers)
}

// SaveTo writes the collection to an explicit path.
func (r *Registry) SaveTo(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeFile(path, r.watchers)
}

// writeFile replaces path atomically so concurrent readers never see a
// partial document.
func writeFile(path string, ws []watcher.Watcher) error {
	if ws == nil {
		ws = []watcher.Watcher{}
	}
	b, err := json.MarshalIndent(fileFormat{Watchers: ws}, "", "  ")
	if err != nil {
		return &ConfigError{Op: "encode", Path: path, Err: err}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Touch sets LastChecked for one watcher and persists it, all under the
// registry lock. It is the only mutation the engine performs.
//
// The file is re-read first and only that record is updated, so watchers
// added, edited or removed by another process since Load are not lost. The
// in-memory collection is replaced by the merged file contents.
func (r *Registry) Touch(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t := at.UTC()

	onDisk, ok, err := readFile(r.path)
	if err != nil {
		return err
	}
	if !ok {
		r.watchers[r.indexLocked(id)].LastChecked = &t
		return writeFile(r.path, r.watchers)
	}
	j := -1
	for k := range onDisk {
		if onDisk[k].ID == id {
			j = k
			break
		}
	}
	if j < 0 {
		r.watchers = onDisk
		return fmt.Errorf("%w: %s (removed from %s)", ErrNotFound, id, r.path)
	}
	onDisk[j].LastChecked = &t
	if err := writeFile(r.path, onDisk); err != nil {
		return err
	}
	r.watchers = onDisk
	return nil
}

// Add appends a watcher. Ids must be unique.
func (r *Registry) Add(w watcher.Watcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == "" {
		return errors.New("watcher id is required")
	}
	if r.indexLocked(w.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, w.ID)
	}
	r.watchers = append(r.watchers, w.Clone())
	return nil
}

// Remove deletes the watcher with id and returns it.
func (r *Registry) Remove(id string) (watcher.Watcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return watcher.Watcher{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w := r.watchers[i]
	r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
	return w, nil
}

// Toggle flips Enabled and returns the new value.
func (r *Registry) Toggle(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.watchers[i].Enabled = !r.watchers[i].Enabled
	return r.watchers[i].Enabled, nil
}

// Edit applies fn to the stored watcher. ID and CachePath cannot be changed.
func (r *Registry) Edit(id string, fn func(w *watcher.Watcher) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w := r.watchers[i].Clone()
	if err := fn(&w); err != nil {
		return err
	}
	w.ID = r.watchers[i].ID
	w.CachePath = r.watchers[i].CachePath
	r.watchers[i] = w
	return nil
}

// Get returns a copy of the watcher with id.
func (r *Registry) Get(id string) (watcher.Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return watcher.Watcher{}, false
	}
	return r.watchers[i].Clone(), true
}

// Resolve finds a watcher by full id or by a unique id prefix.
func (r *Registry) Resolve(ref string) (watcher.Watcher, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return watcher.Watcher{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(ref); i >= 0 {
		return r.watchers[i].Clone(), nil
	}
	found := -1
	for i, w := range r.watchers {
		if strings.HasPrefix(w.ID, ref) {
			if found >= 0 {
				return watcher.Watcher{}, fmt.Errorf("%w: %s", ErrAmbiguousID, ref)
			}
			found = i
		}
	}
	if found < 0 {
		return watcher.Watcher{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return r.watchers[found].Clone(), nil
}

// List returns copies of all watchers in insertion order.
func (r *Registry) List() []watcher.Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]watcher.Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		out = append(out, w.Clone())
	}
	return out
}

// Enabled returns copies of enabled watchers in insertion order.
func (r *Registry) Enabled() []watcher.Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]watcher.Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		if w.Enabled {
			out = append(out, w.Clone())
		}
	}
	return out
}

// Len returns the number of watchers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

func (r *Registry) indexLocked(id string) int {
	for i := range r.watchers {
		if r.watchers[i].ID == id {
			return i
		}
	}
	return -1
}
