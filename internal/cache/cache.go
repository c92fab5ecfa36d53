// Package cache keeps the last successfully fetched content of each watcher.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CacheError reports an IO failure on a cache entry.
type CacheError struct {
	Op  string // "read" or "write"
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

var errBadKey = errors.New("invalid cache key")

// Store addresses snapshots by cache key. A missing entry is reported as
// ok=false with a nil error.
type Store interface {
	Read(key string) (content string, ok bool, err error)
	Write(key, content string) error
}

// FileStore keeps one file per key under Dir.
// Each key is owned by a single watcher loop, so no locking is done here.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", errBadKey
	}
	return filepath.Join(s.Dir, key), nil
}

func (s *FileStore) Read(key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, &CacheError{Op: "read", Key: key, Err: err}
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &CacheError{Op: "read", Key: key, Err: err}
	}
	return string(b), true, nil
}

// Write creates missing parent directories and overwrites the entry.
func (s *FileStore) Write(key, content string) error {
	p, err := s.path(key)
	if err != nil {
		return &CacheError{Op: "write", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return &CacheError{Op: "write", Key: key, Err: err}
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		return &CacheError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// Remove deletes an entry; a missing entry is not an error.
func (s *FileStore) Remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return &CacheError{Op: "remove", Key: key, Err: err}
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &CacheError{Op: "remove", Key: key, Err: err}
	}
	return nil
}
