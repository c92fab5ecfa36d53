// Package tui is an interactive terminal list of watchers.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/loykin/webwatch/internal/registry"
	"github.com/loykin/webwatch/internal/watcher"
)

// Option configures a Model.
type Option func(*Model)

// WithRemoveHook runs fn for every deleted watcher once the deletion is
// saved, typically to drop its cache entry.
func WithRemoveHook(fn func(watcher.Watcher) error) Option {
	return func(m *Model) { m.onRemove = fn }
}

// Model is the Bubble Tea model for the watcher list.
// Changes stay in memory until the user saves.
type Model struct {
	reg      *registry.Registry
	keys     KeyMap
	onRemove func(watcher.Watcher) error

	items    []watcher.Watcher
	removed  []watcher.Watcher // deleted since the last save
	cursor   int
	dirty    bool
	confirm  bool // waiting for delete confirmation
	quitWarn bool // quit pressed once with unsaved changes
	status   string
	err      error
}

func New(reg *registry.Registry, opts ...Option) Model {
	m := Model{reg: reg, keys: DefaultKeyMap()}
	for _, o := range opts {
		o(&m)
	}
	m.reload()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// Dirty reports whether there are unsaved changes.
func (m Model) Dirty() bool { return m.dirty }

// Err returns the last save error, if any.
func (m Model) Err() error { return m.err }

func (m *Model) reload() {
	m.items = m.reg.List()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (watcher.Watcher, bool) {
	if len(m.items) == 0 {
		return watcher.Watcher{}, false
	}
	return m.items[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.confirm {
		return m.updateConfirm(km)
	}
	if !key.Matches(km, m.keys.Quit) {
		m.quitWarn = false
	}
	switch {
	case key.Matches(km, m.keys.Quit):
		if m.dirty && !m.quitWarn {
			m.quitWarn = true
			m.status = "unsaved changes: press s to save or q again to discard"
			return m, nil
		}
		return m, tea.Quit
	case key.Matches(km, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(km, m.keys.Toggle):
		w, ok := m.selected()
		if !ok {
			return m, nil
		}
		on, err := m.reg.Toggle(w.ID)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.dirty = true
		state := "disabled"
		if on {
			state = "enabled"
		}
		m.status = ShortID(w.ID) + " " + state
		m.reload()
	case key.Matches(km, m.keys.Delete):
		if w, ok := m.selected(); ok {
			m.confirm = true
			m.status = fmt.Sprintf("delete %s (%s)? y/n", ShortID(w.ID), w.URL)
		}
	case key.Matches(km, m.keys.Save):
		if err := m.reg.Save(); err != nil {
			m.err = err
			m.status = "save failed: " + err.Error()
			return m, nil
		}
		m.err = nil
		m.dirty = false
		m.status = "saved " + m.reg.Path()
		if m.onRemove != nil {
			for _, w := range m.removed {
				if err := m.onRemove(w); err != nil {
					m.status += "; " + ShortID(w.ID) + ": " + err.Error()
				}
			}
		}
		m.removed = nil
	}
	return m, nil
}

func (m Model) updateConfirm(km tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(km, m.keys.Confirm):
		m.confirm = false
		w, ok := m.selected()
		if !ok {
			return m, nil
		}
		removed, err := m.reg.Remove(w.ID)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.dirty = true
		m.removed = append(m.removed, removed)
		m.status = "deleted " + ShortID(removed.ID)
		m.reload()
	case key.Matches(km, m.keys.Cancel):
		m.confirm = false
		m.status = ""
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	title := "webwatch"
	if m.dirty {
		title += " *"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if len(m.items) == 0 {
		b.WriteString(mutedStyle.Render("no watchers; add one with `webwatch add`"))
		b.WriteString("\n")
	}
	for i, w := range m.items {
		cursor := "  "
		line := fmt.Sprintf("%s  %-40s  %s", ShortID(w.ID), w.URL, strings.Join(w.Keywords, ","))
		if i == m.cursor {
			cursor = "> "
			line = selectedStyle.Render(line)
		}
		state := enabledStyle.Render("[on] ")
		if !w.Enabled {
			state = disabledStyle.Render("[off]")
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", cursor, state, line, mutedStyle.Render(LastChecked(w)))
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	help := make([]string, 0, len(m.keys.help()))
	for _, k := range m.keys.help() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	b.WriteString("\n")
	return b.String()
}

// Run starts the program on the terminal and returns the final model.
func Run(m Model) (Model, error) {
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
