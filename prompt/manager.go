package prompt

import (
	"fmt"
	"path"
	"sync"

	"github.com/descant-dev/descant/chat"
	"github.com/descant-dev/descant/types"
	"github.com/spf13/afero"
)

// Manager loads and caches templates from a filesystem. Template names are
// paths relative to the manager's root.
type Manager struct {
	fs   afero.Fs
	root string

	mu    sync.RWMutex
	cache map[string]*Template
}

// NewManager creates a manager reading templates under root on the given
// filesystem.
func NewManager(fsys afero.Fs, root string) *Manager {
	return &Manager{
		fs:    fsys,
		root:  root,
		cache: make(map[string]*Template),
	}
}

// DirManager creates a manager over a directory on the host filesystem.
func DirManager(dir string) *Manager {
	return NewManager(afero.NewOsFs(), dir)
}

// Get returns the named template, loading and compiling it on first use.
func (m *Manager) Get(name string) (*Template, error) {
	m.mu.RLock()
	tmpl, ok := m.cache[name]
	m.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	raw, err := afero.ReadFile(m.fs, path.Join(m.root, name))
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", name, err)
	}
	tmpl, err = Parse(name, string(raw))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[name] = tmpl
	m.mu.Unlock()
	return tmpl, nil
}

// Render loads the named template and renders it with the given variables.
func (m *Manager) Render(name string, vars types.ContextVars) ([]chat.Message, error) {
	tmpl, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return tmpl.Render(vars)
}
