package cleanup

import (
	"os"
	"sync"

	"clipfold/internal/logging"
)

// Manager tracks files and directories that must be deleted if the
// operation that produced them fails. It starts armed; Success disarms
// it. Every job exit path must end in either Cleanup or Success. A
// manager still armed with registered resources at job end is a leak and
// is reported loudly by ReportLeaked.
type Manager struct {
	mu    sync.Mutex
	files []string
	dirs  []string
	armed bool
}

// New returns an armed Manager with nothing registered.
func New() *Manager {
	return &Manager{armed: true}
}

// RegisterFile records a file for deletion on failure.
func (m *Manager) RegisterFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, path)
}

// RegisterDir records a directory tree for deletion on failure.
func (m *Manager) RegisterDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = append(m.dirs, path)
}

// Unregister drops a previously registered path without deleting it.
// Used once relocated media must survive later failures.
func (m *Manager) Unregister(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = remove(m.files, path)
	m.dirs = remove(m.dirs, path)
}

// Cleanup deletes every registered file, then every registered directory,
// tolerating already-absent paths, and empties the registry. The manager
// is left disarmed.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	files, dirs := m.files, m.dirs
	m.files, m.dirs = nil, nil
	m.armed = false
	m.mu.Unlock()

	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			logging.Warn("cleanup: failed to remove file %s: %v", f, err)
		} else {
			logging.Debug("cleanup: removed file %s", f)
		}
	}
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			logging.Warn("cleanup: failed to remove directory %s: %v", d, err)
		} else {
			logging.Debug("cleanup: removed directory %s", d)
		}
	}
}

// Success disarms the manager, preserving everything registered.
func (m *Manager) Success() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Armed reports whether the manager would still delete on failure.
func (m *Manager) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Count returns the number of registered resources.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files) + len(m.dirs)
}

// ReportLeaked logs any resources left behind by a job that ended while
// the manager was still armed. Deferred at job start as a backstop; a
// correct job never trips it.
func (m *Manager) ReportLeaked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed || len(m.files)+len(m.dirs) == 0 {
		return
	}
	logging.Error("cleanup: job ended with %d resource(s) still armed, leaking: files=%v dirs=%v",
		len(m.files)+len(m.dirs), m.files, m.dirs)
}

func remove(paths []string, path string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != path {
			out = append(out, p)
		}
	}
	return out
}
