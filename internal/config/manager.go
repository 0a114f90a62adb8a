package config

import "sync"

// Settings is the complete parameter set of one generation.
type Settings struct {
	Map    MapDimensions
	Perlin PerlinSettings
}

// Manager holds the live settings of the viewer. Values are replaced wholesale,
// never mutated in place, and every change marks the manager dirty.
type Manager struct {
	mu      sync.RWMutex
	current Settings
	dirty   bool
}

// NewManager returns a manager holding s. It starts dirty so the first frame generates.
func NewManager(s Settings) *Manager {
	return &Manager{current: s, dirty: true}
}

// Get returns the current settings
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set validates s and makes it current. Invalid settings leave the manager unchanged.
func (m *Manager) Set(s Settings) error {
	if err := s.Perlin.Validate(s.Map); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s != m.current {
		m.current = s
		m.dirty = true
	}
	return nil
}

// Update applies fn to a copy of the current settings and stores the result if it validates.
func (m *Manager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.current
	fn(&next)
	if err := next.Perlin.Validate(next.Map); err != nil {
		return err
	}
	if next != m.current {
		m.current = next
		m.dirty = true
	}
	return nil
}

// ShouldRegenerate reports whether the settings changed since the last call and clears the flag.
func (m *Manager) ShouldRegenerate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.dirty
	m.dirty = false
	return d
}
