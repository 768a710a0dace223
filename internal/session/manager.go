package session

import (
	"context"

	"sync"

	"carteira/internal/log"
	"carteira/internal/records"
)

// Manager tracks the single active session and handles login/logout
// transitions. The previous owner's session is fully torn down before any
// state for the new owner is installed.
type Manager struct {
	store  records.Store
	cfg    Config
	logger *log.Logger

	mu      sync.Mutex
	current *Session
}

func NewManager(store records.Store, cfg Config, logger *log.Logger) *Manager {
	return &Manager{store: store, cfg: cfg, logger: logger}
}

// Login switches the active session to ownerID. Logging in as the already
// active owner keeps the existing session.
func (m *Manager) Login(ctx context.Context, ownerID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.OwnerID() == ownerID {
			return m.current, nil
		}
		m.current.Close()
		m.current = nil
	}

	s, err := open(ctx, m.store, ownerID, m.cfg, m.logger)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Logout tears down the active session, if any.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
}

// Current returns the active session.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

// Close is Logout under a name that fits shutdown paths.
func (m *Manager) Close() error {
	m.Logout()
	return nil
}
