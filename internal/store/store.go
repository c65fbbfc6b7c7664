// Package store provides the local key-value session store holding access
// and refresh tokens plus cached profile fields. It is injected into anything
// needing credentials instead of being reached as ambient global state.
package store

import "sync"

// Well-known keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserID       = "userId"
	KeyNickname     = "nickname"
)

// SessionStore is a small key-value capability. Reads are simple lookups;
// writes happen only on login/logout, so no transactional discipline is
// required.
type SessionStore interface {
	Get(key string) string
	Set(key, value string) error
	Clear() error
}

// Memory is an in-process SessionStore used by tests and simulation mode.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key]
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}
