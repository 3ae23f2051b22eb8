// Package tokenstore provides TokenStore implementations.
//
// The file and Redis stores are durable: a credential pair saved before a
// process restart is loadable after it, which is what lets Bootstrap resume
// a session. The in-memory store is for tests.
//
// Stores treat the pair as opaque bytes; nothing here validates token
// contents.
package tokenstore

import (
	"context"
	"sync"

	campus "github.com/campushq/campus-go"
)

// Memory is a non-durable, process-local store.
type Memory struct {
	mu   sync.Mutex
	pair campus.CredentialPair
	held bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Save replaces the stored pair.
func (m *Memory) Save(_ context.Context, pair campus.CredentialPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	m.held = true
	return nil
}

// Load returns the stored pair, or ErrUnauthenticated when absent.
func (m *Memory) Load(_ context.Context) (campus.CredentialPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held || m.pair.Empty() {
		return campus.CredentialPair{}, campus.ErrUnauthenticated
	}
	return m.pair, nil
}

// Clear drops the stored pair.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = campus.CredentialPair{}
	m.held = false
	return nil
}
