// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local development
// without Valkey. Sessions are stored as JSON so serialization behaves
// exactly like the Valkey store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

// Create assigns a token and stores the session.
func (m *MemoryStore) Create(_ context.Context, sess *Session) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	sess.ID = id
	sess.CreatedAt = time.Now()

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = payload
	return nil
}

// Get loads a session by token.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	payload, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &sess, nil
}

// Save replaces the stored session.
func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session save: missing id")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = payload
	return nil
}

// Update applies fn to the stored session under the store lock.
func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return fmt.Errorf("session unmarshal: %w", err)
	}
	if !fn(&sess) {
		return nil
	}

	out, err := json.Marshal(&sess)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	m.sessions[id] = out
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
