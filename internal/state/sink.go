// Package state implements the State Reconciler component and the external
// state sinks it publishes to.
//
// After every state-affecting event the reconciler serializes a snapshot of
// connection, session, and room state and writes it to a caller-supplied
// sink. On initialization it reads the sink first: when another consumer
// already reports a live connection there, the reconciler can skip opening
// a second transport. That shortcut assumes a single-writer sink and is
// configurable.
package state

import (
	"context"
	"sync"
	"time"
)

// Snapshot is the derived connection/session/room state published to a sink.
type Snapshot struct {
	Connected     bool      `json:"connected"`
	SessionID     string    `json:"session_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Username      string    `json:"username,omitempty"`
	CurrentRoomID string    `json:"current_room_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	ConnectedAt   time.Time `json:"connected_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Sink is the external key/value store snapshots are published to.
// Implementations must tolerate concurrent use.
type Sink interface {
	// Get returns the snapshot under key, ok=false when absent.
	Get(ctx context.Context, key string) (Snapshot, bool, error)

	// Set writes the snapshot under key, replacing any prior value.
	Set(ctx context.Context, key string, snap Snapshot) error
}

// MemorySink is an in-process sink for tests and single-process deployments.
type MemorySink struct {
	mu    sync.RWMutex
	items map[string]Snapshot
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{items: make(map[string]Snapshot)}
}

func (s *MemorySink) Get(_ context.Context, key string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.items[key]
	return snap, ok, nil
}

func (s *MemorySink) Set(_ context.Context, key string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = snap
	return nil
}
