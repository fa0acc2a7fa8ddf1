// Package indexmeta persists full-reindex orchestration state between steps.
// Each step either completes and saves its offset or fails and leaves the
// last-good state untouched, so a retried step resumes cleanly after a
// process timeout.
package indexmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/driftline/contentdex/internal/domain"
)

// Reindex method names.
const (
	MethodInteractive = "interactive"
	MethodUnattended  = "unattended"
)

// ErrKeyNotFound is returned by KV implementations for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// KV is the consumer interface over the checkpoint store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Meta is the orchestration state of one full reindex run.
type Meta struct {
	Method           string    `json:"method"`
	EntityType       string    `json:"entity_type"`
	Offset           int       `json:"offset"`
	FoundItems       int64     `json:"found_items"`
	CurrentTenant    int64     `json:"current_tenant"`
	RemainingTenants []int64   `json:"remaining_tenants"`
	StartedAt        time.Time `json:"started_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	metaKey   = "contentdex:reindex:meta"
	pauseKey  = "contentdex:reindex:pause"
	cancelKey = "contentdex:reindex:cancel"
)

// Store reads and writes reindex state.
type Store struct {
	kv KV
}

// NewStore creates a checkpoint store.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Save persists the run state.
func (s *Store) Save(ctx context.Context, m *Meta) error {
	m.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode reindex state: %w", err)
	}
	return s.kv.Set(ctx, metaKey, data)
}

// Load returns the current run state, or ErrNoReindex when no run is active.
func (s *Store) Load(ctx context.Context) (*Meta, error) {
	data, err := s.kv.Get(ctx, metaKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrNoReindex
	}
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode reindex state: %w", err)
	}
	return &m, nil
}

// Clear removes the run state and both control flags. Called on completion
// and on cancellation.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{metaKey, pauseKey, cancelKey} {
		if err := s.kv.Del(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// RequestPause raises the pause flag for the running step loop.
func (s *Store) RequestPause(ctx context.Context) error {
	return s.kv.Set(ctx, pauseKey, []byte("1"))
}

// ClearPause lowers the pause flag so the run can resume.
func (s *Store) ClearPause(ctx context.Context) error {
	return s.kv.Del(ctx, pauseKey)
}

// RequestCancel raises the cancel flag for the running step loop.
func (s *Store) RequestCancel(ctx context.Context) error {
	return s.kv.Set(ctx, cancelKey, []byte("1"))
}

// Flags reads both control flags. The step loop checks them between
// entities so a pause takes effect promptly.
func (s *Store) Flags(ctx context.Context) (paused, canceled bool, err error) {
	if _, err := s.kv.Get(ctx, pauseKey); err == nil {
		paused = true
	} else if !errors.Is(err, ErrKeyNotFound) {
		return false, false, err
	}
	if _, err := s.kv.Get(ctx, cancelKey); err == nil {
		canceled = true
	} else if !errors.Is(err, ErrKeyNotFound) {
		return false, false, err
	}
	return paused, canceled, nil
}
