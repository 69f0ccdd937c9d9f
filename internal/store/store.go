// Package store keeps session snapshots between requests and across restarts.
// Snapshots carry conversation text, so every backend bounds their lifetime.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"alphabettutor/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a session
var ErrNotFound = errors.New("session snapshot not found")

const keyPrefix = "tutor:session:"

// SessionStore persists session snapshots
type SessionStore interface {
	Save(ctx context.Context, snap models.SessionSnapshot) error
	Load(ctx context.Context, id string) (models.SessionSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore stores JSON snapshots with a TTL
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis backed store. Snapshots expire ttl after their last save.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	return &RedisSessionStore{redis: client, ttl: ttl}
}

// Save writes the snapshot and refreshes its expiry
func (s *RedisSessionStore) Save(ctx context.Context, snap models.SessionSnapshot) error {
	if snap.ID == "" {
		return errors.New("store: snapshot has no session id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: failed to marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(snap.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: failed to persist snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot
func (s *RedisSessionStore) Load(ctx context.Context, id string) (models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return snap, ErrNotFound
		}
		return snap, fmt.Errorf("store: failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("store: failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes a snapshot; deleting a missing one is not an error
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("store: failed to delete snapshot: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return keyPrefix + id
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionStore keeps snapshots in process. Used by the console and tests.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionStore creates an in-process store. A zero ttl never expires.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores a copy of the snapshot
func (s *MemorySessionStore) Save(_ context.Context, snap models.SessionSnapshot) error {
	if snap.ID == "" {
		return errors.New("store: snapshot has no session id")
	}
	// Encoding keeps stored snapshots independent of the caller's slices
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: failed to marshal snapshot: %w", err)
	}
	entry := memoryEntry{data: data}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[snap.ID] = entry
	return nil
}

// Load returns the snapshot unless it is missing or expired
func (s *MemorySessionStore) Load(_ context.Context, id string) (models.SessionSnapshot, error) {
	var snap models.SessionSnapshot

	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return snap, ErrNotFound
	}
	if err := json.Unmarshal(entry.data, &snap); err != nil {
		return snap, fmt.Errorf("store: failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes a snapshot
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
