package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphabettutor/internal/models"
	"alphabettutor/internal/session"
)

func sampleSnapshot(t *testing.T, id string) models.SessionSnapshot {
	t.Helper()
	m := session.New(3)
	m.AddTurn("My name is Maya", "Hi Maya! Let's learn A.", "introduction", nil)
	m.AddTurn("B", "B says buh!", "learn_letter", session.Score(0.9))
	snap := m.Snapshot()
	snap.ID = id
	snap.ProfileID = "p-1"
	return snap
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSessionStore(client, ttl), mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	snap := sampleSnapshot(t, "abc")
	require.NoError(t, s.Save(ctx, snap))
	assert.True(t, mr.Exists("tutor:session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("tutor:session:abc"))

	got, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Maya", got.State.ChildName)
	assert.Equal(t, "B", got.State.CurrentLetter)
	assert.Equal(t, "p-1", got.ProfileID)
	assert.Len(t, got.Messages, 4)

	restored := session.Restore(got)
	assert.Equal(t, "Maya", restored.ChildName())
	assert.Equal(t, 2, restored.TotalInteractions())
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Save(ctx, sampleSnapshot(t, "abc")))
	mr.FastForward(2 * time.Minute)

	_, err := s.Load(ctx, "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisSessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t, time.Hour)

	require.NoError(t, s.Save(ctx, sampleSnapshot(t, "abc")))
	require.NoError(t, s.Delete(ctx, "abc"))
	require.NoError(t, s.Delete(ctx, "abc"))

	_, err := s.Load(ctx, "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisSessionStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	assert.Error(t, s.Save(ctx, models.SessionSnapshot{}))

	mr.Set("tutor:session:bad", "{not json")
	_, err := s.Load(ctx, "bad")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	mr.Close()
	_, err = s.Load(ctx, "abc")
	assert.Error(t, err)
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemorySessionStore(time.Minute)
	s.now = func() time.Time { return now }

	snap := sampleSnapshot(t, "abc")
	require.NoError(t, s.Save(ctx, snap))

	// The stored copy does not share slices with the caller
	snap.Messages[0].Content = "changed"
	got, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "My name is Maya", got.Messages[0].Content)

	now = now.Add(time.Minute)
	_, err = s.Load(ctx, "abc")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Save(ctx, sampleSnapshot(t, "xyz")))
	require.NoError(t, s.Delete(ctx, "xyz"))
	_, err = s.Load(ctx, "xyz")
	assert.True(t, errors.Is(err, ErrNotFound))
}
