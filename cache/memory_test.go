package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(0).WithClock(clock.Now)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	clock.Advance(59 * time.Second)
	_, ok, _ = s.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, 0, st.Keys)
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in, 0))
	in[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_DeleteAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v"), 0), ErrClosed)
	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(0).WithClock(clock.Now)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "long", []byte("2"), time.Hour))
	clock.Advance(time.Minute)
	s.sweep()

	st := s.Stats()
	assert.Equal(t, 1, st.Keys)
	assert.Equal(t, int64(1), st.Evictions)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	type payload struct {
		Count int    `json:"count"`
		Name  string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, s, "p", payload{Count: 3, Name: "a"}, time.Minute))

	var out payload
	ok, err := GetJSON(ctx, s, "p", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Count: 3, Name: "a"}, out)

	ok, err = GetJSON(ctx, s, "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}
