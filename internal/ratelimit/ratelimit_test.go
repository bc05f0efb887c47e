package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(now *time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.nowFunc = func() time.Time { return *now }
	s.rnd = func() float64 { return 1 } // sweep off unless a test wants it
	return s
}

func TestFixedWindow_CountsDown(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	limit := Limit{Requests: 3, Window: time.Minute}

	for i, want := range []int{2, 1, 0} {
		res, err := s.IncrementAndCheck(context.Background(), "chat:1", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i+1)
		assert.Equal(t, want, res.Remaining, "call %d", i+1)
	}

	res, err := s.IncrementAndCheck(context.Background(), "chat:1", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.ResetIn, time.Duration(0))
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	limit := Limit{Requests: 3, Window: time.Minute}

	for i := 0; i < 4; i++ {
		_, _ = s.IncrementAndCheck(context.Background(), "chat:1", limit)
	}

	now = now.Add(61 * time.Second)
	res, err := s.IncrementAndCheck(context.Background(), "chat:1", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestFixedWindow_KeysAreIndependent(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	limit := Limit{Requests: 1, Window: time.Minute}

	res, _ := s.IncrementAndCheck(context.Background(), "chat:1", limit)
	assert.True(t, res.Allowed)
	res, _ = s.IncrementAndCheck(context.Background(), "chat:1", limit)
	assert.False(t, res.Allowed)

	res, _ = s.IncrementAndCheck(context.Background(), "chat:2", limit)
	assert.True(t, res.Allowed)
}

func TestSweep_EvictsExpiredRecords(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	limit := Limit{Requests: 3, Window: time.Minute}

	_, _ = s.IncrementAndCheck(context.Background(), "chat:1", limit)
	_, _ = s.IncrementAndCheck(context.Background(), "chat:2", limit)
	require.Len(t, s.records, 2)

	now = now.Add(2 * time.Minute)
	s.rnd = func() float64 { return 0 } // force the sweep
	_, _ = s.IncrementAndCheck(context.Background(), "chat:3", limit)

	assert.Len(t, s.records, 1) // only the fresh key survives
}

func TestLimiter_UnknownCategoryAllowed(t *testing.T) {
	now := time.Now()
	l := NewLimiter(newTestStore(&now), DefaultLimits(), zap.NewNop())
	res := l.Check(context.Background(), "no-such-category", 1)
	assert.True(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) IncrementAndCheck(context.Context, string, Limit) (Result, error) {
	return Result{}, errors.New("store down")
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(failingStore{}, DefaultLimits(), zap.NewNop())
	res := l.Check(context.Background(), "chat", 1)
	assert.True(t, res.Allowed)
}

func TestLimiter_SeparatesCategories(t *testing.T) {
	now := time.Now()
	limits := map[string]Limit{
		"chat": {Requests: 1, Window: time.Minute},
		"mood": {Requests: 1, Window: time.Minute},
	}
	l := NewLimiter(newTestStore(&now), limits, zap.NewNop())

	assert.True(t, l.Check(context.Background(), "chat", 1).Allowed)
	assert.False(t, l.Check(context.Background(), "chat", 1).Allowed)
	assert.True(t, l.Check(context.Background(), "mood", 1).Allowed)
}
