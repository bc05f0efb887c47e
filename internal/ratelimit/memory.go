package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// sweepProbability is the fraction of calls that trigger a full-map scan
// evicting expired windows. Keys are otherwise never deleted, so without the
// sweep the map grows with every distinct (category, user) ever limited.
const sweepProbability = 0.01

type record struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the in-process fixed-window store. Safe for concurrent use;
// correct only for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	nowFunc func() time.Time // injectable clock for testing
	rnd     func() float64   // injectable for deterministic sweep tests
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		nowFunc: time.Now,
		rnd:     rand.Float64,
	}
}

// IncrementAndCheck implements Store with lazy window expiry.
func (m *MemoryStore) IncrementAndCheck(_ context.Context, key string, limit Limit) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()

	if m.rnd() < sweepProbability {
		m.sweep(now)
	}

	r, ok := m.records[key]
	if !ok || now.After(r.resetAt) {
		m.records[key] = &record{count: 1, resetAt: now.Add(limit.Window)}
		return Result{Allowed: true, Remaining: limit.Requests - 1, ResetIn: limit.Window}, nil
	}

	if r.count >= limit.Requests {
		return Result{Allowed: false, Remaining: 0, ResetIn: r.resetAt.Sub(now)}, nil
	}

	r.count++
	return Result{Allowed: true, Remaining: limit.Requests - r.count, ResetIn: r.resetAt.Sub(now)}, nil
}

// sweep evicts every expired record. O(n), but n is the count of currently
// or recently limited keys, not total users. Caller holds the lock.
func (m *MemoryStore) sweep(now time.Time) {
	for k, r := range m.records {
		if now.After(r.resetAt) {
			delete(m.records, k)
		}
	}
}
