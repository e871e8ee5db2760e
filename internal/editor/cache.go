package editor

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ErrStale a fetch was superseded by Cancel or Invalidate while in flight
var ErrStale = errors.New("stale fetch discarded")

// QueryCache keeps the last known server view per key. Concurrent fetches of
// the same key share one request, and a fetch that started before Cancel
// never overwrites what was written after it.
type QueryCache[T any] struct {
	mu    sync.Mutex
	items *gocache.Cache
	group singleflight.Group
	gens  map[string]uint64
}

// NewQueryCache creates a cache whose entries expire after ttl. A ttl of
// zero keeps entries until invalidated.
func NewQueryCache[T any](ttl time.Duration) *QueryCache[T] {
	expiration, cleanup := ttl, 2*ttl
	if ttl <= 0 {
		expiration, cleanup = gocache.NoExpiration, 0
	}
	return &QueryCache[T]{
		items: gocache.New(expiration, cleanup),
		gens:  make(map[string]uint64),
	}
}

// Get returns the cached value for key.
func (q *QueryCache[T]) Get(key string) (T, bool) {
	if v, ok := q.items.Get(key); ok {
		return v.(T), true
	}
	var zero T
	return zero, false
}

// Set stores v as the current view of key.
func (q *QueryCache[T]) Set(key string, v T) {
	q.items.SetDefault(key, v)
}

// Cancel marks every in-flight fetch of key as stale. Call it before writing
// an optimistic value.
func (q *QueryCache[T]) Cancel(key string) {
	q.mu.Lock()
	q.gens[key]++
	q.mu.Unlock()
}

// Invalidate drops the cached value and cancels in-flight fetches.
func (q *QueryCache[T]) Invalidate(key string) {
	q.mu.Lock()
	q.gens[key]++
	q.items.Delete(key)
	q.mu.Unlock()
}

// Fetch loads key through fn and caches the result unless the key was
// cancelled meanwhile, in which case ErrStale is returned. Callers waiting on
// the same key and generation share one call to fn; cancelling ctx only
// stops this caller from waiting.
func (q *QueryCache[T]) Fetch(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	q.mu.Lock()
	gen := q.gens[key]
	q.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	ch := q.group.DoChan(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		return fn(shared)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v := res.Val.(T)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.gens[key] != gen {
		return zero, ErrStale
	}
	q.items.SetDefault(key, v)
	return v, nil
}
