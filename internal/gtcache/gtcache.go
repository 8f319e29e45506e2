// Package gtcache memoises extracted ground-truth instances per scene.
//
// Entries are keyed by the absolute path of the scene's ground-truth file
// and are trusted as-is: there is no invalidation, so the cache must be
// deleted whenever ground truth changes.
package gtcache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/banshee-data/scenebench/internal/instance"
	"github.com/banshee-data/scenebench/internal/monitoring"
)

var logf = monitoring.Tagged("gtcache")

// Cache stores extracted instances by scene key.
type Cache interface {
	Load(ctx context.Context, key string) (instance.Scene, bool, error)
	Store(ctx context.Context, key string, s instance.Scene) error
}

// ComputeFunc extracts instances for a scene on a cache miss.
type ComputeFunc func(ctx context.Context) (instance.Scene, error)

// Loader wraps a Cache with load-or-compute semantics. Concurrent misses for
// the same key run compute once. A nil cache computes every time.
type Loader struct {
	cache Cache
	group singleflight.Group
	warn  sync.Once
}

// NewLoader returns a Loader over c.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// LoadOrCompute returns the cached scene for key, or computes and stores it.
// The returned scene is owned by the caller.
func (l *Loader) LoadOrCompute(ctx context.Context, key string, compute ComputeFunc) (instance.Scene, error) {
	v, err, _ := l.group.Do(key, func() (any, error) {
		if l.cache != nil {
			s, ok, err := l.cache.Load(ctx, key)
			if err != nil {
				return nil, err
			}
			if ok {
				l.warn.Do(func() {
					logf("using cached ground truth; delete the cache if ground truth has changed")
				})
				return s, nil
			}
		}
		s, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if l.cache != nil {
			if err := l.cache.Store(ctx, key, s); err != nil {
				return nil, err
			}
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a singleflight result must not share maps.
	return v.(instance.Scene).Clone(), nil
}

// Memory is an in-process cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]instance.Scene
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]instance.Scene)}
}

func (m *Memory) Load(_ context.Context, key string) (instance.Scene, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *Memory) Store(_ context.Context, key string, s instance.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = s.Clone()
	return nil
}

// Len reports the number of cached scenes.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
