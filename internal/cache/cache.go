package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	applog "github.com/salemadams/cash-dash/internal/log"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge() int
	Size() int
}

var _ Cache[struct{}] = (*LRUCache[struct{}])(nil)

// Loader fronts an LRUCache with singleflight so concurrent misses on the
// same key run the load function once.
type Loader[T any] struct {
	lru   *LRUCache[T]
	group singleflight.Group
}

func NewLoader[T any](maxSize int, ttl time.Duration) *Loader[T] {
	return &Loader[T]{lru: NewLRUCache[T](maxSize, ttl)}
}

// Get returns the cached value for key, or loads and stores it. hit reports
// whether the value came from the cache. A value loaded across a Purge is
// returned but not stored.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (value T, hit bool, err error) {
	if v, ok := l.lru.Get(key); ok {
		return v, true, nil
	}
	gen := l.lru.Generation()
	// Loads started before and after a Purge never share a result.
	flightKey := strconv.FormatUint(gen, 10) + ":" + key
	v, err, _ := l.group.Do(flightKey, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return loaded, err
		}
		l.lru.SetIfGeneration(gen, key, loaded)
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Purge drops every cached value.
func (l *Loader[T]) Purge() int {
	return l.lru.Purge()
}

func (l *Loader[T]) CleanExpired() int { return l.lru.CleanExpired() }

func (l *Loader[T]) Stats() Stats { return l.lru.Stats() }

// Manager periodically cleans expired entries of registered caches.
type Manager struct {
	logger      *applog.Logger
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	started     bool
}

type Cleaner interface {
	CleanExpired() int
}

func NewManager(logger *applog.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(applog.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.startOnce.Do(func() {
		m.started = true
		go m.cleanup(interval)
	})
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow runs one cleanup pass over every registered cache.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	})
}
