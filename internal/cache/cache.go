// Package cache keeps hot lookups, such as resolving a session cookie, off
// the database.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	plog "portfel/internal/log"
)

// Cache is a string-keyed store of values of type T.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeleteFunc removes every entry for which match returns true and
	// reports how many were removed.
	DeleteFunc(match func(key string, data T) bool) int
	Size() int
}

// Sweeper is a cache that can drop its expired entries.
type Sweeper interface {
	CleanExpired() int
}

// Manager sweeps expired entries from its caches on a timer.
type Manager struct {
	logger *plog.Logger
	caches []Sweeper

	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewManager(logger *plog.Logger) *Manager {
	if logger == nil {
		logger = plog.New(plog.DefaultConfig())
	}
	return &Manager{
		logger: logger.WithComponent(plog.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache. Call it before Start.
func (m *Manager) Register(c Sweeper) {
	m.caches = append(m.caches, c)
}

// Start sweeps every interval until Stop.
func (m *Manager) Start(interval time.Duration) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("Expired cache entries removed", "removed", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

// Sweep cleans every cache once and returns the number of entries removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweep started by Start and waits for it. Stopping a manager
// that was never started is a no-op.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.started.Load() {
			<-m.done
		}
	})
}
