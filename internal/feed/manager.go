// Package feed ref-counts live remote subscriptions so that any number of
// concurrent consumers of one collection share a single underlying feed.
//
// The first Acquire for a collection opens the feed; later acquires only
// bump the reference count. The feed closes exactly once, when the last
// consumer releases. Re-acquiring after teardown opens a fresh feed.
package feed

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// OpenFunc opens the underlying remote subscription for one collection and
// returns the function that closes it.
type OpenFunc func(key model.Key) (stop func(), err error)

// Manager tracks one ref-counted subscription per collection key.
type Manager struct {
	open   OpenFunc
	logger *log.Logger

	mu     sync.Mutex
	active map[model.Key]*subscription
}

type subscription struct {
	refs    int
	stop    func()
	stopped bool
}

// NewManager creates a manager that opens feeds through open.
//
// If logger is nil, a default logger writing to stderr is used.
func NewManager(open OpenFunc, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[feed] ", log.LstdFlags)
	}
	return &Manager{
		open:   open,
		logger: logger,
		active: make(map[model.Key]*subscription),
	}
}

// Acquire registers a consumer of the given collection's feed, opening the
// underlying subscription if this is the first one. The returned release
// function must be called exactly once when the consumer detaches; extra
// calls are ignored.
func (m *Manager) Acquire(key model.Key) (func(), error) {
	if !key.Valid() {
		return nil, fmt.Errorf("unknown collection key %q", key)
	}

	m.mu.Lock()
	sub, ok := m.active[key]
	if !ok {
		stop, err := m.open(key)
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("failed to open feed for %s: %w", key, err)
		}
		sub = &subscription{stop: stop}
		m.active[key] = sub
		m.logger.Printf("Opened feed: %s", key)
	}
	sub.refs++
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { m.release(key, sub) })
	}
	return release, nil
}

// release drops one reference and closes the feed when the count reaches
// zero. The stopped flag guards against a double close even if a stale
// release races a teardown.
func (m *Manager) release(key model.Key, sub *subscription) {
	m.mu.Lock()
	sub.refs--
	if sub.refs > 0 || sub.stopped {
		m.mu.Unlock()
		return
	}
	sub.stopped = true
	if m.active[key] == sub {
		delete(m.active, key)
	}
	stop := sub.stop
	m.mu.Unlock()

	// Close outside the lock; stop may block on network teardown.
	stop()
	m.logger.Printf("Closed feed: %s", key)
}

// Refs returns the current reference count for a collection's feed.
func (m *Manager) Refs(key model.Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.active[key]; ok {
		return sub.refs
	}
	return 0
}

// CloseAll force-closes every open feed regardless of reference counts.
// Used at daemon shutdown; outstanding releases become no-ops.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	subs := make(map[model.Key]*subscription, len(m.active))
	for key, sub := range m.active {
		if !sub.stopped {
			sub.stopped = true
			subs[key] = sub
		}
		delete(m.active, key)
	}
	m.mu.Unlock()

	for key, sub := range subs {
		sub.stop()
		m.logger.Printf("Closed feed: %s", key)
	}
}
