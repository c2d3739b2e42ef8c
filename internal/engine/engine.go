// Package engine keeps the reactive store consistent with the local cache
// and the remote feed, and owns the optimistic mutation surface.
//
// The engine:
//  1. Loads cached collection lists into the store on startup
//  2. Folds local-cache writes and remote-feed snapshots through the merge
//     reconciler, guarded against stale remote echoes
//  3. Suppresses re-emission of structurally unchanged merges
//  4. Applies user mutations optimistically and rolls them back exactly on
//     backing-store failure
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sgupta906/oboarding-sub000/internal/cache"
	"github.com/sgupta906/oboarding-sub000/internal/feed"
	"github.com/sgupta906/oboarding-sub000/internal/identity"
	"github.com/sgupta906/oboarding-sub000/internal/model"
	"github.com/sgupta906/oboarding-sub000/internal/reconcile"
	"github.com/sgupta906/oboarding-sub000/internal/store"
)

// Backend is the authoritative remote store the engine confirms mutations
// against. Subscribe delivers full collection snapshots as JSON arrays.
type Backend interface {
	Subscribe(ctx context.Context, key model.Key, onSnapshot func([]byte), onError func(error)) (func(), error)
	Create(ctx context.Context, key model.Key, record any) error
	Update(ctx context.Context, key model.Key, id string, record any) error
	Delete(ctx context.Context, key model.Key, id string) error
}

// Config holds engine configuration.
type Config struct {
	// GuardWindow is how long a local write suppresses a stale remote echo
	GuardWindow time.Duration

	// Logger for engine activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GuardWindow: reconcile.DefaultGuardWindow,
		Logger:      log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// Engine orchestrates cache, remote feed, and store for every collection.
type Engine struct {
	store   *store.Store
	cache   *cache.Cache
	backend Backend
	ident   identity.Provider
	config  *Config
	manager *feed.Manager

	instances   *binding[model.Instance]
	suggestions *binding[model.Suggestion]
	users       *binding[model.User]
	roles       *binding[model.Role]
	templates   *binding[model.Template]
	activities  *binding[model.Activity]

	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func()

	now func() time.Time
}

// New creates an engine. All collaborators are required except config,
// which defaults via DefaultConfig. Use Start() to begin syncing.
func New(st *store.Store, c *cache.Cache, backend Backend, ident identity.Provider, config *Config) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if ident == nil {
		return nil, fmt.Errorf("identity provider cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if config.GuardWindow <= 0 {
		config.GuardWindow = reconcile.DefaultGuardWindow
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		store:   st,
		cache:   c,
		backend: backend,
		ident:   ident,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		// UTC drops the monotonic reading so a record compares deep-equal
		// with its own JSON round trip.
		now: func() time.Time { return time.Now().UTC() },
	}

	e.instances = newBinding(model.KeyInstances, st.Instances, c, config)
	e.suggestions = newBinding(model.KeySuggestions, st.Suggestions, c, config)
	e.users = newBinding(model.KeyUsers, st.Users, c, config)
	e.roles = newBinding(model.KeyRoles, st.Roles, c, config)
	e.templates = newBinding(model.KeyTemplates, st.Templates, c, config)
	e.activities = newBinding(model.KeyActivities, st.Activities, c, config)

	e.manager = feed.NewManager(e.open, config.Logger)

	return e, nil
}

// Store returns the reactive store consumers read through.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Start loads the cached lists into the store and begins reacting to cache
// writes. Remote feeds open lazily, on the first Acquire per collection.
func (e *Engine) Start() error {
	for _, key := range model.Keys() {
		e.mergeLocal(key)
	}

	e.unwatch = e.cache.Watch(func(key model.Key) {
		e.mergeLocal(key)
	})

	e.config.Logger.Println("Engine started")
	return nil
}

// Stop closes every open feed and stops reacting to cache writes.
func (e *Engine) Stop() {
	e.cancel()
	e.manager.CloseAll()
	if e.unwatch != nil {
		e.unwatch()
		e.unwatch = nil
	}
	e.config.Logger.Println("Engine stopped")
}

// Acquire starts (or joins) the live remote feed for one collection. Every
// consumer must call the returned release exactly once when detaching; the
// underlying feed closes when the last one does.
func (e *Engine) Acquire(key model.Key) (func(), error) {
	return e.manager.Acquire(key)
}

// AcquireAll acquires every collection feed and returns one release that
// detaches from all of them.
func (e *Engine) AcquireAll() (func(), error) {
	releases := make([]func(), 0, len(model.Keys()))
	for _, key := range model.Keys() {
		release, err := e.Acquire(key)
		if err != nil {
			for _, r := range releases {
				r()
			}
			return nil, err
		}
		releases = append(releases, release)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, r := range releases {
				r()
			}
		})
	}, nil
}

// open is the feed manager's OpenFunc: it wires one collection's remote
// subscription to the matching binding.
func (e *Engine) open(key model.Key) (func(), error) {
	switch key {
	case model.KeyInstances:
		return e.backend.Subscribe(e.ctx, key, e.instances.onRemote, e.instances.onFeedError)
	case model.KeySuggestions:
		return e.backend.Subscribe(e.ctx, key, e.suggestions.onRemote, e.suggestions.onFeedError)
	case model.KeyUsers:
		return e.backend.Subscribe(e.ctx, key, e.users.onRemote, e.users.onFeedError)
	case model.KeyRoles:
		return e.backend.Subscribe(e.ctx, key, e.roles.onRemote, e.roles.onFeedError)
	case model.KeyTemplates:
		return e.backend.Subscribe(e.ctx, key, e.templates.onRemote, e.templates.onFeedError)
	case model.KeyActivities:
		return e.backend.Subscribe(e.ctx, key, e.activities.onRemote, e.activities.onFeedError)
	default:
		return nil, fmt.Errorf("unknown collection key %q", key)
	}
}

// mergeLocal re-merges one collection after a local cache write.
func (e *Engine) mergeLocal(key model.Key) {
	switch key {
	case model.KeyInstances:
		e.instances.merge()
	case model.KeySuggestions:
		e.suggestions.merge()
	case model.KeyUsers:
		e.users.merge()
	case model.KeyRoles:
		e.roles.merge()
	case model.KeyTemplates:
		e.templates.merge()
	case model.KeyActivities:
		e.activities.merge()
	}
}

// binding joins one collection's cache list, remote snapshot, guard, and
// store container.
type binding[T model.Record[T]] struct {
	key    model.Key
	col    *store.Collection[T]
	cache  *cache.Cache
	guard  *reconcile.Guard
	logger *log.Logger

	mu          sync.Mutex
	remote      []T
	lastEmitted []T
	emitted     bool
}

func newBinding[T model.Record[T]](key model.Key, col *store.Collection[T], c *cache.Cache, config *Config) *binding[T] {
	return &binding[T]{
		key:    key,
		col:    col,
		cache:  c,
		guard:  reconcile.NewGuard(config.GuardWindow),
		logger: config.Logger,
	}
}

// onRemote folds a remote snapshot into the canonical list.
func (b *binding[T]) onRemote(data []byte) {
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		b.logger.Printf("Invalid %s snapshot: %v", b.key, err)
		return
	}

	b.mu.Lock()
	b.remote = list
	b.mu.Unlock()

	b.merge()
}

// onFeedError surfaces a feed failure on the collection without disturbing
// already-merged data.
func (b *binding[T]) onFeedError(err error) {
	b.logger.Printf("Feed error for %s: %v", b.key, err)
	b.col.SetError(err)
}

// merge rebuilds the canonical list from the current cache list and the
// last remote snapshot. Structurally unchanged results are not re-emitted.
//
// The whole rebuild runs under b.mu, install included: concurrent emissions
// must not install out of order, and lastEmitted must always be the list
// subscribers actually received, or a later identical merge would be
// suppressed against a marker the store never held.
func (b *binding[T]) merge() {
	b.mu.Lock()
	defer b.mu.Unlock()

	local, err := cache.Load[T](b.cache, b.key)
	if err != nil {
		b.logger.Printf("Warning: failed to load cached %s: %v", b.key, err)
	}

	merged := reconcile.Lists(local, b.remote, b.guard)
	if b.emitted && reconcile.Equal(merged, b.lastEmitted) {
		return
	}
	b.lastEmitted = merged
	b.emitted = true
	b.col.Replace(merged)
}
