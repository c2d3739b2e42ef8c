// Package store holds the canonical in-memory lists shared by every
// consumer of the onboarding core.
//
// Each Collection carries one entity list plus loading and error flags, and
// notifies subscribers on change. Mutation goes through Replace (feed
// emissions folded in by the sync engine) or Apply/Rollback (optimistic
// local intent); nothing else may touch canonical state.
package store

import (
	"sync"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// State is what a consumer observes for one collection: the canonical list
// plus its loading and error flags.
type State[T model.Record[T]] struct {
	Data      []T
	IsLoading bool
	Err       error
}

// Snapshot is the full prior value of a collection's list, captured at the
// moment of an optimistic mutation. Passing it back to Rollback restores
// exactly that value.
type Snapshot[T model.Record[T]] struct {
	data []T
}

// Collection is the reactive container for one entity type.
type Collection[T model.Record[T]] struct {
	mu      sync.RWMutex
	data    []T
	loading bool
	err     error

	nextSub int
	subs    map[int]func(State[T])
}

// NewCollection returns an empty collection in the loading state.
func NewCollection[T model.Record[T]]() *Collection[T] {
	return &Collection[T]{
		loading: true,
		subs:    make(map[int]func(State[T])),
	}
}

// cloneList deep-copies a list via each record's Clone method.
func cloneList[T model.Record[T]](list []T) []T {
	if list == nil {
		return nil
	}
	out := make([]T, len(list))
	for i, rec := range list {
		out[i] = rec.Clone()
	}
	return out
}

// State returns the current state. The returned list is a deep copy;
// callers can hold or mutate it freely.
func (c *Collection[T]) State() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State[T]{Data: cloneList(c.data), IsLoading: c.loading, Err: c.err}
}

// Get returns the record with the given id, if present.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.data {
		if rec.RecordID() == id {
			return rec.Clone(), true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records currently held.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Replace installs a new canonical list, clears the loading and error flags,
// and notifies subscribers. The list is deep-copied on the way in.
func (c *Collection[T]) Replace(list []T) {
	c.mu.Lock()
	c.data = cloneList(list)
	c.loading = false
	c.err = nil
	c.mu.Unlock()

	c.notify()
}

// SetError records a feed error. Loading clears but whatever data was
// already merged stays visible; stale-but-available beats blank.
func (c *Collection[T]) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.loading = false
	c.mu.Unlock()

	c.notify()
}

// Apply performs an optimistic mutation: mutate receives a deep copy of the
// current list and returns the new list, which becomes canonical
// immediately. The returned Snapshot captures the full prior value for
// rollback if the corresponding backing-store write later fails.
func (c *Collection[T]) Apply(mutate func([]T) []T) Snapshot[T] {
	c.mu.Lock()
	prior := cloneList(c.data)
	c.data = mutate(cloneList(c.data))
	c.loading = false
	c.mu.Unlock()

	c.notify()
	return Snapshot[T]{data: prior}
}

// Rollback restores the canonical list to the exact value captured in the
// snapshot, undoing the optimistic change and anything applied after it.
// Repeated rollbacks with the same snapshot are idempotent.
func (c *Collection[T]) Rollback(snap Snapshot[T]) {
	c.mu.Lock()
	c.data = cloneList(snap.data)
	c.mu.Unlock()

	c.notify()
}

// Subscribe registers fn to run on every state change, and runs it once
// immediately with the current state. The returned function removes the
// subscription; calling it more than once is harmless.
func (c *Collection[T]) Subscribe(fn func(State[T])) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	fn(c.State())

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Reset returns the collection to its initial loading state and drops all
// subscribers. Intended for test isolation.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	c.data = nil
	c.loading = true
	c.err = nil
	c.subs = make(map[int]func(State[T]))
	c.mu.Unlock()
}

// notify invokes subscribers outside the lock so a callback reading state
// cannot deadlock.
func (c *Collection[T]) notify() {
	c.mu.RLock()
	fns := make([]func(State[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	state := c.State()
	for _, fn := range fns {
		fn(state)
	}
}
