package store

import (
	"sync"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// Store aggregates the canonical collections of the onboarding core. One
// store serves the whole process; every UI consumer reads through it.
type Store struct {
	Instances   *Collection[model.Instance]
	Suggestions *Collection[model.Suggestion]
	Users       *Collection[model.User]
	Roles       *Collection[model.Role]
	Templates   *Collection[model.Template]
	Activities  *Collection[model.Activity]
}

// New creates a store with every collection in the loading state.
func New() *Store {
	return &Store{
		Instances:   NewCollection[model.Instance](),
		Suggestions: NewCollection[model.Suggestion](),
		Users:       NewCollection[model.User](),
		Roles:       NewCollection[model.Role](),
		Templates:   NewCollection[model.Template](),
		Activities:  NewCollection[model.Activity](),
	}
}

// Reset returns every collection to its initial state. Tests call this
// between cases to fully isolate canonical state.
func (s *Store) Reset() {
	s.Instances.Reset()
	s.Suggestions.Reset()
	s.Users.Reset()
	s.Roles.Reset()
	s.Templates.Reset()
	s.Activities.Reset()
}

var (
	defaultMu    sync.Mutex
	defaultStore *Store
)

// Init creates the process-wide store if needed and returns it. There is no
// module-load side effect; callers opt in explicitly.
func Init() *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultStore == nil {
		defaultStore = New()
	}
	return defaultStore
}

// Default returns the process-wide store, creating it on first use.
func Default() *Store {
	return Init()
}

// Reset resets the process-wide store, if one was initialized.
func Reset() {
	defaultMu.Lock()
	s := defaultStore
	defaultMu.Unlock()
	if s != nil {
		s.Reset()
	}
}
