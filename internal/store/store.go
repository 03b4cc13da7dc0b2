package store

import (
	"log/slog"
	"sync"
)

// Store is the single source of truth for client state. All mutations go
// through Dispatch, which applies actions one at a time with Reduce.
// Readers get immutable snapshots from State.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int

	strict bool
	logger *slog.Logger
}

// Option configures the Store
type Option func(*Store)

// WithStrict makes Dispatch panic on actions the reducer does not handle.
// Without it such actions are logged and ignored.
func WithStrict(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithInitialState seeds the store
func WithInitialState(state State) Option {
	return func(s *Store) {
		s.state = state
	}
}

// New creates a store with empty state
func New(opts ...Option) *Store {
	s := &Store{
		subs:   make(map[int]func(State)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and notifies subscribers with the new state.
// Subscribers run outside the lock and may dispatch again.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	next, err := Reduce(s.state, a)
	if err != nil {
		s.mu.Unlock()
		if s.strict {
			panic(err)
		}
		s.logger.Warn("ignoring action", "error", err)
		return
	}
	s.state = next
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn to be called after every applied action.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
