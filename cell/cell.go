// Package cell is a minimal reactive substrate: observable value containers
// with subscription callbacks and batched notification. The form engine only
// depends on the Observable and SetView contracts, so any substrate with the
// same shape can stand in for this one.
package cell

import (
	"reflect"
	"sync"
)

type subscriber struct {
	id int
	fn func()
}

// Signal is an observable box holding a single value. Reads return the
// current value, writes notify subscribers in subscription order. Writes of
// an identical value are dropped.
type Signal[T any] struct {
	mu     sync.Mutex
	val    T
	subs   []subscriber
	nextID int
}

// New creates a Signal holding initial.
func New[T any](initial T) *Signal[T] {
	return &Signal[T]{val: initial}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val
}

// Value returns the current value untyped.
func (s *Signal[T]) Value() any {
	return s.Get()
}

// Set stores v and notifies subscribers. Storing a value identical to the
// current one is a no-op. Inside a Batch, notification is deferred until the
// batch ends and coalesced to at most one callback per signal.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	if sameValue(s.val, v) {
		s.mu.Unlock()
		return
	}
	s.val = v
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	deliver(reflect.ValueOf(s).Pointer(), func() {
		for _, sub := range subs {
			sub.fn()
		}
	})
}

// Update applies fn to the current value and stores the result.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.Get()))
}

// Subscribe registers fn to run after the value changes. The returned
// function removes the subscription.
func (s *Signal[T]) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

var batch struct {
	mu      sync.Mutex
	depth   int
	pending []func()
	queued  map[uintptr]struct{}
}

// Batch runs fn with notification deferred: every signal written inside fn
// notifies its subscribers once, after fn returns. Batches nest.
func Batch(fn func()) {
	batch.mu.Lock()
	batch.depth++
	batch.mu.Unlock()

	fn()

	batch.mu.Lock()
	batch.depth--
	var flush []func()
	if batch.depth == 0 {
		flush = batch.pending
		batch.pending = nil
		batch.queued = nil
	}
	batch.mu.Unlock()

	for _, notify := range flush {
		notify()
	}
}

// deliver runs notify immediately, or queues it when a batch is open. A
// signal already queued in the current batch is not queued again.
func deliver(key uintptr, notify func()) {
	batch.mu.Lock()
	if batch.depth > 0 {
		if batch.queued == nil {
			batch.queued = make(map[uintptr]struct{})
		}
		if _, dup := batch.queued[key]; !dup {
			batch.queued[key] = struct{}{}
			batch.pending = append(batch.pending, notify)
		}
		batch.mu.Unlock()
		return
	}
	batch.mu.Unlock()
	notify()
}
