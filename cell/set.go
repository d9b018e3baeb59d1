package cell

import (
	"reflect"
	"sync"
)

// Set is an observable, insertion-ordered set. Membership changes notify
// subscribers; it enumerates as a SetView.
type Set[T comparable] struct {
	mu     sync.Mutex
	items  []T
	index  map[T]struct{}
	subs   []subscriber
	nextID int
}

// NewSet creates a Set holding the given elements.
func NewSet[T comparable](elems ...T) *Set[T] {
	s := &Set[T]{index: make(map[T]struct{})}
	for _, e := range elems {
		if _, dup := s.index[e]; dup {
			continue
		}
		s.index[e] = struct{}{}
		s.items = append(s.items, e)
	}
	return s
}

// Add inserts e, reporting whether the set grew.
func (s *Set[T]) Add(e T) bool {
	s.mu.Lock()
	if _, dup := s.index[e]; dup {
		s.mu.Unlock()
		return false
	}
	s.index[e] = struct{}{}
	s.items = append(s.items, e)
	s.notifyLocked()
	return true
}

// Delete removes e, reporting whether it was present.
func (s *Set[T]) Delete(e T) bool {
	s.mu.Lock()
	if _, ok := s.index[e]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.index, e)
	for i, item := range s.items {
		if item == e {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.notifyLocked()
	return true
}

// notifyLocked releases the lock and delivers a change notification.
func (s *Set[T]) notifyLocked() {
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	deliver(reflect.ValueOf(s).Pointer(), func() {
		for _, sub := range subs {
			sub.fn()
		}
	})
}

// Has reports membership.
func (s *Set[T]) Has(e T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[e]
	return ok
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Elems returns the elements in insertion order.
func (s *Set[T]) Elems() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Values returns the elements in insertion order, untyped.
func (s *Set[T]) Values() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.items))
	for i, e := range s.items {
		out[i] = e
	}
	return out
}

// Value returns the element slice, so a Set can also be watched as a whole.
func (s *Set[T]) Value() any {
	return s.Elems()
}

// Subscribe registers fn to run after membership changes.
func (s *Set[T]) Subscribe(fn func()) (cancel func()) {
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
