package form

import (
	"fmt"
	"reflect"
	"sync"
)

// Observable is the contract the reactive substrate must provide for a
// single tracked value: read the current value and get a callback after it
// changes. cell.Signal satisfies it.
type Observable interface {
	Value() any
	Subscribe(fn func()) (cancel func())
}

// SetView is implemented by set containers whose elements are enumerated in
// insertion order. cell.Set satisfies it.
type SetView interface {
	Values() []any
}

// nilObservable reports whether obs is nil or a typed nil pointer, which a
// member accessor returns for an uninitialized field.
func nilObservable(obs Observable) bool {
	if obs == nil {
		return true
	}
	rv := reflect.ValueOf(obs)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// CompareMode selects how a watched member detects change.
type CompareMode int

const (
	// CompareShallow takes a one-level copy of container contents before
	// comparing, so reassigning a collection or changing its membership
	// counts as a change, while mutating a contained element's own fields
	// does not.
	CompareShallow CompareMode = iota
	// CompareRef compares by identity only.
	CompareRef
)

type watchedMember struct {
	key     string
	get     func(target any) Observable
	compare CompareMode
}

type nestedMember struct {
	key   string
	get   func(target any) any
	hoist bool
}

type typeInfo struct {
	name    string
	watched []watchedMember
	nested  []nestedMember
}

// MemberDecl is a single member declaration produced by Watched or Nested.
type MemberDecl func(*typeInfo)

// WatchOption modifies a Watched declaration.
type WatchOption func(*watchedMember)

// WithCompare sets the comparison mode of a watched member.
func WithCompare(mode CompareMode) WatchOption {
	return func(m *watchedMember) {
		m.compare = mode
	}
}

// NestedOption modifies a Nested declaration.
type NestedOption func(*nestedMember)

// WithHoist collapses the member key out of produced paths, so entries of
// the nested container address the owner directly. At most one member per
// type may be hoisted.
func WithHoist() NestedOption {
	return func(m *nestedMember) {
		m.hoist = true
	}
}

// Watched declares a change-tracked member. The accessor returns the
// member's observable container.
func Watched[T any](key string, get func(*T) Observable, opts ...WatchOption) MemberDecl {
	m := watchedMember{
		key: key,
		get: func(target any) Observable {
			return get(target.(*T))
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return func(info *typeInfo) {
		info.watched = append(info.watched, m)
	}
}

// Nested declares a member whose value holds child objects that carry their
// own Watcher/Validator state.
func Nested[T any](key string, get func(*T) any, opts ...NestedOption) MemberDecl {
	m := nestedMember{
		key: key,
		get: func(target any) any {
			return get(target.(*T))
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return func(info *typeInfo) {
		info.nested = append(info.nested, m)
	}
}

var (
	registryMu sync.RWMutex
	registry   = make(map[reflect.Type]*typeInfo)
)

// Register records the tracked and nested members of *T. It is meant to be
// called once per type, at package initialization. Declaring a type twice
// or hoisting more than one member panics with a ConfigError.
func Register[T any](decls ...MemberDecl) {
	t := reflect.TypeOf((*T)(nil))
	info := &typeInfo{name: t.Elem().String()}
	for _, decl := range decls {
		decl(info)
	}

	hoisted := ""
	for _, m := range info.nested {
		if !m.hoist {
			continue
		}
		if hoisted != "" {
			panic(&ConfigError{
				Type:   info.name,
				Member: m.key,
				Reason: fmt.Sprintf("second hoisted member (%q is already hoisted)", hoisted),
			})
		}
		hoisted = m.key
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[t]; dup {
		panic(&ConfigError{Type: info.name, Reason: "type registered twice"})
	}
	registry[t] = info
}

// lookupInfo returns the declarations recorded for the target's dynamic
// type. Unregistered types yield an empty, inert info.
func lookupInfo(target any) *typeInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if info, ok := registry[reflect.TypeOf(target)]; ok {
		return info
	}
	return &typeInfo{name: fmt.Sprintf("%T", target)}
}

// isRegistered reports whether the value's dynamic type carries member
// declarations, i.e. can have its own Watcher or Validator.
func isRegistered(v any) bool {
	if v == nil {
		return false
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[reflect.TypeOf(v)]
	return ok
}

// checkTarget validates that a value can own engine state: any non-nil
// pointer qualifies.
func checkTarget(target any) error {
	if target == nil {
		return ErrInvalidTarget
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}
	return nil
}
