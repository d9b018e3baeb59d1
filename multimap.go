package form

// KeyPathMultiMap associates each KeyPath with an ordered set of values and
// maintains a prefix index alongside the exact store, so descendant lookups
// cost the depth of the queried subtree rather than the total entry count.
type KeyPathMultiMap[T comparable] struct {
	entries map[KeyPath][]T
	present map[KeyPath]map[T]struct{}
	// children maps a path to the set of its live immediate extensions,
	// forming a tree rooted at Self. A node is live while it carries
	// entries or children; empty nodes are pruned on removal.
	children map[KeyPath]map[KeyPath]struct{}
	order    []pathValue[T]
}

type pathValue[T comparable] struct {
	path  KeyPath
	value T
}

// NewKeyPathMultiMap creates an empty multimap.
func NewKeyPathMultiMap[T comparable]() *KeyPathMultiMap[T] {
	return &KeyPathMultiMap[T]{
		entries:  make(map[KeyPath][]T),
		present:  make(map[KeyPath]map[T]struct{}),
		children: make(map[KeyPath]map[KeyPath]struct{}),
	}
}

// Set adds value to the set stored at path. Duplicate (path, value) pairs
// are ignored.
func (m *KeyPathMultiMap[T]) Set(path KeyPath, value T) {
	set, ok := m.present[path]
	if !ok {
		set = make(map[T]struct{})
		m.present[path] = set
	}
	if _, dup := set[value]; dup {
		return
	}
	set[value] = struct{}{}
	m.entries[path] = append(m.entries[path], value)
	m.order = append(m.order, pathValue[T]{path: path, value: value})
	m.link(path)
}

func (m *KeyPathMultiMap[T]) link(path KeyPath) {
	for path != Self {
		parent, _ := path.Parent()
		set, ok := m.children[parent]
		if !ok {
			set = make(map[KeyPath]struct{})
			m.children[parent] = set
		}
		if _, done := set[path]; done {
			return
		}
		set[path] = struct{}{}
		path = parent
	}
}

// Remove deletes a single (path, value) pair.
func (m *KeyPathMultiMap[T]) Remove(path KeyPath, value T) {
	set, ok := m.present[path]
	if !ok {
		return
	}
	if _, has := set[value]; !has {
		return
	}
	delete(set, value)
	vals := m.entries[path]
	for i, v := range vals {
		if v == value {
			m.entries[path] = append(vals[:i], vals[i+1:]...)
			break
		}
	}
	m.dropOrder(func(pv pathValue[T]) bool { return pv.path == path && pv.value == value })
	if len(set) == 0 {
		delete(m.present, path)
		delete(m.entries, path)
		m.prune(path)
	}
}

// Delete removes every value stored at path.
func (m *KeyPathMultiMap[T]) Delete(path KeyPath) {
	if _, ok := m.entries[path]; !ok {
		return
	}
	delete(m.entries, path)
	delete(m.present, path)
	m.dropOrder(func(pv pathValue[T]) bool { return pv.path == path })
	m.prune(path)
}

func (m *KeyPathMultiMap[T]) dropOrder(drop func(pathValue[T]) bool) {
	kept := m.order[:0]
	for _, pv := range m.order {
		if !drop(pv) {
			kept = append(kept, pv)
		}
	}
	m.order = kept
}

func (m *KeyPathMultiMap[T]) prune(path KeyPath) {
	for path != Self {
		if len(m.entries[path]) > 0 || len(m.children[path]) > 0 {
			return
		}
		parent, _ := path.Parent()
		if set := m.children[parent]; set != nil {
			delete(set, path)
			if len(set) == 0 {
				delete(m.children, parent)
			}
		}
		path = parent
	}
}

// Get returns the values stored at path. With prefix set it additionally
// returns every value stored at any descendant of path, resolved through
// the prefix index. Values are deduplicated, first occurrence wins.
func (m *KeyPathMultiMap[T]) Get(path KeyPath, prefix bool) []T {
	if !prefix {
		vals := m.entries[path]
		if len(vals) == 0 {
			return nil
		}
		out := make([]T, len(vals))
		copy(out, vals)
		return out
	}
	var out []T
	seen := make(map[T]struct{})
	m.collect(path, seen, &out)
	return out
}

func (m *KeyPathMultiMap[T]) collect(path KeyPath, seen map[T]struct{}, out *[]T) {
	for _, v := range m.entries[path] {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		*out = append(*out, v)
	}
	for child := range m.children[path] {
		m.collect(child, seen, out)
	}
}

// Has reports whether any value is stored at path (or, with prefix, at any
// of its descendants).
func (m *KeyPathMultiMap[T]) Has(path KeyPath, prefix bool) bool {
	if len(m.entries[path]) > 0 {
		return true
	}
	if !prefix {
		return false
	}
	for child := range m.children[path] {
		if m.Has(child, true) {
			return true
		}
	}
	return false
}

// Len returns the number of stored (path, value) pairs.
func (m *KeyPathMultiMap[T]) Len() int {
	return len(m.order)
}

// Iterate visits each distinct value once, in insertion order, paired with
// the path it was first stored under. Returning false stops the iteration.
func (m *KeyPathMultiMap[T]) Iterate(visit func(path KeyPath, value T) bool) {
	seen := make(map[T]struct{})
	for _, pv := range m.order {
		if _, dup := seen[pv.value]; dup {
			continue
		}
		seen[pv.value] = struct{}{}
		if !visit(pv.path, pv.value) {
			return
		}
	}
}
