package form

import (
	"reflect"
	"sort"
	"sync"
)

// Watcher is a per-object change detector. It subscribes to the object's
// watched members, folds nested child Watchers into its dirty state, and
// exposes what changed as member keys and full key paths.
type Watcher struct {
	mu          sync.Mutex
	target      any
	info        *typeInfo
	tick        int64
	nestedTick  int64
	changedKeys map[string]struct{}
	keyOrder    []string
	assumed     bool
	cancels     []func()
	// parents receive nested change notifications, so a parent stays
	// dirty even after a child is individually reset.
	parents map[*Watcher]struct{}
}

var watchers = newInstanceCache[*Watcher]()

// WatcherFor returns the Watcher owned by target, creating it on first
// access. The same object always yields the same instance until it is
// released. Targets must be non-nil pointers.
func WatcherFor(target any) (*Watcher, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}
	w, created, err := watchers.getOrCreate(target, func() (*Watcher, error) {
		return newWatcher(target), nil
	})
	if created {
		// Materialize child Watchers only after the cache holds this one, so
		// mutually nested objects cannot recurse into a second creation.
		w.forEachNested(func(KeyPath, *Watcher) bool { return true })
	}
	return w, err
}

// ReleaseWatcher drops the Watcher owned by target and detaches its member
// subscriptions. It is the manual counterpart of garbage collection for
// hosts that create objects in large numbers.
func ReleaseWatcher(target any) {
	if w, ok := watchers.release(target); ok {
		w.dispose()
	}
}

func newWatcher(target any) *Watcher {
	w := &Watcher{
		target:      target,
		info:        lookupInfo(target),
		changedKeys: make(map[string]struct{}),
		parents:     make(map[*Watcher]struct{}),
	}
	for _, member := range w.info.watched {
		w.track(member)
	}
	return w
}

// track subscribes one watched member and arms its change comparison.
func (w *Watcher) track(member watchedMember) {
	obs := member.get(w.target)
	if nilObservable(obs) {
		return
	}
	snapshot := snapshotOf(obs.Value(), member.compare)
	var snapMu sync.Mutex
	cancel := obs.Subscribe(func() {
		current := obs.Value()
		snapMu.Lock()
		if snapshotEqual(snapshot, current, member.compare) {
			snapMu.Unlock()
			return
		}
		snapshot = snapshotOf(current, member.compare)
		snapMu.Unlock()
		w.bump(member.key)
	})
	w.cancels = append(w.cancels, cancel)
}

func (w *Watcher) bump(key string) {
	w.mu.Lock()
	w.tick++
	if _, dup := w.changedKeys[key]; !dup {
		w.changedKeys[key] = struct{}{}
		w.keyOrder = append(w.keyOrder, key)
	}
	parents := w.parentsLocked()
	w.mu.Unlock()
	seen := map[*Watcher]struct{}{w: {}}
	for _, p := range parents {
		p.bumpNested(seen)
	}
}

// bumpNested records that something reachable through a nested member
// changed. It does not touch the change tick or the changed keys. The seen
// set keeps propagation finite on cyclic object graphs.
func (w *Watcher) bumpNested(seen map[*Watcher]struct{}) {
	if _, dup := seen[w]; dup {
		return
	}
	seen[w] = struct{}{}
	w.mu.Lock()
	w.nestedTick++
	parents := w.parentsLocked()
	w.mu.Unlock()
	for _, p := range parents {
		p.bumpNested(seen)
	}
}

func (w *Watcher) parentsLocked() []*Watcher {
	if len(w.parents) == 0 {
		return nil
	}
	out := make([]*Watcher, 0, len(w.parents))
	for p := range w.parents {
		out = append(out, p)
	}
	return out
}

func (w *Watcher) addParent(parent *Watcher) {
	if parent == w {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.parents[parent] = struct{}{}
}

// ChangeTick returns the number of member change events observed since the
// last Reset. It starts at zero and only ever grows.
func (w *Watcher) ChangeTick() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Changed reports whether this object or anything nested under it changed.
// Nested changes are remembered here: resetting a child on its own does not
// clean the parent.
func (w *Watcher) Changed() bool {
	return w.changed(make(map[*Watcher]struct{}))
}

func (w *Watcher) changed(seen map[*Watcher]struct{}) bool {
	if _, dup := seen[w]; dup {
		return false
	}
	seen[w] = struct{}{}
	w.mu.Lock()
	own := w.tick > 0 || w.assumed || w.nestedTick > 0
	w.mu.Unlock()
	if own {
		return true
	}
	changed := false
	w.forEachNested(func(_ KeyPath, child *Watcher) bool {
		if child.changed(seen) {
			changed = true
			return false
		}
		return true
	})
	return changed
}

// ChangedKeys returns the directly changed member names, in first-change
// order. Nested changes do not appear here.
func (w *Watcher) ChangedKeys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.keyOrder))
	copy(out, w.keyOrder)
	return out
}

// ChangedKeyPaths returns the changed paths of this object and, prefixed
// with their entry path, of every nested child.
func (w *Watcher) ChangedKeyPaths() []KeyPath {
	var out []KeyPath
	w.collectChangedKeyPaths(Self, &out, make(map[*Watcher]struct{}))
	return out
}

func (w *Watcher) collectChangedKeyPaths(prefix KeyPath, out *[]KeyPath, seen map[*Watcher]struct{}) {
	if _, dup := seen[w]; dup {
		return
	}
	seen[w] = struct{}{}
	w.mu.Lock()
	for _, key := range w.keyOrder {
		*out = append(*out, Path(prefix, key))
	}
	w.mu.Unlock()
	w.forEachNested(func(path KeyPath, child *Watcher) bool {
		child.collectChangedKeyPaths(Path(prefix, path), out, seen)
		return true
	})
}

// AssumeChanged marks the object dirty without touching the change tick,
// for changes signalled outside the dependency system.
func (w *Watcher) AssumeChanged() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.assumed = true
}

// Reset clears the accumulated change state of this Watcher and of every
// Watcher reachable through nested members. Resetting a child never clears
// its parent.
func (w *Watcher) Reset() {
	w.reset(make(map[*Watcher]struct{}))
}

func (w *Watcher) reset(seen map[*Watcher]struct{}) {
	if _, dup := seen[w]; dup {
		return
	}
	seen[w] = struct{}{}
	w.mu.Lock()
	w.tick = 0
	w.nestedTick = 0
	w.assumed = false
	w.changedKeys = make(map[string]struct{})
	w.keyOrder = nil
	w.mu.Unlock()
	w.forEachNested(func(_ KeyPath, child *Watcher) bool {
		child.reset(seen)
		return true
	})
}

// forEachNested visits the Watcher of every nested entry whose value is a
// registered object, creating child Watchers lazily. Containers are re-read
// on every call, so entries follow the live object graph.
func (w *Watcher) forEachNested(visit func(path KeyPath, child *Watcher) bool) {
	visitNested(w.target, w.info, func(e NestedEntry) bool {
		if !isRegistered(e.Value) {
			return true
		}
		child, err := WatcherFor(e.Value)
		if err != nil {
			return true
		}
		child.addParent(w)
		return visit(e.KeyPath, child)
	})
}

func (w *Watcher) dispose() {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = nil
	w.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// snapshotOf captures the comparison state of a member value: the value
// itself in reference mode, a one-level copy of container contents in
// shallow mode.
func snapshotOf(v any, mode CompareMode) any {
	if mode == CompareRef || v == nil {
		return v
	}
	if set, ok := v.(SetView); ok {
		return set.Values()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return shallowSlice(out)
	case reflect.Map:
		out := make(map[any]any, rv.Len())
		for _, k := range rv.MapKeys() {
			out[k.Interface()] = rv.MapIndex(k).Interface()
		}
		return shallowMap(out)
	default:
		return v
	}
}

type shallowSlice []any

type shallowMap map[any]any

// snapshotEqual compares a stored snapshot against the member's current
// value. Shallow mode compares container membership by element identity, so
// mutating an element's own fields is not a change.
func snapshotEqual(snapshot, current any, mode CompareMode) bool {
	if mode == CompareRef {
		return sameRef(snapshot, current)
	}
	switch snap := snapshot.(type) {
	case shallowSlice:
		cur, ok := snapshotOf(current, CompareShallow).(shallowSlice)
		if !ok || len(cur) != len(snap) {
			return false
		}
		for i := range snap {
			if !sameRef(snap[i], cur[i]) {
				return false
			}
		}
		return true
	case shallowMap:
		cur, ok := snapshotOf(current, CompareShallow).(shallowMap)
		if !ok || len(cur) != len(snap) {
			return false
		}
		for k, v := range snap {
			cv, present := cur[k]
			if !present || !sameRef(v, cv) {
				return false
			}
		}
		return true
	case []any: // SetView snapshot
		curSet, ok := current.(SetView)
		if !ok {
			return false
		}
		cur := curSet.Values()
		if len(cur) != len(snap) {
			return false
		}
		for i := range snap {
			if !sameRef(snap[i], cur[i]) {
				return false
			}
		}
		return true
	default:
		return sameRef(snapshot, current)
	}
}

// sameRef is identity comparison that tolerates uncomparable values:
// slices, maps, funcs and channels compare by their data pointer.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Slice:
		return ra.Len() == rb.Len() && (ra.Len() == 0 || ra.Pointer() == rb.Pointer())
	case reflect.Map, reflect.Func, reflect.Chan:
		return ra.Pointer() == rb.Pointer()
	default:
		if !ra.Type().Comparable() {
			return false
		}
		return a == b
	}
}

// sortKeyPaths orders paths lexicographically; exported query results use
// it so callers see a stable order.
func sortKeyPaths(paths []KeyPath) []KeyPath {
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}
