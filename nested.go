package form

import (
	"reflect"
	"sort"
)

// NestedEntry is one keyed sub-value produced while walking a target's
// nested members.
type NestedEntry struct {
	// OwnerKey is the path of the declaring member.
	OwnerKey KeyPath
	// KeyPath addresses the entry: owner key joined with the sub-key, or
	// the sub-key alone for hoisted members.
	KeyPath KeyPath
	// Value is the unwrapped element.
	Value any
}

// visitNested walks the target's nested members, unwrapping one container
// level per member: a plain value yields a single entry with no sub-key, a
// slice or array yields index-keyed entries, a SetView yields entries keyed
// by insertion-order index, a map yields entries keyed by its string or
// integer keys (other key types are ignored), and an Observable box is
// unwrapped before the container is examined. Every call re-reads live
// container contents; returning false stops the walk.
func visitNested(target any, info *typeInfo, visit func(NestedEntry) bool) {
	for _, member := range info.nested {
		owner := KeyPath(member.key)
		value := normalizeNil(unbox(member.get(target)))

		emit := func(subKey any, elem any) bool {
			path := Path(owner, subKey)
			if member.hoist {
				path = Path(subKey)
			}
			return visit(NestedEntry{OwnerKey: owner, KeyPath: path, Value: normalizeNil(elem)})
		}

		if value == nil {
			if !emit(nil, nil) {
				return
			}
			continue
		}

		if set, ok := value.(SetView); ok {
			for i, elem := range set.Values() {
				if !emit(i, unbox(elem)) {
					return
				}
			}
			continue
		}

		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				if !emit(i, unbox(rv.Index(i).Interface())) {
					return
				}
			}
		case reflect.Map:
			for _, key := range sortedMapKeys(rv) {
				elem := rv.MapIndex(reflect.ValueOf(key.raw)).Interface()
				if !emit(key.segment, unbox(elem)) {
					return
				}
			}
		default:
			if !emit(nil, value) {
				return
			}
		}
	}
}

// unbox unwraps observable containers until a plain value remains. A nil
// box unwraps to nil.
func unbox(v any) any {
	for {
		obs, ok := v.(Observable)
		if !ok {
			return v
		}
		if rv := reflect.ValueOf(obs); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		v = obs.Value()
	}
}

// normalizeNil collapses a typed nil pointer into an untyped nil, so nil
// members read as absent. Nil slices and maps keep their type and simply
// enumerate no entries.
func normalizeNil(v any) any {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return v
}

type mapKey struct {
	raw     any
	segment any
}

// sortedMapKeys returns the map's string and integer keys in a stable
// order. Keys of any other type are dropped.
func sortedMapKeys(rv reflect.Value) []mapKey {
	var strs []mapKey
	var ints []mapKey
	for _, k := range rv.MapKeys() {
		switch k.Kind() {
		case reflect.String:
			strs = append(strs, mapKey{raw: k.Interface(), segment: k.String()})
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			ints = append(ints, mapKey{raw: k.Interface(), segment: int(k.Int())})
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			ints = append(ints, mapKey{raw: k.Interface(), segment: int(k.Uint())})
		}
	}
	sort.Slice(ints, func(i, j int) bool { return ints[i].segment.(int) < ints[j].segment.(int) })
	sort.Slice(strs, func(i, j int) bool { return strs[i].segment.(string) < strs[j].segment.(string) })
	return append(ints, strs...)
}
