package form

import (
	"strconv"
	"strings"
)

// KeyPath is the dot-joined address of a field, possibly reaching through
// nested containers and child objects ("items.0.name").
type KeyPath string

// Self addresses the object itself rather than one of its members.
const Self KeyPath = ""

// Path builds a KeyPath from the given segments. Nil and empty segments are
// dropped, integer segments are stringified. Accepted segment types are
// string, KeyPath and the built-in integer types; anything else is ignored.
func Path(segments ...any) KeyPath {
	var b strings.Builder
	for _, seg := range segments {
		s, ok := segmentString(seg)
		if !ok || s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return KeyPath(b.String())
}

func segmentString(seg any) (string, bool) {
	switch v := seg.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case KeyPath:
		return string(v), true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	default:
		return "", false
	}
}

// Segments splits the path into its individual segments. Self has none.
func (p KeyPath) Segments() []string {
	if p == Self {
		return nil
	}
	return strings.Split(string(p), ".")
}

// FirstSegment returns the leading segment of the path ("" for Self).
func (p KeyPath) FirstSegment() string {
	if i := strings.IndexByte(string(p), '.'); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// Parent returns the path with its last segment removed. The second return
// value is false when the path is Self.
func (p KeyPath) Parent() (KeyPath, bool) {
	if p == Self {
		return Self, false
	}
	if i := strings.LastIndexByte(string(p), '.'); i >= 0 {
		return p[:i], true
	}
	return Self, true
}

// HasPrefix reports whether prefix is an ancestor of p or p itself.
// Matching respects segment boundaries: "ab.c" is not under "a".
func (p KeyPath) HasPrefix(prefix KeyPath) bool {
	if prefix == Self || p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+".")
}

// TrimPrefix removes an ancestor prefix from p. It returns p unchanged when
// prefix is not an ancestor.
func (p KeyPath) TrimPrefix(prefix KeyPath) KeyPath {
	if prefix == Self {
		return p
	}
	if p == prefix {
		return Self
	}
	if strings.HasPrefix(string(p), string(prefix)+".") {
		return p[len(prefix)+1:]
	}
	return p
}
