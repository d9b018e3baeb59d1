package form

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestPathDropsEmptySegments(t *testing.T) {
	assert.Equal(t, KeyPath("a.0.c"), Path("a", nil, "", 0, "c"))
}

func TestPathNumbersStringify(t *testing.T) {
	assert.Equal(t, KeyPath("items.3.name"), Path("items", 3, "name"))
	assert.Equal(t, KeyPath("0"), Path(uint8(0)))
}

func TestPathSelf(t *testing.T) {
	assert.Equal(t, Self, Path())
	assert.Equal(t, Self, Path(nil, ""))
	assert.Equal(t, KeyPath("a"), Path(Self, "a"))
}

func TestKeyPathSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, KeyPath("a.b.c").Segments())
	assert.Zero(t, Self.Segments())
	assert.Equal(t, "a", KeyPath("a.b").FirstSegment())
	assert.Equal(t, "a", KeyPath("a").FirstSegment())
}

func TestKeyPathParent(t *testing.T) {
	parent, ok := KeyPath("a.b.c").Parent()
	assert.True(t, ok)
	assert.Equal(t, KeyPath("a.b"), parent)

	parent, ok = KeyPath("a").Parent()
	assert.True(t, ok)
	assert.Equal(t, Self, parent)

	_, ok = Self.Parent()
	assert.False(t, ok)
}

func TestKeyPathPrefix(t *testing.T) {
	assert.True(t, KeyPath("a.b.c").HasPrefix("a.b"))
	assert.True(t, KeyPath("a.b").HasPrefix("a.b"))
	assert.True(t, KeyPath("a.b").HasPrefix(Self))
	assert.False(t, KeyPath("ab.c").HasPrefix("a"))

	assert.Equal(t, KeyPath("c"), KeyPath("a.b.c").TrimPrefix("a.b"))
	assert.Equal(t, Self, KeyPath("a.b").TrimPrefix("a.b"))
	assert.Equal(t, KeyPath("a.b"), KeyPath("a.b").TrimPrefix("x"))
}
