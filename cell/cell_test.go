package cell

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSignalGetSet(t *testing.T) {
	s := New("hello")
	assert.Equal(t, "hello", s.Get())

	s.Set("world")
	assert.Equal(t, "world", s.Get())
	assert.Equal(t, "world", s.Value().(string))
}

func TestSignalNotifiesSubscribers(t *testing.T) {
	s := New(0)
	calls := 0
	cancel := s.Subscribe(func() { calls++ })

	s.Set(1)
	s.Set(2)
	assert.Equal(t, 2, calls)

	cancel()
	s.Set(3)
	assert.Equal(t, 2, calls)
}

func TestSignalSameValueIsNoOp(t *testing.T) {
	s := New(5)
	calls := 0
	s.Subscribe(func() { calls++ })

	s.Set(5)
	assert.Equal(t, 0, calls)
}

func TestSignalUpdate(t *testing.T) {
	s := New(10)
	s.Update(func(n int) int { return n + 1 })
	assert.Equal(t, 11, s.Get())
}

func TestBatchCoalescesPerSignal(t *testing.T) {
	a := New(0)
	b := New(0)
	aCalls, bCalls := 0, 0
	a.Subscribe(func() { aCalls++ })
	b.Subscribe(func() { bCalls++ })

	Batch(func() {
		a.Set(1)
		a.Set(2)
		b.Set(1)
		assert.Equal(t, 0, aCalls) // deferred until the batch ends
	})

	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 1, bCalls)
	assert.Equal(t, 2, a.Get())
}

func TestBatchNests(t *testing.T) {
	s := New(0)
	calls := 0
	s.Subscribe(func() { calls++ })

	Batch(func() {
		Batch(func() { s.Set(1) })
		assert.Equal(t, 0, calls)
	})
	assert.Equal(t, 1, calls)
}

func TestSetInsertionOrder(t *testing.T) {
	s := NewSet(3, 1, 2, 1)
	assert.Equal(t, []int{3, 1, 2}, s.Elems())
	assert.Equal(t, 3, s.Len())

	assert.True(t, s.Add(4))
	assert.False(t, s.Add(4))
	assert.Equal(t, []int{3, 1, 2, 4}, s.Elems())

	assert.True(t, s.Delete(1))
	assert.False(t, s.Delete(1))
	assert.Equal(t, []int{3, 2, 4}, s.Elems())
	assert.True(t, s.Has(2))
}

func TestSetNotifiesOnMembershipChange(t *testing.T) {
	s := NewSet[string]()
	calls := 0
	s.Subscribe(func() { calls++ })

	s.Add("a")
	s.Add("a") // no-op
	s.Delete("a")
	assert.Equal(t, 2, calls)
}
