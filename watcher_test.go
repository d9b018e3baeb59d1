package form

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/form-fn/form-go/cell"
)

type wItem struct {
	Label *cell.Signal[string]
}

type wForm struct {
	Title *cell.Signal[string]
	Tags  *cell.Signal[[]string]
	Ref   *cell.Signal[[]string]
	Items *cell.Signal[[]*wItem]
}

func init() {
	Register[wItem](
		Watched[wItem]("label", func(i *wItem) Observable { return i.Label }),
	)
	Register[wForm](
		Watched[wForm]("title", func(f *wForm) Observable { return f.Title }),
		Watched[wForm]("tags", func(f *wForm) Observable { return f.Tags }),
		Watched[wForm]("ref", func(f *wForm) Observable { return f.Ref }, WithCompare(CompareRef)),
		Watched[wForm]("items", func(f *wForm) Observable { return f.Items }),
		Nested[wForm]("items", func(f *wForm) any { return f.Items }),
	)
}

func newWForm() *wForm {
	return &wForm{
		Title: cell.New(""),
		Tags:  cell.New([]string{"a"}),
		Ref:   cell.New([]string{"a"}),
		Items: cell.New([]*wItem{{Label: cell.New("")}}),
	}
}

func TestWatcherIdentity(t *testing.T) {
	f := newWForm()
	w1, err := WatcherFor(f)
	assert.NoError(t, err)
	w2, err := WatcherFor(f)
	assert.NoError(t, err)
	assert.True(t, w1 == w2)
}

func TestWatcherInvalidTarget(t *testing.T) {
	_, err := WatcherFor(nil)
	assert.IsError(t, err, ErrInvalidTarget)
	_, err = WatcherFor("not a pointer")
	assert.IsError(t, err, ErrInvalidTarget)
	var nilForm *wForm
	_, err = WatcherFor(nilForm)
	assert.IsError(t, err, ErrInvalidTarget)
}

func TestWatcherSameValueNeverBumps(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	f.Title.Set("")
	assert.Equal(t, int64(0), w.ChangeTick())
	assert.Equal(t, 0, len(w.ChangedKeys()))
	assert.False(t, w.Changed())

	f.Title.Set("x")
	f.Title.Set("x")
	assert.Equal(t, int64(1), w.ChangeTick())
	assert.Equal(t, []string{"title"}, w.ChangedKeys())
}

func TestWatcherShallowCompare(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	// A fresh slice with identical contents is not a change.
	f.Tags.Set([]string{"a"})
	assert.Equal(t, int64(0), w.ChangeTick())

	// Membership change counts.
	f.Tags.Set([]string{"a", "b"})
	assert.Equal(t, int64(1), w.ChangeTick())
}

func TestWatcherRefCompare(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	// Identity comparison: a fresh slice counts even with equal contents.
	f.Ref.Set([]string{"a"})
	assert.Equal(t, int64(1), w.ChangeTick())
}

func TestWatcherBatchTicksOncePerMember(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	cell.Batch(func() {
		f.Title.Set("a")
		f.Title.Set("b")
		f.Tags.Set([]string{"x"})
	})
	assert.Equal(t, int64(2), w.ChangeTick())
	assert.Equal(t, []string{"title", "tags"}, w.ChangedKeys())
}

func TestWatcherNestedRollup(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	f.Items.Get()[0].Label.Set("changed")

	assert.Equal(t, 0, len(w.ChangedKeys()))
	assert.True(t, w.Changed())

	paths := w.ChangedKeyPaths()
	assert.Equal(t, []KeyPath{"items.0.label"}, paths)

	child, _ := WatcherFor(f.Items.Get()[0])
	assert.True(t, child.Changed())

	// Resetting the child clears its paths but the parent stays dirty.
	child.Reset()
	assert.False(t, child.Changed())
	assert.True(t, w.Changed())
	assert.Equal(t, 0, len(w.ChangedKeyPaths()))

	// Resetting the parent clears everything reachable.
	f.Items.Get()[0].Label.Set("again")
	w.Reset()
	assert.False(t, w.Changed())
	assert.False(t, child.Changed())
	assert.Equal(t, int64(0), child.ChangeTick())
}

func TestWatcherResetClearsKeysAndTickTogether(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	f.Title.Set("x")
	f.Tags.Set([]string{"b"})
	assert.Equal(t, int64(2), w.ChangeTick())

	w.Reset()
	assert.Equal(t, int64(0), w.ChangeTick())
	assert.Equal(t, 0, len(w.ChangedKeys()))
	assert.False(t, w.Changed())
}

func TestWatcherAssumeChanged(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	w.AssumeChanged()
	assert.True(t, w.Changed())
	assert.Equal(t, int64(0), w.ChangeTick())

	w.Reset()
	assert.False(t, w.Changed())
}

type cycNodeA struct {
	Label *cell.Signal[string]
	B     *cycNodeB
}

type cycNodeB struct {
	A *cycNodeA
}

func init() {
	Register[cycNodeA](
		Watched[cycNodeA]("label", func(a *cycNodeA) Observable { return a.Label }),
		Nested[cycNodeA]("b", func(a *cycNodeA) any { return a.B }),
	)
	Register[cycNodeB](
		Nested[cycNodeB]("a", func(b *cycNodeB) any { return b.A }),
	)
}

func TestWatcherCyclicNesting(t *testing.T) {
	a := &cycNodeA{Label: cell.New("")}
	b := &cycNodeB{A: a}
	a.B = b

	wa, err := WatcherFor(a)
	assert.NoError(t, err)
	wb, err := WatcherFor(b)
	assert.NoError(t, err)

	a.Label.Set("x")
	assert.Equal(t, int64(1), wa.ChangeTick())
	assert.True(t, wa.Changed())
	assert.True(t, wb.Changed())
	assert.Equal(t, []KeyPath{"label"}, wa.ChangedKeyPaths())
	assert.Equal(t, []KeyPath{"a.label"}, wb.ChangedKeyPaths())

	wa.Reset()
	assert.False(t, wa.Changed())
	assert.False(t, wb.Changed())
}

func TestReleaseWatcherDetaches(t *testing.T) {
	f := newWForm()
	w, _ := WatcherFor(f)

	ReleaseWatcher(f)
	f.Title.Set("after release")
	assert.Equal(t, int64(0), w.ChangeTick())

	// A fresh instance is created on next access.
	w2, _ := WatcherFor(f)
	assert.True(t, w != w2)
}
