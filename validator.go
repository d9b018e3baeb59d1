package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// GroupKey isolates one error source's contributions so they can be
// replaced or removed without disturbing other sources.
type GroupKey string

// asyncGroup is the shared error group of the async pipeline; every run
// atomically replaces it.
const asyncGroup GroupKey = "async"

// SyncHandler validates synchronously, writing findings into the builder.
type SyncHandler func(b *ErrorBuilder)

// AsyncHandler validates asynchronously. It must observe ctx: a superseded
// or reset run is cancelled through it. A non-nil return (other than the
// ctx error) is logged and treated as "no result this run".
type AsyncHandler func(ctx context.Context, b *ErrorBuilder) error

// Validator is a per-object validation engine. Debounced sync handlers and
// a cancellable async job write into a group-keyed error store addressed by
// KeyPath; nested child Validators roll up into the object's validity.
type Validator struct {
	mu     sync.Mutex
	target any
	info   *typeInfo
	log    logr.Logger
	clk    clock.Clock

	enqueueDelay  time.Duration
	scheduleDelay time.Duration
	syncDebounce  time.Duration

	groups     map[GroupKey][]*ValidationError
	groupOrder []GroupKey
	byPath     *KeyPathMultiMap[*ValidationError]

	job            *validationJob
	asyncHandlers  []asyncEntry
	nextAsyncID    int
	reaction       int
	syncHandlers   []*syncHandler
	handlerCancels []func()
}

type asyncEntry struct {
	id int
	fn AsyncHandler
}

// ValidatorOption configures a Validator at creation time.
type ValidatorOption func(*Validator)

// WithEnqueueDelay sets the delay absorbing edit bursts before the first
// async run (default 100ms).
func WithEnqueueDelay(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.enqueueDelay = d }
}

// WithScheduleDelay sets the throttle delay between an async run and a
// follow-up run requested while it was in flight (default 300ms).
func WithScheduleDelay(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.scheduleDelay = d }
}

// WithSyncDebounce sets the quiet period before a sync handler commits
// (default 100ms).
func WithSyncDebounce(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.syncDebounce = d }
}

// WithClock injects the clock driving all timers.
func WithClock(clk clock.Clock) ValidatorOption {
	return func(v *Validator) { v.clk = clk }
}

// WithLogger sets the logger receiving swallowed handler failures.
func WithLogger(log logr.Logger) ValidatorOption {
	return func(v *Validator) { v.log = log }
}

var validators = newInstanceCache[*Validator]()

// ValidatorFor returns the Validator owned by target, creating it on first
// access. Options apply only at creation. Targets must be non-nil pointers.
func ValidatorFor(target any, opts ...ValidatorOption) (*Validator, error) {
	if err := checkTarget(target); err != nil {
		return nil, err
	}
	v, _, err := validators.getOrCreate(target, func() (*Validator, error) {
		return newValidator(target, opts...), nil
	})
	return v, err
}

// ReleaseValidator drops the Validator owned by target, cancelling its job
// and detaching its handler subscriptions.
func ReleaseValidator(target any) {
	if v, ok := validators.release(target); ok {
		v.job.Reset()
		v.mu.Lock()
		cancels := v.handlerCancels
		v.handlerCancels = nil
		v.mu.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func newValidator(target any, opts ...ValidatorOption) *Validator {
	v := &Validator{
		target:        target,
		info:          lookupInfo(target),
		log:           logr.Discard(),
		clk:           clock.New(),
		enqueueDelay:  100 * time.Millisecond,
		scheduleDelay: 300 * time.Millisecond,
		syncDebounce:  100 * time.Millisecond,
		groups:        make(map[GroupKey][]*ValidationError),
		byPath:        NewKeyPathMultiMap[*ValidationError](),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.job = newValidationJob(v.clk, v.enqueueDelay, v.scheduleDelay, v.runAsync)
	return v
}

// UpdateErrors runs build synchronously and replaces the group's stored
// errors with its output; empty output deletes the group. The returned
// disposer deletes the group. Every other pipeline reduces to this.
func (v *Validator) UpdateErrors(group GroupKey, build func(*ErrorBuilder)) (dispose func()) {
	b := NewErrorBuilder()
	build(b)
	v.mu.Lock()
	v.setGroupLocked(group, b.build())
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		v.setGroupLocked(group, nil)
		v.mu.Unlock()
	}
}

// setGroupLocked replaces one group's errors in both the group store and
// the path index.
func (v *Validator) setGroupLocked(group GroupKey, errs []*ValidationError) {
	for _, old := range v.groups[group] {
		v.byPath.Remove(old.KeyPath, old)
	}
	if len(errs) == 0 {
		if _, ok := v.groups[group]; ok {
			delete(v.groups, group)
			for i, g := range v.groupOrder {
				if g == group {
					v.groupOrder = append(v.groupOrder[:i], v.groupOrder[i+1:]...)
					break
				}
			}
		}
		return
	}
	if _, ok := v.groups[group]; !ok {
		v.groupOrder = append(v.groupOrder, group)
	}
	v.groups[group] = errs
	for _, e := range errs {
		v.byPath.Set(e.KeyPath, e)
	}
}

// RequestOption modifies a validation request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	force bool
}

// WithForce makes the request cancel any pending timer and in-flight run
// and start immediately.
func WithForce() RequestOption {
	return func(cfg *requestConfig) { cfg.force = true }
}

// Request asks the async pipeline for a (re-)validation.
func (v *Validator) Request(opts ...RequestOption) {
	var cfg requestConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	v.job.Request(cfg.force)
}

// AddAsyncHandler registers an async handler. All async handlers of one run
// execute concurrently against one shared builder and one shared context.
// The returned disposer removes the handler from future runs.
func (v *Validator) AddAsyncHandler(fn AsyncHandler) (dispose func()) {
	v.mu.Lock()
	id := v.nextAsyncID
	v.nextAsyncID++
	v.asyncHandlers = append(v.asyncHandlers, asyncEntry{id: id, fn: fn})
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, e := range v.asyncHandlers {
			if e.id == id {
				v.asyncHandlers = append(v.asyncHandlers[:i], v.asyncHandlers[i+1:]...)
				return
			}
		}
	}
}

// runAsync executes one async run: every handler concurrently, one shared
// builder, one shared context. The run commits only when it was neither
// cancelled nor failed; a clean run replaces the async group even when it
// produced nothing, clearing stale errors.
func (v *Validator) runAsync(ctx context.Context) {
	v.mu.Lock()
	handlers := make([]asyncEntry, len(v.asyncHandlers))
	copy(handlers, v.asyncHandlers)
	v.mu.Unlock()

	b := NewErrorBuilder()
	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		runErr error
	)
	for _, h := range handlers {
		wg.Add(1)
		go func(h asyncEntry) {
			defer wg.Done()
			err := v.invokeAsync(ctx, h.fn, b)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			v.log.Error(err, "async validation handler failed", "handler", h.id)
			errMu.Lock()
			runErr = multierr.Append(runErr, err)
			errMu.Unlock()
		}(h)
	}
	wg.Wait()

	if ctx.Err() != nil || runErr != nil {
		return
	}
	v.mu.Lock()
	v.setGroupLocked(asyncGroup, b.build())
	v.mu.Unlock()
}

func (v *Validator) invokeAsync(ctx context.Context, fn AsyncHandler, b *ErrorBuilder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, b)
}

// Reset cancels any pending or in-flight async run and any pending sync
// timers, clears all error groups and returns the job to Idle. Registered
// handlers stay in place; nested Validators are untouched.
func (v *Validator) Reset() {
	v.job.Reset()
	v.mu.Lock()
	for _, h := range v.syncHandlers {
		h.stopTimerLocked(v)
	}
	v.groups = make(map[GroupKey][]*ValidationError)
	v.groupOrder = nil
	v.byPath = NewKeyPathMultiMap[*ValidationError]()
	v.mu.Unlock()
}
