package form

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// syncHandler is one debounced reactive handler. Triggers restart its
// debounce timer, so only the last state after a quiet period is validated.
type syncHandler struct {
	group    GroupKey
	fn       SyncHandler
	timer    *clock.Timer
	timerGen uint64
}

// HandlerOption modifies a sync handler registration.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	initialRun bool
}

// WithInitialRun makes the handler run once, immediately, at registration
// instead of waiting for the first change.
func WithInitialRun() HandlerOption {
	return func(cfg *handlerConfig) { cfg.initialRun = true }
}

// AddSyncHandler registers a reactive handler. It observes every watched
// member of the target; each change restarts the handler's debounce timer,
// and firing commits the handler's output to its own error group. The
// returned disposer detaches the handler and deletes its group.
func (v *Validator) AddSyncHandler(fn SyncHandler, opts ...HandlerOption) (dispose func()) {
	var cfg handlerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &syncHandler{
		group: GroupKey("sync:" + uuid.NewString()),
		fn:    fn,
	}

	var cancels []func()
	for _, member := range v.info.watched {
		obs := member.get(v.target)
		if nilObservable(obs) {
			continue
		}
		cancels = append(cancels, obs.Subscribe(func() {
			v.triggerSync(h)
		}))
	}

	v.mu.Lock()
	v.syncHandlers = append(v.syncHandlers, h)
	v.handlerCancels = append(v.handlerCancels, cancels...)
	v.mu.Unlock()

	if cfg.initialRun {
		v.commitSync(h)
	}

	return func() {
		for _, cancel := range cancels {
			cancel()
		}
		v.mu.Lock()
		h.stopTimerLocked(v)
		for i, reg := range v.syncHandlers {
			if reg == h {
				v.syncHandlers = append(v.syncHandlers[:i], v.syncHandlers[i+1:]...)
				break
			}
		}
		v.setGroupLocked(h.group, nil)
		v.mu.Unlock()
	}
}

// triggerSync defers the handler's commit behind the debounce delay,
// restarting the delay when one is already pending. The callback carries
// the arming generation, so a callback already dequeued when the delay is
// restarted aborts instead of committing early.
func (v *Validator) triggerSync(h *syncHandler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
	} else {
		v.reaction++
	}
	h.timerGen++
	gen := h.timerGen
	h.timer = v.clk.AfterFunc(v.syncDebounce, func() {
		v.fireSync(h, gen)
	})
}

func (v *Validator) fireSync(h *syncHandler, gen uint64) {
	v.mu.Lock()
	if h.timer == nil || gen != h.timerGen {
		v.mu.Unlock()
		return
	}
	h.timer = nil
	v.reaction--
	v.mu.Unlock()
	v.commitSync(h)
}

// commitSync runs the handler and replaces its error group with its output.
// A panicking handler is logged and produces no errors this run: partial
// output is discarded and the group keeps its previous contents.
func (v *Validator) commitSync(h *syncHandler) {
	b := NewErrorBuilder()
	panicked := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				v.log.Error(fmt.Errorf("handler panic: %v", r),
					"sync validation handler failed", "group", string(h.group))
			}
		}()
		h.fn(b)
	}()
	if panicked {
		return
	}
	v.mu.Lock()
	v.setGroupLocked(h.group, b.build())
	v.mu.Unlock()
}

// stopTimerLocked cancels a pending commit. Caller holds v.mu.
func (h *syncHandler) stopTimerLocked(v *Validator) {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
		v.reaction--
	}
	h.timerGen++
}
