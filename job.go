package form

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// JobState is the explicit state of the async validation job.
type JobState int

const (
	// JobIdle means no run is pending or in flight.
	JobIdle JobState = iota
	// JobEnqueued means a run is armed behind the enqueue delay; further
	// requests restart the delay so only the last state is validated.
	JobEnqueued
	// JobRunning means a run is in flight.
	JobRunning
	// JobScheduled means a run finished with another request pending; the
	// follow-up run is armed behind the (longer) schedule delay, bounding
	// re-validation while still honoring the latest input.
	JobScheduled
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobEnqueued:
		return "enqueued"
	case JobRunning:
		return "running"
	case JobScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// validationJob drives the Idle/Enqueued/Running/Scheduled machine: one
// tagged state, one timer handle, one cancellation for the in-flight run.
// exec blocks for the duration of a run; the context it receives is
// cancelled when the run is superseded or the job is reset.
type validationJob struct {
	mu            sync.Mutex
	clk           clock.Clock
	enqueueDelay  time.Duration
	scheduleDelay time.Duration
	exec          func(ctx context.Context)

	state         JobState
	timer         *clock.Timer
	timerGen      uint64
	cancel        context.CancelFunc
	gen           uint64
	nextRequested bool
}

func newValidationJob(clk clock.Clock, enqueueDelay, scheduleDelay time.Duration, exec func(ctx context.Context)) *validationJob {
	return &validationJob{
		clk:           clk,
		enqueueDelay:  enqueueDelay,
		scheduleDelay: scheduleDelay,
		exec:          exec,
	}
}

// State returns the current job state.
func (j *validationJob) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Request asks for a (re-)validation. A forced request cancels whatever is
// pending or in flight and starts a run immediately; a normal request
// follows the debounce/throttle transitions.
func (j *validationJob) Request(force bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if force {
		j.stopTimerLocked()
		j.cancelRunLocked()
		j.nextRequested = false
		j.startRunLocked()
		return
	}

	switch j.state {
	case JobIdle:
		j.state = JobEnqueued
		j.armLocked(j.enqueueDelay)
	case JobEnqueued:
		j.stopTimerLocked()
		j.armLocked(j.enqueueDelay)
	case JobRunning:
		j.nextRequested = true
	case JobScheduled:
		j.stopTimerLocked()
		j.armLocked(j.scheduleDelay)
	}
}

// Reset cancels any pending timer and in-flight run and returns to Idle.
func (j *validationJob) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopTimerLocked()
	j.cancelRunLocked()
	j.nextRequested = false
	j.gen++ // orphan any in-flight completion
	j.state = JobIdle
}

// armLocked starts a fresh delay. The callback carries the arming
// generation, so a callback already dequeued when the timer is stopped or
// restarted fires against stale state and aborts.
func (j *validationJob) armLocked(d time.Duration) {
	j.timerGen++
	gen := j.timerGen
	j.timer = j.clk.AfterFunc(d, func() { j.fire(gen) })
}

func (j *validationJob) stopTimerLocked() {
	if j.timer != nil {
		j.timer.Stop()
		j.timer = nil
	}
	j.timerGen++
}

func (j *validationJob) cancelRunLocked() {
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
}

// fire moves an armed state into Running. Only the last-armed timer wins:
// a callback from a superseded arming is dropped.
func (j *validationJob) fire(gen uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if gen != j.timerGen {
		return
	}
	j.timer = nil
	if j.state == JobEnqueued || j.state == JobScheduled {
		j.startRunLocked()
	}
}

// startRunLocked launches a run. The completion transition applies only if
// the run has not been superseded by a forced run or a reset in the
// meantime.
func (j *validationJob) startRunLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.gen++
	gen := j.gen
	j.state = JobRunning

	go func() {
		j.exec(ctx)

		j.mu.Lock()
		defer j.mu.Unlock()
		if gen != j.gen {
			return
		}
		j.cancel = nil
		cancel()
		if j.nextRequested {
			j.nextRequested = false
			j.state = JobScheduled
			j.armLocked(j.scheduleDelay)
		} else {
			j.state = JobIdle
		}
	}()
}
