package form

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/benbjohnson/clock"
)

// jobHarness drives a validationJob with a mock clock and a controllable
// handler.
type jobHarness struct {
	mu      sync.Mutex
	clk     *clock.Mock
	job     *validationJob
	runs    int
	block   chan struct{} // first run waits on it when non-nil
	lastCtx context.Context
}

func newJobHarness(enqueue, schedule time.Duration) *jobHarness {
	h := &jobHarness{clk: clock.NewMock()}
	h.job = newValidationJob(h.clk, enqueue, schedule, func(ctx context.Context) {
		h.mu.Lock()
		h.runs++
		first := h.runs == 1
		block := h.block
		h.lastCtx = ctx
		h.mu.Unlock()
		if first && block != nil {
			<-block
		}
	})
	return h
}

func (h *jobHarness) runCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs
}

func TestJobSchedulingScenario(t *testing.T) {
	h := newJobHarness(90*time.Millisecond, 190*time.Millisecond)
	h.block = make(chan struct{})

	h.job.Request(false)
	assert.Equal(t, JobEnqueued, h.job.State())

	// A second request before the enqueue delay fires restarts the timer.
	h.clk.Add(50 * time.Millisecond)
	h.job.Request(false)
	assert.Equal(t, JobEnqueued, h.job.State())

	h.clk.Add(89 * time.Millisecond)
	assert.Equal(t, JobEnqueued, h.job.State())

	// Timer fires, the run starts and blocks.
	h.clk.Add(1 * time.Millisecond)
	eventually(t, time.Second, func() bool { return h.job.State() == JobRunning })
	assert.Equal(t, 1, h.runCount())

	// Requesting while running only flags a follow-up.
	h.job.Request(false)
	assert.Equal(t, JobRunning, h.job.State())
	assert.Equal(t, 1, h.runCount())

	// Completion lands in Scheduled, not Idle.
	close(h.block)
	eventually(t, time.Second, func() bool { return h.job.State() == JobScheduled })

	// The schedule delay elapses, the follow-up runs, then Idle.
	h.clk.Add(190 * time.Millisecond)
	eventually(t, time.Second, func() bool { return h.job.State() == JobIdle })
	assert.Equal(t, 2, h.runCount())
}

func TestJobForceSkipsEnqueuedRun(t *testing.T) {
	h := newJobHarness(90*time.Millisecond, 190*time.Millisecond)

	h.job.Request(false)
	assert.Equal(t, JobEnqueued, h.job.State())

	h.job.Request(true)
	eventually(t, time.Second, func() bool { return h.job.State() == JobIdle })
	assert.Equal(t, 1, h.runCount())

	// The cancelled enqueue timer must not fire a second run.
	h.clk.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.runCount())
	assert.Equal(t, JobIdle, h.job.State())
}

func TestJobForceCancelsInFlightRun(t *testing.T) {
	h := newJobHarness(90*time.Millisecond, 190*time.Millisecond)
	h.block = make(chan struct{})

	h.job.Request(true)
	eventually(t, time.Second, func() bool { return h.runCount() == 1 })
	h.mu.Lock()
	firstCtx := h.lastCtx
	h.mu.Unlock()

	h.job.Request(true)
	eventually(t, time.Second, func() bool { return h.runCount() == 2 })

	// The superseded run's signal fired before the second run started.
	assert.IsError(t, firstCtx.Err(), context.Canceled)

	close(h.block)
	eventually(t, time.Second, func() bool { return h.job.State() == JobIdle })
}

func TestJobScheduledRequestRestartsTimer(t *testing.T) {
	h := newJobHarness(90*time.Millisecond, 190*time.Millisecond)
	h.block = make(chan struct{})

	h.job.Request(true)
	h.job.Request(false) // flag follow-up
	close(h.block)
	eventually(t, time.Second, func() bool { return h.job.State() == JobScheduled })

	// A request in Scheduled restarts the schedule delay.
	h.clk.Add(100 * time.Millisecond)
	h.job.Request(false)
	h.clk.Add(189 * time.Millisecond)
	assert.Equal(t, JobScheduled, h.job.State())

	h.clk.Add(1 * time.Millisecond)
	eventually(t, time.Second, func() bool { return h.job.State() == JobIdle })
	assert.Equal(t, 2, h.runCount())
}

func TestJobStaleTimerCallbackIgnored(t *testing.T) {
	h := newJobHarness(90*time.Millisecond, 190*time.Millisecond)

	h.job.Request(false)
	h.job.mu.Lock()
	stale := h.job.timerGen
	h.job.mu.Unlock()

	// A second request restarts the enqueue delay. A callback already
	// dequeued from the first timer must not start the run early.
	h.clk.Add(50 * time.Millisecond)
	h.job.Request(false)
	h.job.fire(stale)
	assert.Equal(t, JobEnqueued, h.job.State())
	assert.Equal(t, 0, h.runCount())

	// The restarted delay still fires normally.
	h.clk.Add(90 * time.Millisecond)
	eventually(t, time.Second, func() bool { return h.job.State() == JobIdle })
	assert.Equal(t, 1, h.runCount())
}

func TestJobReset(t *testing.T) {
	h := newJobHarness(90*time.Millisecond, 190*time.Millisecond)
	h.block = make(chan struct{})

	h.job.Request(true)
	eventually(t, time.Second, func() bool { return h.runCount() == 1 })
	h.mu.Lock()
	firstCtx := h.lastCtx
	h.mu.Unlock()

	h.job.Reset()
	assert.Equal(t, JobIdle, h.job.State())
	assert.IsError(t, firstCtx.Err(), context.Canceled)

	// The orphaned run's completion must not change state.
	close(h.block)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, JobIdle, h.job.State())
}
