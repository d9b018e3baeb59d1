package form

import (
	"testing"
	"time"
)

// eventually polls cond until it holds or the timeout passes. Background
// goroutines (run completions) finish in real time even when timers are
// driven by a mock clock.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
