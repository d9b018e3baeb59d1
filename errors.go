package form

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget is returned when a Watcher or Validator is requested for
// a value that is not a non-nil pointer.
var ErrInvalidTarget = errors.New("target must be a non-nil pointer")

// ErrSubmissionRunning is returned by Submission.Exec while a previous
// submission has not finished.
var ErrSubmissionRunning = errors.New("submission already running")

// ConfigError reports a broken member declaration. Registration mistakes are
// programmer errors, so it is raised synchronously at registration time.
type ConfigError struct {
	Type   string
	Member string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("form: invalid declaration %s.%s: %s", e.Type, e.Member, e.Reason)
	}
	return fmt.Sprintf("form: invalid declaration for %s: %s", e.Type, e.Reason)
}
