package form

import (
	"fmt"
	"sync"
)

// ValidationError is one deliberately-produced validation finding. It is
// queryable state, never thrown.
type ValidationError struct {
	// Key is the first segment of KeyPath, the directly affected member.
	Key string
	// KeyPath addresses the invalid field.
	KeyPath KeyPath
	// Message is the human-readable finding.
	Message string
	// Cause optionally carries the underlying error.
	Cause error
}

func (e *ValidationError) Error() string {
	if e.KeyPath == Self {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.KeyPath, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder accumulates the findings of one validation run. Handlers of
// the same run may write to it concurrently.
type ErrorBuilder struct {
	mu   sync.Mutex
	errs []*ValidationError
}

// NewErrorBuilder creates an empty builder.
func NewErrorBuilder() *ErrorBuilder {
	return &ErrorBuilder{}
}

// Invalidate records a finding for the field at path.
func (b *ErrorBuilder) Invalidate(path KeyPath, message string) {
	b.InvalidateWith(path, message, nil)
}

// InvalidateWith records a finding carrying an underlying cause.
func (b *ErrorBuilder) InvalidateWith(path KeyPath, message string, cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, &ValidationError{
		Key:     path.FirstSegment(),
		KeyPath: path,
		Message: message,
		Cause:   cause,
	})
}

// InvalidateSelf records a finding against the object itself.
func (b *ErrorBuilder) InvalidateSelf(message string) {
	b.Invalidate(Self, message)
}

// build returns the accumulated findings in recording order.
func (b *ErrorBuilder) build() []*ValidationError {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*ValidationError, len(b.errs))
	copy(out, b.errs)
	return out
}
