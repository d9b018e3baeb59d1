package form

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Submission is the three-phase commit surrounding a form: before-hooks may
// veto, run-hooks perform the actual commit concurrently, after-hooks
// observe the outcome. Execution is gated by the target's Validator and
// clears the target's Watcher on success.
type Submission struct {
	mu        sync.Mutex
	validator *Validator
	watcher   *Watcher
	running   bool

	before []func(ctx context.Context) error
	run    []func(ctx context.Context) error
	after  []func(succeeded bool)
}

// NewSubmission binds a Submission to the target's Validator and Watcher.
func NewSubmission(target any) (*Submission, error) {
	v, err := ValidatorFor(target)
	if err != nil {
		return nil, err
	}
	w, err := WatcherFor(target)
	if err != nil {
		return nil, err
	}
	return &Submission{validator: v, watcher: w}, nil
}

// OnBeforeSubmit registers a veto hook, run sequentially before the commit.
func (s *Submission) OnBeforeSubmit(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = append(s.before, fn)
}

// OnSubmit registers a commit hook. All commit hooks run concurrently.
func (s *Submission) OnSubmit(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = append(s.run, fn)
}

// OnAfterSubmit registers an outcome observer.
func (s *Submission) OnAfterSubmit(fn func(succeeded bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after = append(s.after, fn)
}

// IsRunning reports whether a submission is in flight.
func (s *Submission) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Exec runs the three phases. It returns ErrSubmissionRunning while a
// previous submission is in flight, and (false, nil) when validation state
// or a before-hook vetoes the commit. A successful commit resets the
// Watcher, so the form reads as pristine again.
func (s *Submission) Exec(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false, ErrSubmissionRunning
	}
	s.running = true
	var before, run []func(context.Context) error
	var after []func(bool)
	before = append(before, s.before...)
	run = append(run, s.run...)
	after = append(after, s.after...)
	s.mu.Unlock()

	succeeded := false
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		for _, fn := range after {
			fn(succeeded)
		}
		if succeeded {
			s.watcher.Reset()
		}
	}()

	if !s.validator.IsValid() {
		return false, nil
	}

	for _, fn := range before {
		if err := fn(ctx); err != nil {
			return false, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range run {
		fn := fn
		g.Go(func() error {
			return fn(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	succeeded = true
	return true, nil
}
