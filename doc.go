// Package form is the reactive change-detection and validation core for
// form-state management over a live, mutable object graph.
//
// # Overview
//
// The package organizes around four concepts:
//
//  1. KeyPath: dot-joined addresses of fields, possibly through nested
//     containers ("items.0.name"), with prefix-indexed lookup via
//     KeyPathMultiMap.
//  2. Registry: explicit per-type member declarations (Watched, Nested)
//     recorded at package initialization, replacing runtime reflection.
//  3. Watcher: a per-object change detector folding nested children into a
//     monotonic change tick and changed-path set.
//  4. Validator: a per-object validation engine running debounced sync
//     handlers and a cancellable, throttled async job pipeline, aggregating
//     errors under KeyPath addressing.
//
// # Declaring a type
//
// Members are declared once, at type-definition time:
//
//	type Signup struct {
//	    Name    *cell.Signal[string]
//	    Email   *cell.Signal[string]
//	    Address *Address
//	}
//
//	func init() {
//	    form.Register[Signup](
//	        form.Watched[Signup]("name", func(s *Signup) form.Observable { return s.Name }),
//	        form.Watched[Signup]("email", func(s *Signup) form.Observable { return s.Email }),
//	        form.Nested[Signup]("address", func(s *Signup) any { return s.Address }),
//	    )
//	}
//
// # Watching
//
// Watchers are identity-keyed and created lazily:
//
//	w, _ := form.WatcherFor(signup)
//	signup.Name.Set("Ada")
//	w.Changed()         // true
//	w.ChangedKeys()     // ["name"]
//	w.ChangedKeyPaths() // ["name"], plus nested paths like "address.city"
//	w.Reset()           // clears this object and everything nested
//
// # Validating
//
// Validators compose three pipelines over one group-keyed error store:
//
//	v, _ := form.ValidatorFor(signup)
//
//	// Manual entry, the primitive everything reduces to.
//	v.UpdateErrors("profile", func(b *form.ErrorBuilder) {
//	    b.Invalidate("name", "required")
//	})
//
//	// Debounced reactive handler.
//	v.AddSyncHandler(func(b *form.ErrorBuilder) {
//	    if signup.Name.Get() == "" {
//	        b.Invalidate("name", "required")
//	    }
//	})
//
//	// Cancellable async handler, driven through Request.
//	v.AddAsyncHandler(func(ctx context.Context, b *form.ErrorBuilder) error {
//	    taken, err := checkEmail(ctx, signup.Email.Get())
//	    if err != nil {
//	        return err
//	    }
//	    if taken {
//	        b.Invalidate("email", "already registered")
//	    }
//	    return nil
//	})
//	v.Request()
//
// The async job moves through Idle, Enqueued, Running and Scheduled: the
// enqueue delay absorbs edit bursts before the first run, and the schedule
// delay throttles re-validation requested while a run is in flight. A
// forced request (WithForce) cancels the in-flight run's context and starts
// immediately.
//
// # Error queries
//
//	v.IsValid()
//	v.GetErrorMessages("email", false)
//	v.HasErrors("address", true) // this field or anything nested under it
//	v.InvalidKeyPaths()          // nested errors composed under their entry path
//
// # Failure model
//
// Declaration mistakes panic at registration; invalid targets return
// ErrInvalidTarget. Exceptions inside handlers are caught at the invocation
// boundary, logged through the configured logr.Logger and never crash the
// host. Validation findings themselves are state, not errors.
package form
