package form

// Errors returns this Validator's own errors, groups in registration order,
// findings in recording order. Nested Validators' errors are not included.
func (v *Validator) Errors() []*ValidationError {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*ValidationError
	for _, group := range v.groupOrder {
		out = append(out, v.groups[group]...)
	}
	return out
}

// FindErrors returns the errors recorded for the field at path, descending
// into nested Validators when the path crosses an entry boundary. With deep
// set, errors anywhere under path are included as well.
func (v *Validator) FindErrors(path KeyPath, deep bool) []*ValidationError {
	return v.findErrors(path, deep, make(map[*Validator]struct{}))
}

func (v *Validator) findErrors(path KeyPath, deep bool, seen map[*Validator]struct{}) []*ValidationError {
	if _, dup := seen[v]; dup {
		return nil
	}
	seen[v] = struct{}{}
	v.mu.Lock()
	out := v.byPath.Get(path, deep)
	v.mu.Unlock()

	v.forEachNestedValidator(func(owner KeyPath, child *Validator) bool {
		switch {
		case path == owner:
			out = append(out, child.findErrors(Self, deep, seen)...)
		case path.HasPrefix(owner):
			out = append(out, child.findErrors(path.TrimPrefix(owner), deep, seen)...)
		case deep && owner.HasPrefix(path):
			out = append(out, child.findErrors(Self, true, seen)...)
		}
		return true
	})
	return out
}

// GetErrorMessages returns the messages of FindErrors(path, deep).
func (v *Validator) GetErrorMessages(path KeyPath, deep bool) []string {
	errs := v.FindErrors(path, deep)
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

// HasErrors reports whether FindErrors(path, deep) would return anything.
func (v *Validator) HasErrors(path KeyPath, deep bool) bool {
	return v.hasErrors(path, deep, make(map[*Validator]struct{}))
}

func (v *Validator) hasErrors(path KeyPath, deep bool, seen map[*Validator]struct{}) bool {
	if _, dup := seen[v]; dup {
		return false
	}
	seen[v] = struct{}{}
	v.mu.Lock()
	has := v.byPath.Has(path, deep)
	v.mu.Unlock()
	if has {
		return true
	}
	found := false
	v.forEachNestedValidator(func(owner KeyPath, child *Validator) bool {
		switch {
		case path == owner:
			found = child.hasErrors(Self, deep, seen)
		case path.HasPrefix(owner):
			found = child.hasErrors(path.TrimPrefix(owner), deep, seen)
		case deep && owner.HasPrefix(path):
			found = child.hasErrors(Self, true, seen)
		}
		return !found
	})
	return found
}

// FirstErrorMessage returns the first error in stable order: own groups in
// registration order, then nested Validators in enumeration order.
func (v *Validator) FirstErrorMessage() (string, bool) {
	return v.firstErrorMessage(make(map[*Validator]struct{}))
}

func (v *Validator) firstErrorMessage(seen map[*Validator]struct{}) (string, bool) {
	if _, dup := seen[v]; dup {
		return "", false
	}
	seen[v] = struct{}{}
	v.mu.Lock()
	for _, group := range v.groupOrder {
		if errs := v.groups[group]; len(errs) > 0 {
			v.mu.Unlock()
			return errs[0].Message, true
		}
	}
	v.mu.Unlock()

	var msg string
	var found bool
	v.forEachNestedValidator(func(_ KeyPath, child *Validator) bool {
		msg, found = child.firstErrorMessage(seen)
		return !found
	})
	return msg, found
}

// IsValid reports whether neither this Validator nor any nested Validator
// holds errors.
func (v *Validator) IsValid() bool {
	return v.isValid(make(map[*Validator]struct{}))
}

func (v *Validator) isValid(seen map[*Validator]struct{}) bool {
	if _, dup := seen[v]; dup {
		return true
	}
	seen[v] = struct{}{}
	v.mu.Lock()
	own := v.byPath.Len() > 0
	v.mu.Unlock()
	if own {
		return false
	}
	valid := true
	v.forEachNestedValidator(func(_ KeyPath, child *Validator) bool {
		if !child.isValid(seen) {
			valid = false
			return false
		}
		return true
	})
	return valid
}

// InvalidKeys returns the distinct first segments of this Validator's own
// error paths, in first-recorded order. Nested errors do not count here.
func (v *Validator) InvalidKeys() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, group := range v.groupOrder {
		for _, e := range v.groups[group] {
			if _, dup := seen[e.Key]; dup {
				continue
			}
			seen[e.Key] = struct{}{}
			out = append(out, e.Key)
		}
	}
	return out
}

// InvalidKeyCount returns len(InvalidKeys()).
func (v *Validator) InvalidKeyCount() int {
	return len(v.InvalidKeys())
}

// InvalidKeyPaths returns every invalid path of this Validator and, joined
// under their entry path, of every nested Validator, sorted.
func (v *Validator) InvalidKeyPaths() []KeyPath {
	seenPaths := make(map[KeyPath]struct{})
	var out []KeyPath
	add := func(p KeyPath) {
		if _, dup := seenPaths[p]; !dup {
			seenPaths[p] = struct{}{}
			out = append(out, p)
		}
	}
	v.collectInvalidKeyPaths(Self, add, make(map[*Validator]struct{}))
	return sortKeyPaths(out)
}

func (v *Validator) collectInvalidKeyPaths(prefix KeyPath, add func(KeyPath), seen map[*Validator]struct{}) {
	if _, dup := seen[v]; dup {
		return
	}
	seen[v] = struct{}{}
	v.mu.Lock()
	v.byPath.Iterate(func(p KeyPath, _ *ValidationError) bool {
		add(Path(prefix, p))
		return true
	})
	v.mu.Unlock()

	v.forEachNestedValidator(func(owner KeyPath, child *Validator) bool {
		child.collectInvalidKeyPaths(Path(prefix, owner), add, seen)
		return true
	})
}

// InvalidKeyPathCount returns len(InvalidKeyPaths()).
func (v *Validator) InvalidKeyPathCount() int {
	return len(v.InvalidKeyPaths())
}

// JobState returns the async job's current state.
func (v *Validator) JobState() JobState {
	return v.job.State()
}

// ReactionState returns the number of sync handler commits currently
// pending behind their debounce timers.
func (v *Validator) ReactionState() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reaction
}

// IsValidating reports whether any pipeline still has work in flight.
// Sustained true is a backpressure signal, not an error.
func (v *Validator) IsValidating() bool {
	if v.job.State() != JobIdle {
		return true
	}
	return v.ReactionState() > 0
}

// forEachNestedValidator visits the Validator of every nested entry whose
// value is a registered object, creating child Validators lazily.
func (v *Validator) forEachNestedValidator(visit func(owner KeyPath, child *Validator) bool) {
	visitNested(v.target, v.info, func(e NestedEntry) bool {
		if !isRegistered(e.Value) {
			return true
		}
		child, err := ValidatorFor(e.Value)
		if err != nil {
			return true
		}
		return visit(e.KeyPath, child)
	})
}
