package cachefront

import (
	"errors"
	"fmt"
)

// ErrEngineClosed is returned by operations invoked after Close.
var ErrEngineClosed = errors.New("cachefront: engine closed")

// LoaderError wraps a loader failure during read-through. The failure is
// surfaced to every caller waiting on that key's fill episode and is never
// cached; the next read retries the loader.
type LoaderError struct {
	Key string
	Err error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Key, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// InvalidateError aggregates the partial failures of one invalidation
// fan-out. Sweeps continue past individual failures; what could be removed
// was removed.
type InvalidateError struct {
	Mutation Mutation
	Errs     []error
}

func (e *InvalidateError) Error() string {
	return fmt.Sprintf("invalidate %q: %d failure(s): %v", e.Mutation, len(e.Errs), errors.Join(e.Errs...))
}

func (e *InvalidateError) Unwrap() []error { return e.Errs }

// ApplyError reports which stage of a write-path application failed.
// Stage "write" means the durable commit itself failed and neither
// invalidation nor publication ran.
type ApplyError struct {
	Mutation Mutation
	Stage    string // "write", "invalidate", "publish"
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %q: %s: %v", e.Mutation, e.Stage, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
