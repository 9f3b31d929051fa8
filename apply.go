package cachefront

import (
	"context"

	"go.uber.org/multierr"
)

// ApplyOptions describe one write-path application: the durable commit, the
// optional write-through reseed, and the change events to publish.
type ApplyOptions struct {
	// Write performs the durable-store commit. A failure here aborts the
	// whole application: no invalidation, no reseed, no events for a write
	// that did not commit.
	Write func(ctx context.Context) error

	// Seed optionally produces the primary key's fresh payload, applied
	// strictly after the dependency set is invalidated. Returning nil
	// skips reseeding.
	Seed func(ctx context.Context) (*SeedEntry, error)

	// Topic is the entity-scoped topic ("" publishes platform-wide only).
	Topic string

	// Event is the event type for both publishes. "" skips publication.
	Event string

	// Payload rides the entity-topic event.
	Payload any

	// PlatformPayload rides the platform-topic event; nil reuses Payload.
	PlatformPayload any
}

// Apply runs a mutation end to end in the order coherence requires:
// durable write, dependency-set invalidation, optional reseed, then event
// publication. Stages after the commit continue past individual failures
// and return them aggregated; an *ApplyError with Stage "write" means
// nothing beyond the failed commit ran.
func (e *Engine) Apply(ctx context.Context, mut Mutation, ref EntityRef, opts ApplyOptions) error {
	if opts.Write != nil {
		if err := opts.Write(ctx); err != nil {
			return &ApplyError{Mutation: mut, Stage: "write", Err: err}
		}
	}
	if !e.enabled {
		return nil
	}

	var errs error

	var seed *SeedEntry
	if opts.Seed != nil {
		s, err := opts.Seed(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			seed = s
		}
	}

	if seed != nil {
		if err := e.InvalidateAndReseed(ctx, mut, ref, *seed); err != nil {
			errs = multierr.Append(errs, err)
		}
	} else {
		if err := e.Invalidate(ctx, mut, ref); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if opts.Event != "" {
		if opts.Topic != "" && opts.Topic != PlatformTopic {
			if err := e.Publish(ctx, opts.Topic, opts.Event, opts.Payload); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		platformPayload := opts.PlatformPayload
		if platformPayload == nil {
			platformPayload = opts.Payload
		}
		if err := e.Publish(ctx, PlatformTopic, opts.Event, platformPayload); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
