package cachefront

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// Mutation names a source-of-truth change. Each mutation maps to the fixed
// set of cache keys and prefixes it makes stale; the table below is the
// single place that mapping lives, so its completeness can be audited.
type Mutation string

const (
	MutationCourseCreated   Mutation = "course_created"
	MutationCourseUpdated   Mutation = "course_updated"
	MutationCourseReplaced  Mutation = "course_replaced"
	MutationLessonCompleted Mutation = "lesson_completed"
	MutationProgressReset   Mutation = "progress_reset"
	MutationUserEnrolled    Mutation = "user_enrolled"
)

// EntityRef parameterizes a mutation's dependency set. Fields a mutation
// does not use may stay empty.
type EntityRef struct {
	CourseID string
	UserID   string
}

type depSet struct {
	keys     []func(EntityRef) string
	prefixes []string
}

// Every derived view that reads from a mutated record must appear in the
// mutation's row, or it serves stale data until its own TTL lapses.
var dependencyTable = map[Mutation]depSet{
	MutationCourseCreated: {
		prefixes: []string{CoursesListPrefix, SearchPrefix},
	},
	MutationCourseUpdated: {
		keys: []func(EntityRef) string{
			func(r EntityRef) string { return CourseKey(r.CourseID) },
			func(r EntityRef) string { return AnalyticsCourseKey(r.CourseID) },
		},
		prefixes: []string{CoursesListPrefix, SearchPrefix},
	},
	MutationCourseReplaced: {
		keys: []func(EntityRef) string{
			func(r EntityRef) string { return CourseKey(r.CourseID) },
			func(r EntityRef) string { return AnalyticsCourseKey(r.CourseID) },
		},
		prefixes: []string{CoursesListPrefix, SearchPrefix},
	},
	MutationLessonCompleted: {
		keys: []func(EntityRef) string{
			func(r EntityRef) string { return ProgressKey(r.UserID, r.CourseID) },
			func(r EntityRef) string { return DashboardKey(r.UserID) },
			func(r EntityRef) string { return AnalyticsCourseKey(r.CourseID) },
			func(EntityRef) string { return AnalyticsPlatformOverviewKey() },
		},
	},
	MutationProgressReset: {
		keys: []func(EntityRef) string{
			func(r EntityRef) string { return ProgressKey(r.UserID, r.CourseID) },
			func(r EntityRef) string { return DashboardKey(r.UserID) },
			func(r EntityRef) string { return AnalyticsStudentPatternsKey(r.UserID) },
			func(r EntityRef) string { return AnalyticsCourseKey(r.CourseID) },
		},
	},
	MutationUserEnrolled: {
		keys: []func(EntityRef) string{
			func(r EntityRef) string { return DashboardKey(r.UserID) },
			func(r EntityRef) string { return AnalyticsCourseKey(r.CourseID) },
			func(EntityRef) string { return AnalyticsPlatformOverviewKey() },
			func(EntityRef) string { return PopularCoursesKey() },
		},
	},
}

// DependentKeys resolves a mutation to its concrete exact keys and swept
// prefixes. Exposed so callers and tests can audit the mapping.
func DependentKeys(mut Mutation, ref EntityRef) (keys []string, prefixes []string) {
	ds, ok := dependencyTable[mut]
	if !ok {
		return nil, nil
	}
	keys = make([]string, 0, len(ds.keys))
	for _, build := range ds.keys {
		keys = append(keys, build(ref))
	}
	return keys, ds.prefixes
}

// SeedEntry carries a pre-encoded write-through payload for the primary key
// of a mutation. TTL is the distributed-tier TTL; the local copy gets the
// engine's derived fraction of it.
type SeedEntry struct {
	Key     string
	Payload []byte
	TTL     time.Duration
}

// Invalidate removes every cache entry the mutation's dependency set names
// from both tiers. Exact keys drop from the local tier first, then the
// distributed tier, so no local copy survives its shared source. Prefix
// namespaces are swept batch-wise. Invalidating absent keys is a no-op;
// individual tier failures do not stop the sweep and come back aggregated
// as *InvalidateError.
func (e *Engine) Invalidate(ctx context.Context, mut Mutation, ref EntityRef) error {
	return e.invalidate(ctx, mut, ref, nil)
}

// InvalidateAndReseed additionally repopulates the primary entity key,
// strictly after every dependent entry has been invalidated, so no consumer
// can observe the refreshed primary alongside un-invalidated derived views.
func (e *Engine) InvalidateAndReseed(ctx context.Context, mut Mutation, ref EntityRef, seed SeedEntry) error {
	return e.invalidate(ctx, mut, ref, &seed)
}

func (e *Engine) invalidate(ctx context.Context, mut Mutation, ref EntityRef, seed *SeedEntry) error {
	if !e.enabled {
		return nil
	}

	keys, prefixes := DependentKeys(mut, ref)
	if len(keys) == 0 && len(prefixes) == 0 {
		e.log.Warn("mutation has no dependency entry", Fields{"mutation": mut})
		return nil
	}

	var errs error

	if len(keys) > 0 {
		for _, k := range keys {
			e.local.Delete(k)
		}
		if err := e.remote.Del(ctx, keys...); err != nil {
			e.hooks.RemoteDegraded("del", err)
			errs = multierr.Append(errs, err)
		}
	}

	for _, p := range prefixes {
		localRemoved := e.local.DeletePrefix(p)
		remoteRemoved := 0
		err := e.remote.ScanPrefix(ctx, p, e.scanBatch, func(batch []string) error {
			if err := e.remote.Del(ctx, batch...); err != nil {
				return err
			}
			remoteRemoved += len(batch)
			return nil
		})
		if err != nil {
			e.hooks.RemoteDegraded("scan", err)
			errs = multierr.Append(errs, err)
			remoteRemoved = -1
		}
		e.hooks.PrefixSwept(p, localRemoved, remoteRemoved)
	}

	if seed != nil {
		if err := e.seed(ctx, seed.Key, seed.Payload, seed.TTL); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	e.log.Debug("invalidated dependency set", Fields{
		"mutation": mut, "keys": len(keys), "prefixes": len(prefixes),
	})

	if errs != nil {
		return &InvalidateError{Mutation: mut, Errs: multierr.Errors(errs)}
	}
	return nil
}
