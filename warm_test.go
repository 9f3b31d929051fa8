package cachefront

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/cachefront/codec"
)

func TestWarmerRunsAllTasksDespiteFailures(t *testing.T) {
	w := NewWarmer(nil, 2)

	var ran atomic.Int32
	w.Add("popular", func(context.Context) error { ran.Add(1); return nil })
	w.Add("overview", func(context.Context) error { ran.Add(1); return errors.New("analytics timeout") })
	w.Add("listings", func(context.Context) error { ran.Add(1); return nil })

	err := w.Run(context.Background())
	if ran.Load() != 3 {
		t.Fatalf("tasks ran = %d, want 3 (failures must not cancel siblings)", ran.Load())
	}
	if err == nil || !strings.Contains(err.Error(), "warm overview") {
		t.Fatalf("aggregated error should name the failed task, got %v", err)
	}
}

func TestWarmerFillsTiers(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRemote()
	e, mem, _ := testEngine(t, fr, nil)
	v := NewView[course](e, codec.JSON[course]{}, time.Minute)

	w := NewWarmer(nil, 0)
	w.Add("popular_courses", func(ctx context.Context) error {
		return v.Seed(ctx, PopularCoursesKey(), course{ID: "top"})
	})
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, ok := mem.Get(PopularCoursesKey()); !ok {
		t.Fatalf("warm task did not fill the local tier")
	}
	if !fr.has(PopularCoursesKey()) {
		t.Fatalf("warm task did not fill the remote tier")
	}
}

func TestCollectorSnapshotIsolation(t *testing.T) {
	c := NewCollector(nil)
	c.Hit("course", TierLocal)
	c.Miss("search")

	s := c.Snapshot()
	s.Hits["course"] = 99

	if again := c.Snapshot(); again.Hits["course"] != 1 {
		t.Fatalf("snapshot mutation leaked into the collector: %v", again.Hits)
	}
}

func TestCollectorRatioZeroTraffic(t *testing.T) {
	if r := NewCollector(nil).Snapshot().HitRatio; r != 0 {
		t.Fatalf("hit ratio with no traffic = %v, want 0", r)
	}
}
