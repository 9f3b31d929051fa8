package cachefront

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/cachefront/local"
	"github.com/unkn0wn-root/cachefront/remote"
)

// Options tune the engine. Only Remote is required; others have sensible
// defaults.
type Options struct {
	// Required
	Remote remote.Remote

	// Local is the process-local tier. nil => local.NewMemory with
	// LocalSweepInterval.
	Local local.Store

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// DefaultTTL applies when a read or seed passes ttl <= 0. 0 => 5m.
	DefaultTTL time.Duration

	// LocalTTLDivisor bounds local-vs-distributed staleness: local entries
	// expire at ttl/divisor. 0 => 2. The ratio is policy, not protocol;
	// correctness holds for any value >= 1.
	LocalTTLDivisor int

	// LocalSweepInterval drives the default Memory store's expiry sweep.
	// 0 => 1m. Ignored when Local is set.
	LocalSweepInterval time.Duration

	// ScanBatch bounds each distributed-tier SCAN page during prefix
	// sweeps. 0 => 200.
	ScanBatch int64

	// Metrics optionally registers hit/miss counters.
	Metrics prometheus.Registerer

	// CloseRemote hands ownership of the remote client to Engine.Close.
	CloseRemote bool

	// Disabled bypasses both tiers: every read goes straight to its
	// loader, invalidations and publishes become no-ops.
	Disabled bool
}

// New constructs an engine. Construct once at process start and pass the
// handle around; there are no package-level singletons.
func New(opts Options) (*Engine, error) {
	if opts.Remote == nil && !opts.Disabled {
		return nil, fmt.Errorf("cachefront: remote tier is required")
	}

	e := &Engine{
		remote:      opts.Remote,
		log:         coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:       coalesce[Hooks](opts.Hooks, NopHooks{}),
		defaultTTL:  coalesce[time.Duration](opts.DefaultTTL, 5*time.Minute),
		ttlDivisor:  coalesce[int](opts.LocalTTLDivisor, 2),
		scanBatch:   coalesce[int64](opts.ScanBatch, 200),
		closeRemote: opts.CloseRemote,
		enabled:     !opts.Disabled,
		now:         time.Now,
		locks:       local.NewKeyLocks(),
	}
	e.stats = NewCollector(opts.Metrics)

	if opts.Local != nil {
		e.local = opts.Local
	} else {
		e.local = local.NewMemory(coalesce[time.Duration](opts.LocalSweepInterval, time.Minute))
		e.ownLocal = true
	}
	return e, nil
}
