package cachefront

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Tier names the cache layer a hit was served from.
type Tier string

const (
	TierLocal  Tier = "local"
	TierRemote Tier = "remote"
)

// Stats is a point-in-time snapshot of hit/miss counters. Operational
// visibility only; nothing in the coherence protocol reads these.
type Stats struct {
	Hits       map[string]int64 `json:"hits"`   // by namespace, both tiers
	Misses     map[string]int64 `json:"misses"` // by namespace
	LocalHits  int64            `json:"local_hits"`
	RemoteHits int64            `json:"remote_hits"`
	HitRatio   float64          `json:"hit_ratio"`
}

// Collector counts hits and misses per namespace and tier. Safe for
// concurrent use. Optionally mirrors counts into prometheus counters.
type Collector struct {
	mu     sync.Mutex
	hits   map[Tier]map[string]int64
	misses map[string]int64

	promHits   *prometheus.CounterVec
	promMisses *prometheus.CounterVec
}

// NewCollector builds a collector. reg may be nil; when set, counters
// register as cachefront_hits_total{namespace,tier} and
// cachefront_misses_total{namespace}.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		hits: map[Tier]map[string]int64{
			TierLocal:  {},
			TierRemote: {},
		},
		misses: make(map[string]int64),
	}
	if reg != nil {
		c.promHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachefront",
			Name:      "hits_total",
			Help:      "Cache hits by key namespace and tier.",
		}, []string{"namespace", "tier"})
		c.promMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachefront",
			Name:      "misses_total",
			Help:      "Cache misses by key namespace.",
		}, []string{"namespace"})
		// tolerate double registration when several engines share a registry
		if err := reg.Register(c.promHits); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				c.promHits = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
		if err := reg.Register(c.promMisses); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				c.promMisses = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return c
}

func (c *Collector) Hit(namespace string, tier Tier) {
	c.mu.Lock()
	byNs := c.hits[tier]
	if byNs == nil {
		byNs = make(map[string]int64)
		c.hits[tier] = byNs
	}
	byNs[namespace]++
	c.mu.Unlock()
	if c.promHits != nil {
		c.promHits.WithLabelValues(namespace, string(tier)).Inc()
	}
}

func (c *Collector) Miss(namespace string) {
	c.mu.Lock()
	c.misses[namespace]++
	c.mu.Unlock()
	if c.promMisses != nil {
		c.promMisses.WithLabelValues(namespace).Inc()
	}
}

func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:   make(map[string]int64),
		Misses: make(map[string]int64, len(c.misses)),
	}
	for tier, byNs := range c.hits {
		for ns, n := range byNs {
			s.Hits[ns] += n
			switch tier {
			case TierLocal:
				s.LocalHits += n
			case TierRemote:
				s.RemoteHits += n
			}
		}
	}
	var hits, misses int64
	for _, n := range s.Hits {
		hits += n
	}
	for ns, n := range c.misses {
		s.Misses[ns] = n
		misses += n
	}
	if hits+misses > 0 {
		s.HitRatio = float64(hits) / float64(hits+misses)
	}
	return s
}
