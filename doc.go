// Package cachefront fronts a slow, durable data store with a two-tier
// cache and keeps concurrent readers, writers, and live subscribers coherent
// under invalidation.
//
// Components:
//   - local.Store: process-local byte store with per-entry expiry, prefix
//     sweeps, and the per-key locks that serialize miss fills.
//   - remote.Remote: the shared distributed tier (Redis in production) with
//     get/set/delete/scan and publish/subscribe.
//   - View[V]: typed read-through — local tier, single-flight lock with a
//     mandatory local re-check, distributed tier, then the loader. The
//     loader runs at most once per miss episode; its failures propagate and
//     are never cached.
//   - Invalidate: resolves a Mutation through a static dependency table to
//     exact keys plus prefix sweeps, removes them local-first from both
//     tiers, and optionally reseeds the primary key afterwards.
//   - Publish / realtime: change events fan out over the distributed
//     tier's pub/sub; realtime.Hub keeps topic subscriptions and drops
//     connections that fail or stall delivery.
//
// TTL policy: local copies expire at ttl/LocalTTLDivisor (default half) so
// a local entry can never outlive the shared entry it was filled from by
// more than that window. The divisor is tunable; coherence does not depend
// on the specific ratio.
//
// Degradation: an unreachable distributed tier turns reads into loader
// calls; writes still commit durably and readers may see stale data until
// TTL expiry, a documented bound rather than a silent violation. Corrupt
// cached payloads are deleted on sight and refetched.
package cachefront
