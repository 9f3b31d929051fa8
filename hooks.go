package cachefront

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the engine calls them on
// hot paths. Wrap with hooks/async to push work off the caller.
type Hooks interface {
	// A cached payload failed to decode and was deleted from that tier.
	// tier ∈ {"local", "remote"}.
	SelfHeal(key, tier string)

	// The distributed tier returned an error and the read degraded to a
	// miss. op ∈ {"get", "set", "del", "scan", "publish"}.
	RemoteDegraded(op string, err error)

	// A loader invocation failed; the failure was propagated, not cached.
	LoaderFailed(key string, err error)

	// A prefix sweep finished. localRemoved/remoteRemoved count entries
	// dropped per tier; remoteRemoved is -1 when the remote sweep errored.
	PrefixSwept(prefix string, localRemoved, remoteRemoved int)

	// An encode failure kept a freshly loaded value out of the cache.
	EncodeFailed(key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)       {}
func (NopHooks) RemoteDegraded(string, error)  {}
func (NopHooks) LoaderFailed(string, error)    {}
func (NopHooks) PrefixSwept(string, int, int)  {}
func (NopHooks) EncodeFailed(string, error)    {}
