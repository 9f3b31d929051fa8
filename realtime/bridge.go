package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/unkn0wn-root/cachefront"
	"github.com/unkn0wn-root/cachefront/remote"
)

const defaultRetry = 5 * time.Second

// Bridge is the long-lived task that connects the distributed tier's
// pub/sub to the local hub: it subscribes to every event channel, validates
// incoming payloads, and fans each one out to the topic's subscribers.
// Every process that hosts subscribers runs one bridge.
type Bridge struct {
	remote remote.Remote
	hub    *Hub
	log    cachefront.Logger
	retry  time.Duration
}

// NewBridge wires a hub to the remote tier. retry is the pause before
// re-subscribing after the stream drops; <= 0 uses 5s.
func NewBridge(r remote.Remote, hub *Hub, log cachefront.Logger, retry time.Duration) *Bridge {
	if log == nil {
		log = cachefront.NopLogger{}
	}
	if retry <= 0 {
		retry = defaultRetry
	}
	return &Bridge{remote: r, hub: hub, log: log, retry: retry}
}

// Run blocks until ctx is done, re-subscribing with a delay whenever the
// underlying stream fails. Subscribers connected during a gap simply miss
// those events; there is no replay.
func (b *Bridge) Run(ctx context.Context) {
	for {
		stream, err := b.remote.Subscribe(ctx, cachefront.EventChannelPattern())
		if err != nil {
			b.log.Warn("event subscribe failed", cachefront.Fields{"err": err})
			if !sleepCtx(ctx, b.retry) {
				return
			}
			continue
		}
		b.pump(stream)
		if ctx.Err() != nil {
			return
		}
		b.log.Warn("event stream ended, resubscribing", cachefront.Fields{"in": b.retry})
		if !sleepCtx(ctx, b.retry) {
			return
		}
	}
}

func (b *Bridge) pump(stream <-chan remote.Message) {
	for msg := range stream {
		topic, ok := cachefront.TopicFromChannel(msg.Channel)
		if !ok {
			continue
		}
		var ev cachefront.ChangeEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			b.log.Warn("malformed change event dropped",
				cachefront.Fields{"channel": msg.Channel, "err": err})
			continue
		}
		n := b.hub.Broadcast(topic, msg.Payload)
		b.log.Debug("event fanned out",
			cachefront.Fields{"topic": topic, "event": ev.Event, "subscribers": n})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
