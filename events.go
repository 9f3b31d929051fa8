package cachefront

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PlatformTopic is the cross-cutting topic entity-level changes also inform.
const PlatformTopic = "platform"

// eventChannelPrefix namespaces the distributed tier's pub/sub channels so
// cache traffic and event traffic cannot collide.
const eventChannelPrefix = "events:"

// ChangeEvent is the wire-visible change notification. Immutable once
// published; delivered at-most-once per subscriber attempt, no replay.
type ChangeEvent struct {
	Event       string    `json:"event"`
	Topic       string    `json:"topic"`
	Data        any       `json:"data"`
	GeneratedAt time.Time `json:"generated_at"`
}

// EventChannel maps a topic to its pub/sub channel.
func EventChannel(topic string) string { return eventChannelPrefix + topic }

// EventChannelPattern subscribes to every topic's channel.
func EventChannelPattern() string { return eventChannelPrefix + "*" }

// TopicFromChannel recovers the topic from a channel name; ok is false for
// channels outside the event namespace.
func TopicFromChannel(channel string) (topic string, ok bool) {
	if !strings.HasPrefix(channel, eventChannelPrefix) {
		return "", false
	}
	return channel[len(eventChannelPrefix):], true
}

// Publish builds a ChangeEvent and hands it to the distributed tier's
// pub/sub. Call only after the durable write and its invalidation have
// completed, so no subscriber learns of a change a fresh read cannot see.
// Fan-out to the platform topic is a second, independent Publish call.
func (e *Engine) Publish(ctx context.Context, topic, eventType string, payload any) error {
	if !e.enabled {
		return nil
	}
	ev := ChangeEvent{
		Event:       eventType,
		Topic:       topic,
		Data:        payload,
		GeneratedAt: e.now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event %q: %w", eventType, err)
	}
	if err := e.remote.Publish(ctx, EventChannel(topic), b); err != nil {
		e.hooks.RemoteDegraded("publish", err)
		return err
	}
	e.log.Debug("published change event", Fields{"topic": topic, "event": eventType})
	return nil
}
