// Package realtime maintains the mapping from topics to live subscriber
// connections and delivers published change events to them. The transport
// (websocket framing, auth, upgrades) stays outside: it hands the hub a
// Conn and takes the subscription away on disconnect.
package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/cachefront"
)

// Conn is the transport-owned write side of one subscriber connection.
// Send must be safe to call from the subscription's single writer goroutine.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// State is a subscription's lifecycle position.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// Subscription ties one connection to one or more topics. Delivery is FIFO
// per connection: a single writer goroutine drains a bounded queue in
// enqueue order.
type Subscription struct {
	ID     string
	conn   Conn
	topics []string

	hub   *Hub
	queue chan []byte
	done  chan struct{}
	state atomic.Int32
	once  sync.Once
}

func (s *Subscription) State() State { return State(s.state.Load()) }

// Topics returns the topics this subscription was registered under.
func (s *Subscription) Topics() []string {
	out := make([]string, len(s.topics))
	copy(out, s.topics)
	return out
}

// Close is the explicit-disconnect path: deregisters from every topic and
// closes the underlying connection. Idempotent.
func (s *Subscription) Close() { s.hub.drop(s, "disconnect") }

// Hub is the connection registry. A topic has zero or more subscriptions;
// a connection may subscribe to several topics at once (entity-scoped plus
// platform-scoped). No reconnection state is kept — a returning client gets
// a brand-new subscription and misses whatever was published in the gap.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}

	log      cachefront.Logger
	queueLen int
	wg       sync.WaitGroup
}

// NewHub creates a registry. queueLen bounds each subscriber's pending
// deliveries; a subscriber that falls that far behind is dropped so it
// cannot stall publication to others. <= 0 uses 64.
func NewHub(log cachefront.Logger, queueLen int) *Hub {
	if log == nil {
		log = cachefront.NopLogger{}
	}
	if queueLen <= 0 {
		queueLen = 64
	}
	return &Hub{
		topics:   make(map[string]map[*Subscription]struct{}),
		log:      log,
		queueLen: queueLen,
	}
}

// Subscribe registers conn under the given topics and starts its writer.
// The returned subscription is Open; events already in flight before
// registration are not replayed.
func (h *Hub) Subscribe(conn Conn, topics ...string) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		conn:   conn,
		topics: topics,
		hub:    h,
		queue:  make(chan []byte, h.queueLen),
		done:   make(chan struct{}),
	}
	sub.state.Store(int32(StateConnecting))

	h.mu.Lock()
	for _, t := range topics {
		set := h.topics[t]
		if set == nil {
			set = make(map[*Subscription]struct{})
			h.topics[t] = set
		}
		set[sub] = struct{}{}
	}
	h.mu.Unlock()

	sub.state.Store(int32(StateOpen))
	h.wg.Add(1)
	go h.writePump(sub)

	h.log.Debug("subscription opened", cachefront.Fields{"id": sub.ID, "topics": topics})
	return sub
}

// Broadcast enqueues payload for every current subscriber of topic.
// Delivery attempts are independent: a full queue or failed send drops that
// subscription without affecting the rest. Returns how many subscribers the
// event was queued for.
func (h *Hub) Broadcast(topic string, payload []byte) int {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.topics[topic]))
	for s := range h.topics[topic] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	queued := 0
	var stalled []*Subscription
	for _, s := range subs {
		select {
		case s.queue <- payload:
			queued++
		default:
			stalled = append(stalled, s)
		}
	}
	for _, s := range stalled {
		h.drop(s, "queue full")
	}
	return queued
}

// Subscribers reports the current subscriber count of a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	n := len(h.topics[topic])
	h.mu.RUnlock()
	return n
}

// Close drops every subscription and waits for their writers to stop.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Subscription
	for _, set := range h.topics {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		h.drop(s, "hub closed")
	}
	h.wg.Wait()
}

func (h *Hub) writePump(sub *Subscription) {
	defer h.wg.Done()
	for {
		select {
		case payload := <-sub.queue:
			if err := sub.conn.Send(payload); err != nil {
				// first failed delivery removes the subscription;
				// the failure never reaches the publisher
				h.log.Debug("delivery failed, dropping subscriber",
					cachefront.Fields{"id": sub.ID, "err": err})
				h.drop(sub, "send failed")
				return
			}
		case <-sub.done:
			return
		}
	}
}

// drop removes the subscription from every topic, closes its connection,
// and stops its writer. Idempotent; safe from any goroutine.
func (h *Hub) drop(sub *Subscription, reason string) {
	sub.once.Do(func() {
		h.mu.Lock()
		for _, t := range sub.topics {
			if set := h.topics[t]; set != nil {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.topics, t)
				}
			}
		}
		h.mu.Unlock()

		sub.state.Store(int32(StateClosed))
		close(sub.done)
		_ = sub.conn.Close()
		h.log.Debug("subscription closed", cachefront.Fields{"id": sub.ID, "reason": reason})
	})
}
