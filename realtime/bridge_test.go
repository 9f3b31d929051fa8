package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cachefront"
	"github.com/unkn0wn-root/cachefront/remote"
)

// streamRemote is a Remote whose only live part is Subscribe: each call
// returns a fresh channel the test feeds directly.
type streamRemote struct {
	mu      sync.Mutex
	streams []chan remote.Message
	subbed  chan struct{}
}

var _ remote.Remote = (*streamRemote)(nil)

func newStreamRemote() *streamRemote {
	return &streamRemote{subbed: make(chan struct{}, 8)}
}

func (s *streamRemote) Subscribe(context.Context, string) (<-chan remote.Message, error) {
	s.mu.Lock()
	ch := make(chan remote.Message, 16)
	s.streams = append(s.streams, ch)
	s.mu.Unlock()
	s.subbed <- struct{}{}
	return ch, nil
}

func (s *streamRemote) current() chan remote.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[len(s.streams)-1]
}

func (s *streamRemote) subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *streamRemote) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (s *streamRemote) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (s *streamRemote) Del(context.Context, ...string) error { return nil }
func (s *streamRemote) ScanPrefix(context.Context, string, int64, func([]string) error) error {
	return nil
}
func (s *streamRemote) Publish(context.Context, string, []byte) error { return nil }
func (s *streamRemote) Ping(context.Context) error                    { return nil }
func (s *streamRemote) Close(context.Context) error                   { return nil }

func waitSubscribed(t *testing.T, sr *streamRemote) {
	t.Helper()
	select {
	case <-sr.subbed:
	case <-time.After(time.Second):
		t.Fatalf("bridge never subscribed")
	}
}

func event(t *testing.T, topic, eventType string) []byte {
	t.Helper()
	b, err := json.Marshal(cachefront.ChangeEvent{
		Event:       eventType,
		Topic:       topic,
		Data:        map[string]any{"course_id": topic},
		GeneratedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return b
}

func TestBridgeFansOutToHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sr := newStreamRemote()
	h := NewHub(nil, 0)
	defer h.Close()
	c := newFakeConn()
	h.Subscribe(c, "c9")

	b := NewBridge(sr, h, nil, 10*time.Millisecond)
	done := make(chan struct{})
	go func() { b.Run(ctx); close(done) }()
	waitSubscribed(t, sr)

	payload := event(t, "c9", "lesson_completed")
	sr.current() <- remote.Message{Channel: cachefront.EventChannel("c9"), Payload: payload}

	got := recv(t, c)
	assert.JSONEq(t, string(payload), string(got))

	cancel()
	sr.mu.Lock()
	for _, ch := range sr.streams {
		close(ch)
	}
	sr.mu.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("bridge did not stop on ctx cancel")
	}
}

func TestBridgeDropsMalformedAndForeignMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sr := newStreamRemote()
	h := NewHub(nil, 0)
	defer h.Close()
	c := newFakeConn()
	h.Subscribe(c, "c9")

	b := NewBridge(sr, h, nil, 10*time.Millisecond)
	go b.Run(ctx)
	waitSubscribed(t, sr)

	stream := sr.current()
	// not an event channel at all
	stream <- remote.Message{Channel: "cache:course:1", Payload: []byte("{}")}
	// event channel, broken payload
	stream <- remote.Message{Channel: cachefront.EventChannel("c9"), Payload: []byte("{oops")}
	// then a valid one, proving the pump survived both
	payload := event(t, "c9", "course_updated")
	stream <- remote.Message{Channel: cachefront.EventChannel("c9"), Payload: payload}

	assert.JSONEq(t, string(payload), string(recv(t, c)))
	assert.Empty(t, c.delivered)
}

func TestBridgeResubscribesAfterStreamEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sr := newStreamRemote()
	h := NewHub(nil, 0)
	defer h.Close()
	c := newFakeConn()
	h.Subscribe(c, "c9")

	b := NewBridge(sr, h, nil, 5*time.Millisecond)
	go b.Run(ctx)
	waitSubscribed(t, sr)

	close(sr.current()) // simulate the pub/sub connection dropping
	waitSubscribed(t, sr)
	require.GreaterOrEqual(t, sr.subscriptions(), 2)

	payload := event(t, "c9", "course_updated")
	sr.current() <- remote.Message{Channel: cachefront.EventChannel("c9"), Payload: payload}
	assert.JSONEq(t, string(payload), string(recv(t, c)))
}
