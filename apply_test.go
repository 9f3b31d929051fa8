package cachefront

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/cachefront/codec"
)

func TestApplyRunsStagesInOrder(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRemote()
	e, _, _ := testEngine(t, fr, nil)
	v := NewView[course](e, codec.JSON[course]{}, time.Minute)

	key := ProgressKey("u1", "c9")
	fillKey(t, v, key)

	var wrote bool
	err := e.Apply(ctx, MutationLessonCompleted, EntityRef{UserID: "u1", CourseID: "c9"}, ApplyOptions{
		Write: func(context.Context) error { wrote = true; return nil },
		Topic: "c9",
		Event: "lesson_completed",
		Payload: map[string]any{
			"course_id": "c9", "user_id": "u1", "lesson_id": "l3",
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !wrote {
		t.Fatalf("durable write never ran")
	}

	// exactly one event on the entity topic and one on the platform topic
	if got := fr.published(EventChannel("c9")); len(got) != 1 {
		t.Fatalf("entity topic events = %d, want 1", len(got))
	}
	if got := fr.published(EventChannel(PlatformTopic)); len(got) != 1 {
		t.Fatalf("platform topic events = %d, want 1", len(got))
	}

	// publication happens after the dependency set is gone
	ops := fr.opLog()
	firstPublish, lastDel := -1, -1
	for i, op := range ops {
		if strings.HasPrefix(op, "publish:") && firstPublish == -1 {
			firstPublish = i
		}
		if strings.HasPrefix(op, "del:") {
			lastDel = i
		}
	}
	if firstPublish == -1 || lastDel == -1 {
		t.Fatalf("op log missing publish/del: %v", ops)
	}
	if firstPublish < lastDel {
		t.Fatalf("event published before invalidation completed: %v", ops)
	}
}

func TestApplyWriteFailureAbortsEverything(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRemote()
	e, mem, _ := testEngine(t, fr, nil)
	v := NewView[course](e, codec.JSON[course]{}, time.Minute)

	key := ProgressKey("u1", "c9")
	fillKey(t, v, key)
	opsBefore := len(fr.opLog())

	boom := errors.New("constraint violation")
	err := e.Apply(ctx, MutationLessonCompleted, EntityRef{UserID: "u1", CourseID: "c9"}, ApplyOptions{
		Write: func(context.Context) error { return boom },
		Topic: "c9",
		Event: "lesson_completed",
	})
	var ae *ApplyError
	if !errors.As(err, &ae) || ae.Stage != "write" || !errors.Is(err, boom) {
		t.Fatalf("want write-stage ApplyError wrapping cause, got %v", err)
	}

	// cache untouched, nothing published: the write did not commit
	if _, ok := mem.Get(key); !ok {
		t.Fatalf("local key invalidated despite aborted write")
	}
	if !fr.has(key) {
		t.Fatalf("remote key invalidated despite aborted write")
	}
	if len(fr.opLog()) != opsBefore {
		t.Fatalf("remote ops ran after an aborted write: %v", fr.opLog()[opsBefore:])
	}
}

func TestApplyPlatformOnlyTopic(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRemote()
	e, _, _ := testEngine(t, fr, nil)

	err := e.Apply(ctx, MutationUserEnrolled, EntityRef{UserID: "u1", CourseID: "c1"}, ApplyOptions{
		Topic:   "", // platform-wide change, no entity topic
		Event:   "user_enrolled",
		Payload: map[string]any{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := fr.published(EventChannel(PlatformTopic)); len(got) != 1 {
		t.Fatalf("platform events = %d, want 1", len(got))
	}
	// no stray entity-topic publish
	for _, op := range fr.opLog() {
		if strings.HasPrefix(op, "publish:") && op != "publish:"+EventChannel(PlatformTopic) {
			t.Fatalf("unexpected publish %q", op)
		}
	}
}

func TestApplyReseedProducesFreshPrimary(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRemote()
	e, _, _ := testEngine(t, fr, nil)
	v := NewView[course](e, codec.JSON[course]{}, time.Minute)

	key := CourseKey("c5")
	fillKey(t, v, key)

	err := e.Apply(ctx, MutationCourseUpdated, EntityRef{CourseID: "c5"}, ApplyOptions{
		Write: func(context.Context) error { return nil },
		Seed: func(context.Context) (*SeedEntry, error) {
			payload, err := v.Encode(course{ID: "c5", Title: "v2"})
			if err != nil {
				return nil, err
			}
			return &SeedEntry{Key: key, Payload: payload, TTL: time.Minute}, nil
		},
		Topic:   "c5",
		Event:   "course_updated",
		Payload: map[string]any{"course_id": "c5"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := v.Get(ctx, key, func(context.Context) (course, error) {
		t.Fatalf("reseeded primary should not reach the loader")
		return course{}, nil
	})
	if err != nil || got.Title != "v2" {
		t.Fatalf("post-apply read: got=%+v err=%v", got, err)
	}
}

func TestPublishWireShape(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRemote()
	e, _, now := testEngine(t, fr, nil)

	if err := e.Publish(ctx, "c1", "course_updated", map[string]any{"course_id": "c1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	pubs := fr.published(EventChannel("c1"))
	if len(pubs) != 1 {
		t.Fatalf("events = %d, want 1", len(pubs))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(pubs[0].payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"event", "topic", "data", "generated_at"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("wire payload missing %q: %s", field, pubs[0].payload)
		}
	}

	var ev ChangeEvent
	if err := json.Unmarshal(pubs[0].payload, &ev); err != nil {
		t.Fatalf("unmarshal typed: %v", err)
	}
	if ev.Event != "course_updated" || ev.Topic != "c1" {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.GeneratedAt.Equal(now.UTC()) {
		t.Fatalf("generated_at = %v, want %v", ev.GeneratedAt, now.UTC())
	}
}

func TestTopicFromChannel(t *testing.T) {
	if topic, ok := TopicFromChannel(EventChannel("c7")); !ok || topic != "c7" {
		t.Fatalf("round trip: topic=%q ok=%v", topic, ok)
	}
	if _, ok := TopicFromChannel("cache:course:1"); ok {
		t.Fatalf("non-event channel must not parse")
	}
}
