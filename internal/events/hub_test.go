package events

import (
	"testing"
	"time"
)

func TestPublishAndSnapshot(t *testing.T) {
	h := NewHub(4)

	h.Publish(TypeDispatchStarted, map[string]string{"event": "issues"})
	h.Publish(TypePluginCompleted, map[string]string{"plugin": "welcome"})

	snap := h.SnapshotSince(0)
	if len(snap) != 2 {
		t.Fatalf("expected 2 events, got %d", len(snap))
	}
	if snap[0].Type != TypeDispatchStarted || snap[1].Type != TypePluginCompleted {
		t.Errorf("unexpected order: %s, %s", snap[0].Type, snap[1].Type)
	}

	since := h.SnapshotSince(snap[0].ID)
	if len(since) != 1 || since[0].Type != TypePluginCompleted {
		t.Errorf("SnapshotSince should return only newer events, got %d", len(since))
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	h := NewHub(2)

	h.Publish("a", nil)
	h.Publish("b", nil)
	h.Publish("c", nil)

	snap := h.SnapshotSince(0)
	if len(snap) != 2 {
		t.Fatalf("expected ring capacity 2, got %d", len(snap))
	}
	if snap[0].Type != "b" || snap[1].Type != "c" {
		t.Errorf("oldest should be overwritten: %s, %s", snap[0].Type, snap[1].Type)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	h := NewHub(4)

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeDispatchCompleted, nil)

	select {
	case ev := <-ch:
		if ev.Type != TypeDispatchCompleted {
			t.Errorf("unexpected event type %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(4)

	_, cancel := h.Subscribe()
	defer cancel()

	// Fill well past the subscriber buffer; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Publish("spam", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
