package notifications

import "testing"

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(ProgressEvent{JobID: "j1", Status: "downloading", Progress: 50})

	event := <-ch
	if event.Type != EventTypeProgress {
		t.Fatalf("missing default event type: %+v", event)
	}
	if event.JobID != "j1" || event.Progress != 50 {
		t.Fatalf("event mismatch: %+v", event)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Fill the buffer, then publish past it. The extra events are dropped.
	for i := 0; i < 5; i++ {
		hub.Publish(ProgressEvent{JobID: "j1", Progress: float64(i)})
	}
	event := <-ch
	if event.Progress != 0 {
		t.Fatalf("expected oldest buffered event, got %+v", event)
	}
	select {
	case extra, ok := <-ch:
		if ok {
			t.Fatalf("unexpected second event: %+v", extra)
		}
	default:
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	hub.Publish(ProgressEvent{JobID: "j1"})
}

func TestHubCloseDropsSubscribers(t *testing.T) {
	hub := NewHub(4)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Close()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after hub close")
	}

	late, lateCancel := hub.Subscribe()
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Fatal("subscriptions after close should be closed immediately")
	}
}
