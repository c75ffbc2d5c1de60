package event_test

import (
	"testing"

	"github.com/hoshigame/gomoku-online/internal/event"
	"github.com/hoshigame/gomoku-online/internal/record"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	bus := event.NewBus()

	var order []string
	bus.Subscribe(func(event.Event) { order = append(order, "first") })
	bus.Subscribe(func(event.Event) { order = append(order, "second") })
	bus.Subscribe(func(event.Event) { order = append(order, "third") })

	bus.Publish(event.RecordUpdated{Record: record.Record{ID: "g1"}})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("deliveries = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("deliveries = %v, want %v", order, want)
		}
	}
}

func TestHandlersSeeEventVariants(t *testing.T) {
	bus := event.NewBus()

	var created, updated, finished, failed int
	bus.Subscribe(func(e event.Event) {
		switch e.(type) {
		case event.RecordCreated:
			created++
		case event.RecordUpdated:
			updated++
		case event.MatchFinished:
			finished++
		case event.SyncError:
			failed++
		}
	})

	rec := record.Record{ID: "g1"}
	bus.Publish(event.RecordCreated{Record: rec})
	bus.Publish(event.RecordUpdated{Record: rec})
	bus.Publish(event.MatchFinished{Record: rec, Winner: record.ColorBlack})
	bus.Publish(event.SyncError{RecordID: "g1"})

	if created != 1 || updated != 1 || finished != 1 || failed != 1 {
		t.Fatalf("counts = %d/%d/%d/%d, want 1 each", created, updated, finished, failed)
	}
}

func TestPublishWithoutHandlersIsNoop(t *testing.T) {
	event.NewBus().Publish(event.RecordUpdated{})
}
