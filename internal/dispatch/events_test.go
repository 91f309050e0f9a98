package dispatch_test

import (
	"testing"

	"github.com/Viskores/viskores-sub000/internal/dispatch"
)

func TestEventBrokerPublishSubscribe(t *testing.T) {
	b := dispatch.NewEventBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(dispatch.Event{Kind: dispatch.EventStarted, DispatchID: "a"})
	b.Publish(dispatch.Event{Kind: dispatch.EventCompleted, DispatchID: "a"})

	for _, want := range []string{dispatch.EventStarted, dispatch.EventCompleted} {
		ev := <-ch
		if ev.Kind != want {
			t.Errorf("got kind %q, want %q", ev.Kind, want)
		}
	}
}

func TestEventBrokerMultipleSubscribers(t *testing.T) {
	b := dispatch.NewEventBroker()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish(dispatch.Event{Kind: dispatch.EventFailed})

	if ev := <-ch1; ev.Kind != dispatch.EventFailed {
		t.Errorf("subscriber 1 got %q", ev.Kind)
	}
	if ev := <-ch2; ev.Kind != dispatch.EventFailed {
		t.Errorf("subscriber 2 got %q", ev.Kind)
	}
}

func TestEventBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := dispatch.NewEventBroker()
	ch, unsub := b.Subscribe()
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	b.Publish(dispatch.Event{Kind: dispatch.EventStarted})
}

func TestEventBrokerClose(t *testing.T) {
	b := dispatch.NewEventBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Close()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}

	late, lateUnsub := b.Subscribe()
	defer lateUnsub()
	if _, ok := <-late; ok {
		t.Error("expected late subscriber to get a closed channel")
	}
}

func TestEventBrokerDropsForSlowSubscriber(t *testing.T) {
	b := dispatch.NewEventBroker()
	ch, unsub := b.Subscribe()
	defer unsub()

	for range 200 {
		b.Publish(dispatch.Event{Kind: dispatch.EventStarted})
	}
	if got := len(ch); got != 64 {
		t.Errorf("expected buffer of 64, got %d", got)
	}
}
