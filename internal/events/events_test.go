package events

import (
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New()
	ch, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()

	n := bus.Publish(Notice{Level: LevelWarn, Message: "slow down"})
	if n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}

	select {
	case ev := <-ch:
		notice, ok := ev.(Notice)
		if !ok {
			t.Fatalf("expected Notice, got %T", ev)
		}
		if notice.Message != "slow down" {
			t.Errorf("expected message %q, got %q", "slow down", notice.Message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := New()
	ch1, unsub1 := bus.Subscribe(1)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(1)
	defer unsub2()

	bus.Publish(SessionEnded{})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if _, ok := ev.(SessionEnded); !ok {
				t.Errorf("subscriber %d: expected SessionEnded, got %T", i, ev)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestFullBufferDropsEvent(t *testing.T) {
	bus := New()
	_, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()

	if n := bus.Publish(LearningCompleted{Score: 80}); n != 1 {
		t.Fatalf("first publish: expected 1 delivery, got %d", n)
	}
	if n := bus.Publish(LearningCompleted{Score: 90}); n != 0 {
		t.Errorf("second publish with full buffer: expected 0 deliveries, got %d", n)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	ch, unsubscribe := bus.Subscribe(1)
	unsubscribe()

	if n := bus.Publish(SessionEnded{}); n != 0 {
		t.Errorf("expected 0 deliveries after unsubscribe, got %d", n)
	}
	if _, open := <-ch; open {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestCloseClosesAllChannels(t *testing.T) {
	bus := New()
	ch, _ := bus.Subscribe(1)

	bus.Close()

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after bus close")
	}
	if n := bus.Publish(SessionEnded{}); n != 0 {
		t.Errorf("expected 0 deliveries after close, got %d", n)
	}
}
