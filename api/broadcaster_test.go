package api

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch chan BroadcastEvent) BroadcastEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return BroadcastEvent{}
	}
}

func TestBroadcastDelivery(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("s1", nil)
	b.BroadcastState("s1", map[string]interface{}{"ppc": 3})

	ev := recvEvent(t, sub.Channel)
	if ev.Type != EventTypeState || ev.SessionID != "s1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Data["ppc"] != 3 {
		t.Errorf("data = %v, expected ppc 3", ev.Data)
	}
}

func TestBroadcastSessionFilter(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("s1", nil)
	b.BroadcastState("other", map[string]interface{}{"x": 1})
	b.BroadcastState("s1", map[string]interface{}{"x": 2})

	ev := recvEvent(t, sub.Channel)
	if ev.SessionID != "s1" {
		t.Errorf("received event for %q, expected only s1", ev.SessionID)
	}
}

func TestBroadcastEventTypeFilter(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("", []EventType{EventTypeExecution})
	b.BroadcastState("s1", map[string]interface{}{"x": 1})
	b.BroadcastExecutionEvent("s1", "success", nil)

	ev := recvEvent(t, sub.Channel)
	if ev.Type != EventTypeExecution {
		t.Errorf("received %s event, expected only execution events", ev.Type)
	}
	if ev.Data["event"] != "success" {
		t.Errorf("data = %v", ev.Data)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("s1", nil)
	b.Unsubscribe(sub)

	select {
	case _, ok := <-sub.Channel:
		if ok {
			t.Error("received an event on an unsubscribed channel")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed after unsubscribe")
	}

	if b.SubscriptionCount() != 0 {
		t.Errorf("subscription count = %d, expected 0", b.SubscriptionCount())
	}
}

func TestCloseShutsDownAllSubscriptions(t *testing.T) {
	b := NewBroadcaster()
	s1 := b.Subscribe("a", nil)
	s2 := b.Subscribe("b", nil)
	b.Close()

	for _, sub := range []*Subscription{s1, s2} {
		select {
		case _, ok := <-sub.Channel:
			if ok {
				t.Error("expected closed channel after Close")
			}
		case <-time.After(2 * time.Second):
			t.Error("channel not closed after Close")
		}
	}
}
