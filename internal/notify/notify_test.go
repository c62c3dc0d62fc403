package notify

import (
	"testing"
	"time"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/model"
)

func newTestChannel(t *testing.T) (*Channel, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	c := New(clk)
	t.Cleanup(c.Close)
	return c, clk
}

func TestPublishOrderAndNoDedup(t *testing.T) {
	c, _ := newTestChannel(t)

	id1 := c.Publish(model.NotifyInfo, "same")
	id2 := c.Publish(model.NotifyInfo, "same")
	id3 := c.Publish(model.NotifyError, "other")

	if id1 == id2 || id2 == id3 || id1 == id3 {
		t.Fatalf("expected unique ids, got %s %s %s", id1, id2, id3)
	}

	got := c.List()
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	for i, id := range []string{id1, id2, id3} {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if got[2].Kind != model.NotifyError {
		t.Errorf("expected kind error, got %s", got[2].Kind)
	}
}

func TestExpiryAfterTTL(t *testing.T) {
	c, clk := newTestChannel(t)

	c.Publish(model.NotifySuccess, "first")
	clk.Advance(time.Second)
	c.Publish(model.NotifySuccess, "second")

	clk.Advance(TTL - time.Second - time.Millisecond)
	if n := len(c.List()); n != 2 {
		t.Fatalf("expected 2 visible before TTL, got %d", n)
	}

	clk.Advance(time.Millisecond)
	got := c.List()
	if len(got) != 1 || got[0].Message != "second" {
		t.Fatalf("expected only second visible, got %+v", got)
	}

	clk.Advance(time.Second)
	if n := len(c.List()); n != 0 {
		t.Fatalf("expected none visible, got %d", n)
	}
	if n := clk.PendingCount(); n != 0 {
		t.Errorf("expected no pending timers, got %d", n)
	}
}

func TestExpiredExactlyOnce(t *testing.T) {
	c, clk := newTestChannel(t)
	sub := c.Subscribe(16)

	id := c.Publish(model.NotifyWarning, "Proctor Alert: x")
	clk.Advance(10 * TTL)

	var published, expired int
	for done := false; !done; {
		select {
		case ev := <-sub.C():
			if ev.Notification.ID != id {
				t.Fatalf("unexpected id %s", ev.Notification.ID)
			}
			switch ev.Type {
			case Published:
				published++
			case Expired:
				expired++
			}
		default:
			done = true
		}
	}
	if published != 1 || expired != 1 {
		t.Errorf("expected 1 published and 1 expired, got %d and %d", published, expired)
	}
}

func TestFullMailboxDropsInsteadOfBlocking(t *testing.T) {
	c, _ := newTestChannel(t)
	sub := c.Subscribe(1)

	c.Publish(model.NotifyInfo, "a")
	c.Publish(model.NotifyInfo, "b")

	ev := <-sub.C()
	if ev.Notification.Message != "a" {
		t.Errorf("expected first event a, got %s", ev.Notification.Message)
	}
	select {
	case ev := <-sub.C():
		t.Errorf("expected dropped event, got %+v", ev)
	default:
	}
	if n := len(c.List()); n != 2 {
		t.Errorf("expected list unaffected by drops, got %d", n)
	}
}

func TestCloseStopsTimersAndMailboxes(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	c := New(clk)
	sub := c.Subscribe(4)
	c.Publish(model.NotifyInfo, "bye")
	<-sub.C()

	c.Close()
	if _, ok := <-sub.C(); ok {
		t.Error("expected mailbox closed")
	}
	if n := clk.PendingCount(); n != 0 {
		t.Errorf("expected timers stopped, got %d pending", n)
	}
	c.Publish(model.NotifyInfo, "late")
	if n := len(c.List()); n != 0 {
		t.Errorf("expected no entries after close, got %d", n)
	}
	c.Close()
}

func TestCancelSubscription(t *testing.T) {
	c, _ := newTestChannel(t)
	sub := c.Subscribe(4)
	sub.Cancel()
	sub.Cancel()
	c.Publish(model.NotifyInfo, "x")
	if _, ok := <-sub.C(); ok {
		t.Error("expected cancelled mailbox closed")
	}
}
