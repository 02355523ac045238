package session

import (
	"bytes"
	"testing"

	"github.com/smartstudy/studycam/internal/metrics"
)

func TestBroadcasterDeliversFrames(t *testing.T) {
	b := NewBroadcaster(metrics.New())

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	frame := []byte{0xFF, 0xD8, 0x01}
	b.Publish(frame)

	got := <-ch
	if !bytes.Equal(got, frame) {
		t.Fatalf("received frame does not match published frame")
	}
	if !bytes.Equal(b.Latest(), frame) {
		t.Fatalf("Latest() does not match published frame")
	}
}

func TestBroadcasterDropsFramesForSlowClients(t *testing.T) {
	m := metrics.New()
	b := NewBroadcaster(m)

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	// Fill the buffer without draining, then publish one more.
	b.Publish([]byte{1})
	b.Publish([]byte{2})
	b.Publish([]byte{3})

	if got := m.FramesDropped.Load(); got != 1 {
		t.Fatalf("expected 1 dropped frame, got %d", got)
	}
	if got := <-ch; got[0] != 1 {
		t.Fatalf("expected oldest buffered frame first, got %d", got[0])
	}
	if !bytes.Equal(b.Latest(), []byte{3}) {
		t.Fatalf("Latest() should hold the newest frame even when dropped")
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(nil)

	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish([]byte{9})
}

func TestBroadcasterTracksClientCount(t *testing.T) {
	m := metrics.New()
	b := NewBroadcaster(m)

	a, _ := b.Subscribe()
	c, _ := b.Subscribe()
	if got := m.StreamClients.Load(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	b.Unsubscribe(a)
	b.Unsubscribe(c)
	if got := m.StreamClients.Load(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}
