package xhci

import (
	"testing"

	"github.com/hogehogei/HogepOS/kernel/event"
	"github.com/hogehogei/HogepOS/kernel/keyboard"
)

type sink struct {
	got []event.Message
}

func (s *sink) SendMessage(_ uint64, msg event.Message) error {
	s.got = append(s.got, msg)
	return nil
}

func TestPostRaisesInterruptAndDrops(t *testing.T) {
	raised := 0
	c := NewController(2, func() { raised++ })

	if !c.Post(Event{KeyCode: 4}) || !c.Post(Event{KeyCode: 5}) {
		t.Fatal("Post() failed on a ring with room")
	}
	if c.Post(Event{KeyCode: 6}) {
		t.Fatal("Post() succeeded on a full ring")
	}
	if raised != 2 || c.Dropped() != 1 {
		t.Fatalf("raised=%d dropped=%d, want 2 and 1", raised, c.Dropped())
	}
}

func TestProcessEventsDrainsInOrder(t *testing.T) {
	c := NewController(0, nil)
	for _, code := range []uint8{11, 8, 15, 15, 18} {
		c.Post(Event{KeyCode: code})
	}

	s := &sink{}
	if err := ProcessEvents(c, keyboard.NewDriver(s, 1)); err != nil {
		t.Fatalf("ProcessEvents() error = %v", err)
	}
	if c.HasFront() {
		t.Fatal("ring not drained")
	}
	var text []byte
	for _, m := range s.got {
		text = append(text, m.Event.(event.KeyPush).ASCII)
	}
	if string(text) != "hello" {
		t.Fatalf("decoded %q, want %q", text, "hello")
	}
}
