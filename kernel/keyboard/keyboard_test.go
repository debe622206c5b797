package keyboard

import (
	"errors"
	"testing"

	"github.com/hogehogei/HogepOS/kernel/event"
)

func TestKeyASCII(t *testing.T) {
	cases := []struct {
		key  Key
		want byte
	}{
		{Key{KeyCode: 4}, 'a'},
		{Key{Modifier: LShiftBitMask, KeyCode: 4}, 'A'},
		{Key{Modifier: RShiftBitMask, KeyCode: 30}, '!'},
		{Key{KeyCode: 40}, '\n'},
		{Key{Modifier: LControlBitMask, KeyCode: 5}, 'b'},
		{Key{KeyCode: 0x3a}, 0},
	}
	for _, c := range cases {
		if got := c.key.ASCII(); got != c.want {
			t.Fatalf("%+v.ASCII() = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestFromASCIIRoundTrip(t *testing.T) {
	for _, c := range []byte("az09 -=!A?~\n") {
		k, ok := FromASCII(c)
		if !ok {
			t.Fatalf("FromASCII(%q) not found", c)
		}
		if got := k.ASCII(); got != c {
			t.Fatalf("FromASCII(%q).ASCII() = %q", c, got)
		}
	}
	if _, ok := FromASCII(0); ok {
		t.Fatal("FromASCII(0) found a key")
	}
}

type fakeSender struct {
	id  uint64
	msg event.Message
	err error
}

func (f *fakeSender) SendMessage(id uint64, msg event.Message) error {
	f.id, f.msg = id, msg
	return f.err
}

func TestDriverSendsKeyPush(t *testing.T) {
	s := &fakeSender{}
	d := NewDriver(s, 3)

	if err := d.OnReport(LShiftBitMask, 5); err != nil {
		t.Fatalf("OnReport() error = %v", err)
	}
	kp, ok := s.msg.Event.(event.KeyPush)
	if s.id != 3 || !ok || kp.ASCII != 'B' || kp.KeyCode != 5 {
		t.Fatalf("sent %+v to %d, want KeyPush 'B' to 3", s.msg, s.id)
	}
	if s.msg.Src != 0 {
		t.Fatalf("Src = %d, want 0 for the kernel", s.msg.Src)
	}

	s.err = errors.New("gone")
	if err := d.OnReport(0, 4); err == nil {
		t.Fatal("OnReport() swallowed the send error")
	}
}

func TestDriverIgnoresEmptyReport(t *testing.T) {
	s := &fakeSender{}
	if err := NewDriver(s, 1).OnReport(LShiftBitMask, 0); err != nil || s.msg.Event != nil {
		t.Fatalf("empty report sent %+v, %v", s.msg, err)
	}
}
