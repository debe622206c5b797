package keyboard

import "github.com/hogehogei/HogepOS/kernel/event"

const kernelSrc = 0

// Sender delivers messages to task mailboxes.
type Sender interface {
	SendMessage(id uint64, msg event.Message) error
}

// Driver is the HID keyboard class driver observer: every key report becomes
// a KeyPush in the target task's mailbox. The kernel is the sender, so the
// messages carry Src 0 whichever task drains the controller.
type Driver struct {
	send   Sender
	target uint64
}

// NewDriver returns a driver that reports to task target.
func NewDriver(send Sender, target uint64) *Driver {
	return &Driver{send: send, target: target}
}

// OnReport handles one pressed key. Key code 0 (no key) is ignored.
func (d *Driver) OnReport(modifier, keycode uint8) error {
	if keycode == 0 {
		return nil
	}
	k := Key{Modifier: modifier, KeyCode: keycode}
	return d.send.SendMessage(d.target, k.Message(kernelSrc))
}
