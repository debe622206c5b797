package task

import "github.com/hogehogei/HogepOS/kernel/event"

const mailboxInitialSlots = 8

// mailbox is an unbounded FIFO ring of messages. The slot count is always a
// power of two so the free-running head/tail counters can wrap.
type mailbox struct {
	head  uint32
	tail  uint32
	slots []event.Message
}

func (mb *mailbox) len() int {
	return int(mb.head - mb.tail)
}

func (mb *mailbox) push(msg event.Message) {
	if mb.len() == len(mb.slots) {
		mb.grow()
	}
	mb.slots[mb.head&uint32(len(mb.slots)-1)] = msg
	mb.head++
}

func (mb *mailbox) pop() (event.Message, bool) {
	if mb.tail == mb.head {
		return event.Message{}, false
	}
	i := mb.tail & uint32(len(mb.slots)-1)
	msg := mb.slots[i]
	mb.slots[i] = event.Message{}
	mb.tail++
	return msg, true
}

func (mb *mailbox) grow() {
	n := len(mb.slots) * 2
	if n == 0 {
		n = mailboxInitialSlots
	}
	slots := make([]event.Message, n)
	count := mb.len()
	for i := 0; i < count; i++ {
		slots[i] = mb.slots[(mb.tail+uint32(i))&uint32(len(mb.slots)-1)]
	}
	mb.slots = slots
	mb.tail = 0
	mb.head = uint32(count)
}
