package task

import (
	"reflect"
	"testing"

	"github.com/hogehogei/HogepOS/kernel/cpu"
	"github.com/hogehogei/HogepOS/kernel/event"
)

func TestMailboxGrowsAndKeepsOrder(t *testing.T) {
	var mb mailbox

	if _, ok := mb.pop(); ok {
		t.Fatal("pop() on empty mailbox returned ok")
	}

	var sent, recv uint64
	for round := 0; round < 6; round++ {
		// Push more than is popped so the ring wraps and then grows.
		for i := 0; i < 13; i++ {
			mb.push(event.Message{Src: sent})
			sent++
		}
		for i := 0; i < 9; i++ {
			msg, ok := mb.pop()
			if !ok || msg.Src != recv {
				t.Fatalf("pop() = %d, %v, want %d", msg.Src, ok, recv)
			}
			recv++
		}
	}
	for mb.len() > 0 {
		msg, _ := mb.pop()
		if msg.Src != recv {
			t.Fatalf("pop() = %d, want %d", msg.Src, recv)
		}
		recv++
	}
	if recv != sent {
		t.Fatalf("received %d messages, want %d", recv, sent)
	}
	if n := len(mb.slots); n&(n-1) != 0 {
		t.Fatalf("slot count %d is not a power of two", n)
	}
}

func TestRunQueueOps(t *testing.T) {
	var q runQueue
	q.pushBack(1)
	q.pushBack(2)
	q.pushFront(3)
	if want := (runQueue{3, 1, 2}); !reflect.DeepEqual(q, want) {
		t.Fatalf("queue = %v, want %v", q, want)
	}
	if !q.erase(1) || q.erase(9) {
		t.Fatal("erase() result mismatch")
	}
	if got := q.popFront(); got != 3 || q.front() != 2 {
		t.Fatalf("popFront() = %d, front() = %d, want 3, 2", got, q.front())
	}
	q.popFront()
	if !q.empty() || q.front() != 0 {
		t.Fatal("queue not empty")
	}
}

// TestHostedSleepAndMessage runs a real task on the host CPU: the worker drains
// its mailbox, sleeps, and the CPU comes back to the boot task.
func TestHostedSleepAndMessage(t *testing.T) {
	h := cpu.NewHost()
	m := NewManager(h)

	var got []int
	worker := m.NewTask()
	worker.InitContext(func(id uint64, _ int64) {
		self, _ := m.Task(id)
		for {
			msg, ok := self.ReceiveMessage()
			if !ok {
				self.Sleep()
				continue
			}
			if to, ok := msg.Event.(event.TimerTimeout); ok {
				got = append(got, to.Value)
			}
		}
	}, 0).SetLevel(MaxLevel)

	for _, v := range []int{1, 2, 3} {
		if err := m.SendMessage(worker.ID(), event.Message{Event: event.TimerTimeout{Value: v}}); err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
	}

	m.SwitchTask(false)

	if want := []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("worker received %v, want %v", got, want)
	}
	if worker.Running() {
		t.Fatal("worker still running after draining its mailbox")
	}
	if m.CurrentTask().ID() != MainTaskID {
		t.Fatalf("CurrentTask() = %d, want boot task", m.CurrentTask().ID())
	}

	// A second batch resumes the worker from inside Sleep.
	_ = m.SendMessage(worker.ID(), event.Message{Event: event.TimerTimeout{Value: 4}})
	m.SwitchTask(false)
	if want := []int{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Fatalf("worker received %v, want %v", got, want)
	}
}
