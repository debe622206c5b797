package task

// runQueue is the FIFO of runnable task ids at one level.
type runQueue []uint64

func (q runQueue) empty() bool { return len(q) == 0 }

func (q runQueue) front() uint64 {
	if len(q) == 0 {
		return 0
	}
	return q[0]
}

func (q *runQueue) pushBack(id uint64) {
	*q = append(*q, id)
}

func (q *runQueue) pushFront(id uint64) {
	*q = append(*q, 0)
	copy((*q)[1:], *q)
	(*q)[0] = id
}

func (q *runQueue) popFront() uint64 {
	old := *q
	id := old[0]
	copy(old, old[1:])
	*q = old[:len(old)-1]
	return id
}

// erase removes id from the queue, keeping the order of the others.
func (q *runQueue) erase(id uint64) bool {
	old := *q
	for i, v := range old {
		if v != id {
			continue
		}
		copy(old[i:], old[i+1:])
		*q = old[:len(old)-1]
		return true
	}
	return false
}
