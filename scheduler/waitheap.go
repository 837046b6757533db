package scheduler

// waitHeap is a generic binary min-heap ordering parked tasks by wake
// deadline (spec.md §4.E "waiting-set... ordered by deadline"), adapted
// from the teacher's heap.Heap[T] (binary heap keyed by a caller-supplied
// less function) and narrowed to this package's one use.
type waitHeap struct {
	data []*waitingTask
}

func (h *waitHeap) push(w *waitingTask) {
	h.data = append(h.data, w)
	h.bubbleUp(len(h.data) - 1)
}

func (h *waitHeap) pop() (*waitingTask, bool) {
	if len(h.data) == 0 {
		return nil, false
	}
	top := h.data[0]
	last := len(h.data) - 1
	h.data[0] = h.data[last]
	h.data = h.data[:last]
	h.bubbleDown(0)
	return top, true
}

func (h *waitHeap) peek() (*waitingTask, bool) {
	if len(h.data) == 0 {
		return nil, false
	}
	return h.data[0], true
}

func (h *waitHeap) len() int { return len(h.data) }

func (h *waitHeap) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.data[i].deadline.Before(h.data[parent].deadline) {
			h.data[i], h.data[parent] = h.data[parent], h.data[i]
			i = parent
		} else {
			break
		}
	}
}

func (h *waitHeap) bubbleDown(i int) {
	size := len(h.data)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < size && h.data[left].deadline.Before(h.data[smallest].deadline) {
			smallest = left
		}
		if right < size && h.data[right].deadline.Before(h.data[smallest].deadline) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.data[i], h.data[smallest] = h.data[smallest], h.data[i]
		i = smallest
	}
}
