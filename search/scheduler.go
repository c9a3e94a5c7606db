package search

import (
	"container/heap"
	"sync"
)

// Block is one directory waiting to be listed.
type Block struct {
	Priority int
	Path     string
	seq      uint64
}

type blockHeap []Block

func (h blockHeap) Len() int { return len(h) }
func (h blockHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h blockHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *blockHeap) Push(x any)   { *h = append(*h, x.(Block)) }
func (h *blockHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	*h = old[:n-1]
	return b
}

// Scheduler is a blocking priority queue of directory blocks shared by all
// walkers. Lower priority values pop first; ties pop in push order.
//
// pending counts blocks that are queued or being processed. Pop returns false
// once the queue is empty and pending is zero, since no walker can push more.
type Scheduler struct {
	mu        sync.Mutex
	cond      *sync.Cond
	heap      blockHeap
	seq       uint64
	pending   int
	completed int
	closed    bool
}

func NewScheduler() *Scheduler {
	s := &Scheduler{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Push queues a block. Pushes after Close are dropped.
func (s *Scheduler) Push(b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	b.seq = s.seq
	s.seq++
	heap.Push(&s.heap, b)
	s.pending++
	s.cond.Signal()
}

// Pop blocks until a block is available, all work is done, or the scheduler
// is closed. Every successful Pop must be followed by Done.
func (s *Scheduler) Pop() (Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.heap) == 0 && s.pending > 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed || len(s.heap) == 0 {
		return Block{}, false
	}
	return heap.Pop(&s.heap).(Block), true
}

// Done marks a popped block as fully processed.
func (s *Scheduler) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	s.completed++
	if s.pending == 0 {
		s.cond.Broadcast()
	}
}

// Close wakes all waiters; subsequent Pops return false.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

// Stats returns the number of completed blocks and blocks still pending.
func (s *Scheduler) Stats() (completed, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.pending
}
