package search

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventStatus EventKind = iota
	EventProgress
	EventResultsAppended
	EventTimedOut
	EventError
	EventAdminPrivilegeNeeded
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventProgress:
		return "progress"
	case EventResultsAppended:
		return "results"
	case EventTimedOut:
		return "timed-out"
	case EventError:
		return "error"
	case EventAdminPrivilegeNeeded:
		return "admin-needed"
	default:
		return "unknown"
	}
}

// Event is one notification from a running search.
type Event struct {
	Kind    EventKind
	Text    string
	Percent int
	// Count is the number of results added (EventResultsAppended)
	Count int
}

const statusInterval = time.Second

// Reporter is an unbounded, ordered event mailbox. Producers never block;
// a pump goroutine forwards events to the subscriber channel.
// Without a subscriber events are dropped.
type Reporter struct {
	mu         sync.Mutex
	queue      []Event
	subscribed bool
	closed     bool
	out        chan Event
	wake       chan struct{}

	interval   time.Duration
	lastStatus atomic.Int64
}

func newReporter() *Reporter {
	return &Reporter{
		out:      make(chan Event),
		wake:     make(chan struct{}, 1),
		interval: statusInterval,
	}
}

// Events subscribes to the stream. The channel closes after the run ends
// and every queued event has been delivered.
func (r *Reporter) Events() <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.subscribed {
		r.subscribed = true
		go r.pump()
	}
	return r.out
}

// emit enqueues e. Consecutive ResultsAppended events are merged.
func (r *Reporter) emit(e Event) {
	r.mu.Lock()
	if !r.subscribed || r.closed {
		r.mu.Unlock()
		return
	}
	if n := len(r.queue); e.Kind == EventResultsAppended && n > 0 && r.queue[n-1].Kind == EventResultsAppended {
		r.queue[n-1].Count += e.Count
	} else {
		r.queue = append(r.queue, e)
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Reporter) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// allowStatus returns true at most once per interval across all goroutines.
func (r *Reporter) allowStatus(now time.Time) bool {
	prev := r.lastStatus.Load()
	if now.UnixNano()-prev < int64(r.interval) {
		return false
	}
	return r.lastStatus.CompareAndSwap(prev, now.UnixNano())
}

// close stops accepting events; the pump drains what's queued and closes out.
func (r *Reporter) close() {
	r.mu.Lock()
	r.closed = true
	subscribed := r.subscribed
	r.mu.Unlock()
	if subscribed {
		r.notify()
	}
}

func (r *Reporter) pump() {
	defer close(r.out)
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		closed := r.closed
		r.mu.Unlock()

		for _, e := range batch {
			r.out <- e
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-r.wake
	}
}
