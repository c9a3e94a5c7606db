package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func TestReporterCoalescesResults(t *testing.T) {
	r := newReporter()
	// subscribed without a pump, so the queue stays put
	r.subscribed = true

	r.emit(Event{Kind: EventStatus, Text: "start"})
	r.emit(Event{Kind: EventResultsAppended, Count: 1})
	r.emit(Event{Kind: EventResultsAppended, Count: 2})
	r.emit(Event{Kind: EventStatus, Text: "end"})
	r.emit(Event{Kind: EventResultsAppended, Count: 1})

	assert.Equal(t, []Event{
		{Kind: EventStatus, Text: "start"},
		{Kind: EventResultsAppended, Count: 3},
		{Kind: EventStatus, Text: "end"},
		{Kind: EventResultsAppended, Count: 1},
	}, r.queue)
}

func TestReporterDrainsOnClose(t *testing.T) {
	r := newReporter()
	events := r.Events()
	r.emit(Event{Kind: EventResultsAppended, Count: 1})
	r.emit(Event{Kind: EventStatus, Text: "end"})
	r.close()
	r.emit(Event{Kind: EventStatus, Text: "after close"})

	got := drain(events)
	assert.Equal(t, "end", got[len(got)-1].Text)
}

func TestReporterPreservesOrder(t *testing.T) {
	r := newReporter()
	events := r.Events()
	for i := 0; i < 100; i++ {
		r.emit(Event{Kind: EventProgress, Percent: i})
	}
	r.close()

	got := drain(events)
	assert.Len(t, got, 100)
	for i, e := range got {
		assert.Equal(t, i, e.Percent)
	}
}

func TestReporterWithoutSubscriberDrops(t *testing.T) {
	r := newReporter()
	r.emit(Event{Kind: EventStatus})
	r.close()
	assert.Empty(t, r.queue)
}

func TestReporterStatusThrottle(t *testing.T) {
	r := newReporter()
	now := time.Now()
	assert.True(t, r.allowStatus(now))
	assert.False(t, r.allowStatus(now.Add(500*time.Millisecond)))
	assert.True(t, r.allowStatus(now.Add(1100*time.Millisecond)))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "timed-out", EventTimedOut.String())
	assert.Equal(t, "admin-needed", EventAdminPrivilegeNeeded.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
}
