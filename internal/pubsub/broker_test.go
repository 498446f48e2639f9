package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan FeedEvent, n int) []FeedEvent {
	t.Helper()
	var out []FeedEvent
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed early")
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestSubscribeReceivesLiveEvents(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("m1")
	defer cancel()

	b.Publish("m1", FeedEvent{Type: EventScore, Handle: "alice", Points: 500})
	b.Publish("m2", FeedEvent{Type: EventScore, Handle: "bob"})

	events := collect(t, ch, 1)
	assert.Equal(t, "alice", events[0].Handle)
}

func TestLateSubscriberGetsHistoryReplay(t *testing.T) {
	b := NewBroker()
	b.Publish("m1", FeedEvent{Type: EventPhase, Phase: "Live"})
	b.Publish("m1", FeedEvent{Type: EventSolve, ProblemID: "100-A", Handle: "alice"})

	ch, cancel := b.Subscribe("m1")
	defer cancel()
	b.Publish("m1", FeedEvent{Type: EventScore, Handle: "alice", Points: 660})

	events := collect(t, ch, 3)
	assert.Equal(t, EventPhase, events[0].Type)
	assert.Equal(t, EventSolve, events[1].Type)
	assert.Equal(t, EventScore, events[2].Type)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("m1")
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	b.Publish("m1", FeedEvent{Type: EventScore})
}

func TestCloseTopic(t *testing.T) {
	b := NewBroker()
	ch, _ := b.Subscribe("m1")
	b.Publish("m1", FeedEvent{Type: EventScore})
	b.CloseTopic("m1")

	collect(t, ch, 1) // buffered event still drains
	_, ok := <-ch
	assert.False(t, ok)

	// History is gone for new subscribers.
	ch2, cancel := b.Subscribe("m1")
	defer cancel()
	select {
	case ev := <-ch2:
		t.Fatalf("unexpected replayed event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}
