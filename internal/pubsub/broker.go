// Package pubsub is a small in-memory broker carrying the live feed of a
// running match, one topic per match ID.
package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// FeedEvent is one entry of a match's live feed, delivered to websocket
// subscribers as JSON.
type FeedEvent struct {
	Type      string          `json:"type"`
	MatchID   string          `json:"match_id"`
	Handle    string          `json:"handle,omitempty"`
	ProblemID string          `json:"problem_id,omitempty"`
	Points    int             `json:"points,omitempty"`
	Verdict   string          `json:"verdict,omitempty"`
	Phase     string          `json:"phase,omitempty"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	EventPhase   = "phase"
	EventScore   = "score"
	EventSolve   = "solve"
	EventStatus  = "status"
	EventWarning = "warning"
	EventEnded   = "ended"
)

type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan FeedEvent
	// history keeps every event published so far per topic; a new
	// subscriber replays it before receiving live events, so a client
	// joining mid-match sees the full feed.
	history map[string][]FeedEvent
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string][]chan FeedEvent),
		history:     make(map[string][]FeedEvent),
	}
}

// Subscribe registers for a topic's feed. Cached history is replayed first,
// then live events follow. The returned cancel func detaches the
// subscriber and closes its channel.
func (b *Broker) Subscribe(topic string) (<-chan FeedEvent, func()) {
	b.mu.Lock()

	replay := b.history[topic]
	ch := make(chan FeedEvent, 128+len(replay))
	for _, ev := range replay {
		ch <- ev
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, unsubscribe
}

// Publish appends an event to the topic history and fans it out. A
// subscriber with a full channel misses the event rather than blocking the
// publisher.
func (b *Broker) Publish(topic string, ev FeedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history[topic] = append(b.history[topic], ev)
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// CloseTopic drops all subscribers and the cached history for a topic,
// called when a match leaves memory.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[topic]; ok {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
	delete(b.history, topic)
	zap.S().Debugf("closed feed topic %s", topic)
}
