// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Ordered progress event sink with non-blocking delivery

package progress

import (
	"sync"
	"time"
)

// EventType classifies a progress event
type EventType string

const (
	EventSettingUp       EventType = "SETTING_UP"
	EventNewTicket       EventType = "NEW_TICKET"
	EventTicketCompleted EventType = "TICKET_COMPLETED"
	EventError           EventType = "ERROR"
	EventDebug           EventType = "DEBUG"
	EventIterate         EventType = "ITERATE"
	EventCompleted       EventType = "COMPLETED"
)

// Event is one progress record. Seq is assigned on publish and is
// strictly increasing per sink, so consumers can resume from a snapshot.
type Event struct {
	Seq     int            `json:"seq"`
	Type    EventType      `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Time    time.Time      `json:"time"`
}

// Sink receives progress events. Publishing must never block the
// pipeline: a slow or absent observer loses events, the producer does not
// wait.
type Sink interface {
	Publish(eventType EventType, message string, details map[string]any)
}

// Discard is a Sink that drops everything
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Publish(EventType, string, map[string]any) {}

// subscriberBuffer is the channel capacity per subscriber. Overflowing
// subscribers drop events rather than back-pressure the publisher.
const subscriberBuffer = 256

// Tracker is an in-memory Sink that keeps every published event in
// order and fans out to subscribers without blocking.
type Tracker struct {
	mu          sync.Mutex
	events      []Event
	subscribers map[int]chan Event
	nextSubID   int
}

// NewTracker creates a new progress tracker
func NewTracker() *Tracker {
	return &Tracker{
		subscribers: make(map[int]chan Event),
	}
}

// Publish appends an event and fans it out. Never blocks.
func (t *Tracker) Publish(eventType EventType, message string, details map[string]any) {
	t.mu.Lock()
	event := Event{
		Seq:     len(t.events),
		Type:    eventType,
		Message: message,
		Details: details,
		Time:    time.Now(),
	}
	t.events = append(t.events, event)
	for _, ch := range t.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
	t.mu.Unlock()
}

// Snapshot returns all events published after the given sequence number.
// Pass -1 for the full history.
func (t *Tracker) Snapshot(afterSeq int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if afterSeq < -1 {
		afterSeq = -1
	}
	start := afterSeq + 1
	if start >= len(t.events) {
		return nil
	}
	out := make([]Event, len(t.events)-start)
	copy(out, t.events[start:])
	return out
}

// Subscribe registers a live event channel. The returned cancel func
// unregisters and closes it.
func (t *Tracker) Subscribe() (<-chan Event, func()) {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	ch := make(chan Event, subscriberBuffer)
	t.subscribers[id] = ch
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if existing, ok := t.subscribers[id]; ok {
			delete(t.subscribers, id)
			close(existing)
		}
		t.mu.Unlock()
	}
	return ch, cancel
}

// Len returns the number of published events
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}
