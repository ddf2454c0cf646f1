// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the progress tracker

package progress

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerOrdering(t *testing.T) {
	tracker := NewTracker()

	tracker.Publish(EventSettingUp, "setup", nil)
	tracker.Publish(EventNewTicket, "ticket one", nil)
	tracker.Publish(EventTicketCompleted, "done", map[string]any{"files": 2})

	events := tracker.Snapshot(-1)
	require.Len(t, events, 3)
	for i, event := range events {
		assert.Equal(t, i, event.Seq)
	}
	assert.Equal(t, EventSettingUp, events[0].Type)
	assert.Equal(t, EventTicketCompleted, events[2].Type)
	assert.Equal(t, 2, events[2].Details["files"])
}

func TestTrackerSnapshotResume(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 5; i++ {
		tracker.Publish(EventDebug, fmt.Sprintf("step %d", i), nil)
	}

	events := tracker.Snapshot(2)
	require.Len(t, events, 2)
	assert.Equal(t, 3, events[0].Seq)
	assert.Equal(t, 4, events[1].Seq)

	assert.Nil(t, tracker.Snapshot(4))
	assert.Len(t, tracker.Snapshot(-100), 5)
}

func TestTrackerSubscribe(t *testing.T) {
	tracker := NewTracker()

	ch, cancel := tracker.Subscribe()
	defer cancel()

	tracker.Publish(EventIterate, "fixing", nil)

	select {
	case event := <-ch:
		assert.Equal(t, EventIterate, event.Type)
		assert.Equal(t, "fixing", event.Message)
	case <-time.After(time.Second):
		t.Fatal("expected a live event")
	}
}

func TestTrackerSlowSubscriberNeverBlocksPublish(t *testing.T) {
	tracker := NewTracker()

	_, cancel := tracker.Subscribe()
	defer cancel()

	// Nobody reads the channel; publishing past the buffer must not hang
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			tracker.Publish(EventDebug, "flood", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Equal(t, subscriberBuffer*2, tracker.Len())
}

func TestTrackerCancelClosesChannel(t *testing.T) {
	tracker := NewTracker()

	ch, cancel := tracker.Subscribe()
	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic
	tracker.Publish(EventCompleted, "done", nil)
}
