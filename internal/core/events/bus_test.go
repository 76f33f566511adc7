package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublishIsFIFOPerSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe(1)

	for i := 10; i > 0; i-- {
		bus.Publish(Event{Type: TimerTicked, RemainingSec: i})
	}
	for i := 10; i > 0; i-- {
		assert.Equal(t, i, receive(t, sub).RemainingSec)
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	_ = bus.Subscribe(1) // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Type: TimerTicked})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscribeFiltersByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe(4, TimerCompleted)

	bus.Publish(Event{Type: TimerTicked})
	bus.Publish(Event{Type: AudioStateChanged})
	bus.Publish(Event{Type: TimerCompleted, SessionID: "pomodoro"})

	event := receive(t, sub)
	assert.Equal(t, TimerCompleted, event.Type)
	assert.Equal(t, "pomodoro", event.SessionID)
}

func TestCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe(1)
	sub.Cancel()
	sub.Cancel()

	select {
	case _, ok := <-sub.C():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after Cancel")
	}
	bus.Publish(Event{Type: TimerTicked})
}

func TestSubscribeAfterCloseReturnsClosedSubscription(t *testing.T) {
	bus := NewBus()
	bus.Close()
	sub := bus.Subscribe(1)
	_, ok := <-sub.C()
	assert.False(t, ok)
}
