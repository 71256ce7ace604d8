package events

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()
	defer bus.Shutdown()

	received := make(chan any, 1)
	bus.Subscribe(TopicFileChanged, func(event any) {
		received <- event
	})

	bus.Publish(TopicFileChanged, FileChangedEvent{Identity: "main.go"})

	select {
	case event := <-received:
		fileEvent, ok := event.(FileChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "main.go", fileEvent.Identity)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	bus := NewEventBus()
	defer bus.Shutdown()

	bus.Publish("nobody.listens", "hello")

	assert.Equal(t, int64(0), bus.DroppedCount())
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	bus := NewEventBus()
	defer bus.Shutdown()

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe(TopicSessionChanged, func(any) {
			count.Add(1)
		})
	}

	bus.Publish(TopicSessionChanged, SessionChangedEvent{SessionID: "s1"})

	assert.Eventually(t, func() bool {
		return count.Load() == 3
	}, time.Second, 10*time.Millisecond)
}

func TestOrderedDeliveryPerTopic(t *testing.T) {
	bus := NewEventBus()
	defer bus.Shutdown()

	var got []int
	done := make(chan struct{})
	bus.Subscribe("ordered", func(event any) {
		got = append(got, event.(int))
		if len(got) == 5 {
			close(done)
		}
	})

	for i := 0; i < 5; i++ {
		bus.Publish("ordered", i)
	}

	select {
	case <-done:
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	case <-time.After(time.Second):
		t.Fatal("not all events delivered")
	}
}

func TestPanickingHandlerDoesNotKillQueue(t *testing.T) {
	bus := NewEventBus()
	defer bus.Shutdown()

	received := make(chan struct{}, 1)
	bus.Subscribe("risky", func(any) { panic("boom") })
	bus.Subscribe("risky", func(any) { received <- struct{}{} })

	bus.Publish("risky", "first")

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran after panic")
	}
}
