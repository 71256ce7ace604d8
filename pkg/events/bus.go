package events

import (
	"log"
	"sync"
	"sync/atomic"
)

const defaultQueueSize = 128

// Handler is a function that handles an event.
type Handler func(event any)

// Publisher allows publishing events.
type Publisher interface {
	Publish(topic string, event any)
}

// Subscriber allows subscribing to events.
type Subscriber interface {
	Subscribe(topic string, handler Handler)
}

// EventBus provides both publishing and subscribing.
type EventBus interface {
	Publisher
	Subscriber
}

// InMemoryBus implements EventBus. Events are delivered in order per topic
// by a dedicated goroutine; publishing never blocks the caller.
type InMemoryBus struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	queues    map[string]*topicQueue
	queueSize int
	dropped   atomic.Int64
}

// NewEventBus creates a bus with the default per-topic queue size.
func NewEventBus() *InMemoryBus {
	return NewEventBusWithQueueSize(defaultQueueSize)
}

// NewEventBusWithQueueSize allows configuring the per-topic queue size.
func NewEventBusWithQueueSize(size int) *InMemoryBus {
	if size < 1 {
		size = 1
	}
	return &InMemoryBus{
		handlers:  make(map[string][]Handler),
		queues:    make(map[string]*topicQueue),
		queueSize: size,
	}
}

// Subscribe adds a handler for a topic.
func (b *InMemoryBus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish delivers the event to all handlers subscribed to the topic.
// If the topic queue is full the event is dropped rather than blocking.
func (b *InMemoryBus) Publish(topic string, event any) {
	handlers := b.snapshotHandlers(topic)
	if len(handlers) == 0 {
		return
	}

	q := b.queueFor(topic)
	select {
	case q.ch <- delivery{event: event, handlers: handlers}:
	default:
		b.dropped.Add(1)
		log.Printf("event queue full for topic %s; dropping event", topic)
	}
}

// DroppedCount returns the number of events dropped due to full queues.
func (b *InMemoryBus) DroppedCount() int64 {
	return b.dropped.Load()
}

// Shutdown stops all topic queues after draining them.
func (b *InMemoryBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.queues {
		q.stop()
	}
}

func (b *InMemoryBus) snapshotHandlers(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	return handlers
}

func (b *InMemoryBus) queueFor(topic string) *topicQueue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[topic]; ok {
		return q
	}
	q := newTopicQueue(b.queueSize)
	b.queues[topic] = q
	return q
}

type delivery struct {
	event    any
	handlers []Handler
}

type topicQueue struct {
	ch       chan delivery
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newTopicQueue(size int) *topicQueue {
	q := &topicQueue{ch: make(chan delivery, size)}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *topicQueue) run() {
	defer q.wg.Done()
	for d := range q.ch {
		for _, handler := range d.handlers {
			invoke(handler, d.event)
		}
	}
}

// invoke shields the queue goroutine from panicking handlers.
func invoke(h Handler, event any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panicked: %v", r)
		}
	}()
	h(event)
}

func (q *topicQueue) stop() {
	q.stopOnce.Do(func() {
		close(q.ch)
		q.wg.Wait()
	})
}
