package bus

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotConnected is returned by the in-memory bus before Connect.
var ErrNotConnected = errors.New("not connected")

// Message is a published message recorded by the in-memory bus.
type Message struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
	QoS     QoS    `json:"qos"`
}

// Memory is an in-process Transport. Publishes are delivered synchronously to
// the subscribers of the exact topic and recorded for inspection.
type Memory struct {
	mu        sync.Mutex
	connected bool
	nextID    uint64
	subs      map[string]map[uint64]Handler
	published []Message
	failures  map[string]error
}

// NewMemory creates an in-memory bus.
func NewMemory() *Memory {
	return &Memory{
		subs:     make(map[string]map[uint64]Handler),
		failures: make(map[string]error),
	}
}

// Connect marks the bus as connected.
func (b *Memory) Connect(context.Context) error {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

// Disconnect marks the bus as disconnected.
func (b *Memory) Disconnect() {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
}

// FailPublish makes every publish to topic fail with err. A nil err clears it.
func (b *Memory) FailPublish(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, topic)
		return
	}
	b.failures[topic] = err
}

// Publish records the message and hands it to the topic's subscribers.
func (b *Memory) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "publish", Topic: topic, Err: err}
	}
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return &TransportError{Op: "publish", Topic: topic, Err: ErrNotConnected}
	}
	if err := b.failures[topic]; err != nil {
		b.mu.Unlock()
		return &TransportError{Op: "publish", Topic: topic, Err: err}
	}
	data := append([]byte(nil), payload...)
	b.published = append(b.published, Message{Topic: topic, Payload: data, QoS: qos})
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(topic, data)
	}
	return nil
}

// Subscribe registers h for the exact topic.
func (b *Memory) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "subscribe", Topic: topic, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, &TransportError{Op: "subscribe", Topic: topic, Err: ErrNotConnected}
	}
	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = h
	return &memorySubscription{bus: b, topic: topic, id: id}, nil
}

// Published returns a copy of every message published so far.
func (b *Memory) Published() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.published))
	copy(out, b.published)
	return out
}

// PublishedTo returns the messages published to topic.
func (b *Memory) PublishedTo(topic string) []Message {
	var out []Message
	for _, m := range b.Published() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets recorded messages.
func (b *Memory) Reset() {
	b.mu.Lock()
	b.published = nil
	b.mu.Unlock()
}

// Subscriptions returns the sorted topics with at least one subscriber,
// repeated once per subscriber.
func (b *Memory) Subscriptions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for topic, hs := range b.subs {
		for range hs {
			out = append(out, topic)
		}
	}
	sort.Strings(out)
	return out
}

type memorySubscription struct {
	bus   *Memory
	topic string
	id    uint64
}

func (s *memorySubscription) Topic() string { return s.topic }

func (s *memorySubscription) Unsubscribe(context.Context) error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs[s.topic], s.id)
	if len(s.bus.subs[s.topic]) == 0 {
		delete(s.bus.subs, s.topic)
	}
	return nil
}
