// Package bus defines the publish/subscribe capability the simulator needs and
// its implementations: an MQTT client, an in-memory bus and a print-only bus.
package bus

import (
	"context"
	"fmt"
)

// QoS is the delivery guarantee requested for a publish.
type QoS int

const (
	// BestEffort delivers at most once (MQTT QoS 0).
	BestEffort QoS = iota
	// Acknowledged delivers at least once (MQTT QoS 1).
	Acknowledged
	// Reliable delivers exactly once (MQTT QoS 2).
	Reliable
)

func (q QoS) String() string {
	switch q {
	case BestEffort:
		return "best_effort"
	case Acknowledged:
		return "acknowledged"
	case Reliable:
		return "reliable"
	}
	return fmt.Sprintf("qos(%d)", int(q))
}

// Handler receives the payload of an inbound message.
type Handler func(topic string, payload []byte)

// Subscription is an active subscription that can be torn down.
type Subscription interface {
	Topic() string
	Unsubscribe(ctx context.Context) error
}

// Transport is the minimal messaging capability used by the engine.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Publish(ctx context.Context, topic string, payload []byte, qos QoS) error
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
}

// TransportError reports a failed publish, subscribe or unsubscribe.
type TransportError struct {
	Op    string
	Topic string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
