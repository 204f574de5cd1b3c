package bus

import (
	"context"

	"go.uber.org/multierr"
)

// Fanout publishes to several transports. Subscriptions go to the primary
// transport only.
type Fanout struct {
	primary Transport
	taps    []Transport
}

// NewFanout creates a fan-out over primary and taps.
func NewFanout(primary Transport, taps ...Transport) *Fanout {
	return &Fanout{primary: primary, taps: taps}
}

func (f *Fanout) all() []Transport {
	return append([]Transport{f.primary}, f.taps...)
}

// Connect connects every transport.
func (f *Fanout) Connect(ctx context.Context) error {
	for _, t := range f.all() {
		if err := t.Connect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect disconnects every transport.
func (f *Fanout) Disconnect() {
	for _, t := range f.all() {
		t.Disconnect()
	}
}

// Publish sends the message to every transport and joins their errors.
func (f *Fanout) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	var err error
	for _, t := range f.all() {
		err = multierr.Append(err, t.Publish(ctx, topic, payload, qos))
	}
	return err
}

// Subscribe subscribes on the primary transport.
func (f *Fanout) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	return f.primary.Subscribe(ctx, topic, h)
}
