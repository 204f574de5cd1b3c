package sim

import (
	"context"

	"vitals-sim/internal/catalog"
)

// event is anything the loop processes.
type event interface {
	apply(ctx context.Context, s *Simulator)
}

type commandEvent struct {
	fn    func(context.Context) error
	reply chan error
}

func (e commandEvent) apply(ctx context.Context, s *Simulator) {
	err := e.fn(ctx)
	s.publishStatus()
	e.reply <- err
}

type messageEvent struct {
	gen     uint64
	topic   string
	payload []byte
}

func (e messageEvent) apply(ctx context.Context, s *Simulator) {
	s.handleMessage(ctx, e)
}

type rearmEvent struct {
	act   Actuator
	token uint64
}

func (e rearmEvent) apply(_ context.Context, s *Simulator) {
	s.rearm(e)
}

type fetchEvent struct {
	roomID     int
	seq        uint64
	thresholds catalog.Thresholds
	err        error
}

func (e fetchEvent) apply(_ context.Context, s *Simulator) {
	s.applyThresholds(e)
}

type dispatchEvent struct {
	result TickResult
}

func (e dispatchEvent) apply(_ context.Context, s *Simulator) {
	s.settle(e.result)
}
