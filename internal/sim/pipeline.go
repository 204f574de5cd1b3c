package sim

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vitals-sim/internal/bus"
	"vitals-sim/internal/catalog"
	"vitals-sim/internal/metrics"
	"vitals-sim/internal/vitals"
)

// ReadingMessage is the payload of one sensor reading.
type ReadingMessage struct {
	SensorID int     `json:"sensorId"`
	Value    float64 `json:"value"`
	RoomID   int     `json:"roomId"`
}

// EmergencyMessage is the payload of one threshold breach.
type EmergencyMessage struct {
	RoomID int     `json:"roomId"`
	Sensor string  `json:"sensor"`
	Topic  string  `json:"topic"`
	Value  float64 `json:"value"`
}

// Outbound is one message planned for publishing.
type Outbound struct {
	Kind    string
	Topic   string
	Payload []byte
	QoS     bus.QoS
}

// TickPlan holds every message of one tick.
type TickPlan struct {
	RoomID      int
	Readings    []Outbound
	Emergencies []Outbound
}

// Breached reports whether any reading crossed its threshold.
func (p TickPlan) Breached() bool {
	return len(p.Emergencies) > 0
}

// Messages returns readings followed by emergencies.
func (p TickPlan) Messages() []Outbound {
	out := make([]Outbound, 0, len(p.Readings)+len(p.Emergencies))
	out = append(out, p.Readings...)
	return append(out, p.Emergencies...)
}

// Plan builds the messages for one tick. Sensors without a mapped vital are
// skipped. Each value is rounded once and the rounded value is both evaluated
// and published.
func Plan(roomID int, sensors []catalog.Sensor, state vitals.State, thresholds catalog.Thresholds, mapping map[string]vitals.Field) (TickPlan, error) {
	plan := TickPlan{RoomID: roomID}
	var errs error
	for _, s := range sensors {
		field, ok := mapping[s.Name]
		if !ok {
			continue
		}
		value := vitals.Round2(state.Get(field))

		payload, err := json.Marshal(ReadingMessage{SensorID: s.ID, Value: value, RoomID: roomID})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		plan.Readings = append(plan.Readings, Outbound{
			Kind:    metrics.KindReading,
			Topic:   ReadingTopic(roomID, s.TopicSuffix),
			Payload: payload,
			QoS:     bus.BestEffort,
		})

		if !thresholds.Evaluate(s.TopicSuffix, value).Breach {
			continue
		}
		payload, err = json.Marshal(EmergencyMessage{RoomID: roomID, Sensor: s.Name, Topic: s.TopicSuffix, Value: value})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		plan.Emergencies = append(plan.Emergencies, Outbound{
			Kind:    metrics.KindEmergency,
			Topic:   EmergencyTopic(roomID),
			Payload: payload,
			QoS:     bus.Reliable,
		})
	}
	return plan, errs
}

// TickResult is the settled outcome of one dispatch.
type TickResult struct {
	Generation  uint64
	Readings    int
	Emergencies int
	Failed      int
	Err         error
	Duration    time.Duration
}

// Partial reports whether at least one message failed.
func (r TickResult) Partial() bool {
	return r.Failed > 0
}

// Pipeline publishes tick plans.
type Pipeline struct {
	transport bus.Transport
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewPipeline creates a pipeline publishing through t.
func NewPipeline(t bus.Transport, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{transport: t, logger: logger, metrics: m}
}

// Dispatch publishes every message of the plan concurrently and returns once all
// of them settled. Failures are isolated per message.
func (p *Pipeline) Dispatch(ctx context.Context, plan TickPlan) TickResult {
	start := time.Now()
	res := TickResult{Readings: len(plan.Readings), Emergencies: len(plan.Emergencies)}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, msg := range plan.Messages() {
		wg.Add(1)
		go func(msg Outbound) {
			defer wg.Done()
			err := p.transport.Publish(ctx, msg.Topic, msg.Payload, msg.QoS)
			p.metrics.Publish(msg.Kind, err)
			if err == nil {
				return
			}
			fields := []zap.Field{zap.String("topic", msg.Topic), zap.Int("room_id", plan.RoomID), zap.Error(err)}
			if msg.Kind == metrics.KindEmergency {
				p.logger.Error("emergency publish failed", fields...)
			} else {
				p.logger.Warn("reading publish failed", fields...)
			}
			mu.Lock()
			res.Failed++
			res.Err = multierr.Append(res.Err, err)
			mu.Unlock()
		}(msg)
	}
	wg.Wait()

	res.Duration = time.Since(start)
	p.metrics.Dispatched(res.Duration)
	return res
}
