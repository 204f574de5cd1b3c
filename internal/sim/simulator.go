// Simulator orchestrating vital-sign ticks, alarms and room subscriptions
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"vitals-sim/internal/bus"
	"vitals-sim/internal/catalog"
	"vitals-sim/internal/metrics"
	"vitals-sim/internal/vitals"
)

// ThresholdFetcher loads the current thresholds of a room.
type ThresholdFetcher interface {
	FetchRoomThresholds(ctx context.Context, roomID int) (catalog.Thresholds, error)
}

// Options configures a Simulator.
type Options struct {
	Transport    bus.Transport
	Registry     *catalog.Registry
	Sensors      *catalog.Sensors
	Fetcher      ThresholdFetcher
	Mapping      map[string]vitals.Field
	Rand         vitals.Rand
	TickInterval time.Duration
	RearmDelay   time.Duration
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Journal      *Journal
}

// Status is a point-in-time view of the simulator.
type Status struct {
	Mode          vitals.Mode  `json:"mode"`
	RoomID        int          `json:"room_id,omitempty"`
	RoomName      string       `json:"room_name,omitempty"`
	RoomSelected  bool         `json:"room_selected"`
	Vitals        vitals.State `json:"vitals"`
	Alarm         AlarmState   `json:"alarm"`
	Generation    uint64       `json:"generation"`
	Ticks         uint64       `json:"ticks"`
	SkippedTicks  uint64       `json:"skipped_ticks"`
	InFlight      bool         `json:"in_flight"`
	LastTickAt    time.Time    `json:"last_tick_at,omitempty"`
	LastTickError string       `json:"last_tick_error,omitempty"`
	Subscriptions []string     `json:"subscriptions"`
	PendingRearms []string     `json:"pending_rearms"`
}

// Simulator runs the vital-sign engine for one selected room. All mutable
// state is owned by the goroutine executing Run; other goroutines talk to it
// through the events channel.
type Simulator struct {
	transport    bus.Transport
	registry     *catalog.Registry
	sensors      *catalog.Sensors
	fetcher      ThresholdFetcher
	mapping      map[string]vitals.Field
	rng          vitals.Rand
	tickInterval time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	journal      *Journal
	pipeline     *Pipeline
	outbox       *outbox

	events chan event
	done   chan struct{}
	status atomic.Pointer[Status]

	// owned by the loop
	runCtx     context.Context
	state      vitals.State
	mode       vitals.Mode
	generation uint64
	room       catalog.Room
	hasRoom    bool
	subs       []bus.Subscription
	subGen     uint64
	ticker     *time.Ticker
	inFlight   bool
	alarm      *AlarmController
	ticks      uint64
	skipped    uint64
	lastTickAt time.Time
	lastErr    string
	fetchSeq   uint64
	appliedSeq map[int]uint64
}

// NewSimulator creates a simulator. Run must be started before any command.
func NewSimulator(opts Options) *Simulator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	delay := opts.RearmDelay
	if delay <= 0 {
		delay = 2 * time.Minute
	}
	registry := opts.Registry
	if registry == nil {
		registry = catalog.NewRegistry(nil)
	}
	sensors := opts.Sensors
	if sensors == nil {
		sensors = catalog.NewSensors(nil)
	}
	journal := opts.Journal
	if journal == nil {
		journal = NewJournal(DefaultJournalSize)
	}
	s := &Simulator{
		transport:    opts.Transport,
		registry:     registry,
		sensors:      sensors,
		fetcher:      opts.Fetcher,
		mapping:      opts.Mapping,
		rng:          rng,
		tickInterval: tick,
		logger:       logger.Named("simulator"),
		metrics:      opts.Metrics,
		journal:      journal,
		pipeline:     NewPipeline(opts.Transport, logger.Named("pipeline"), opts.Metrics),
		events:       make(chan event, 256),
		done:         make(chan struct{}),
		state:        vitals.Initial(),
		mode:         vitals.Idle,
		appliedSeq:   make(map[int]uint64),
	}
	s.outbox = newOutbox()
	s.alarm = NewAlarmController(delay, s, func(act Actuator, token uint64) {
		s.post(rearmEvent{act: act, token: token})
	})
	s.publishStatus()
	return s
}

// Run processes events until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	s.runCtx = ctx
	s.logger.Info("starting", zap.Duration("tick_interval", s.tickInterval))
	go s.outbox.drain(ctx, s.publishActuator)

	defer close(s.done)
	defer s.shutdown()

	for {
		var tickC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.C
		}
		select {
		case <-ctx.Done():
			s.logger.Info("stopping")
			return
		case <-tickC:
			s.tick(ctx)
		case ev := <-s.events:
			ev.apply(ctx, s)
		}
		s.publishStatus()
	}
}

// Done is closed once Run has returned.
func (s *Simulator) Done() <-chan struct{} {
	return s.done
}

// Status returns the latest snapshot. Safe for concurrent use.
func (s *Simulator) Status() Status {
	return *s.status.Load()
}

// Events returns the recent journal entries.
func (s *Simulator) Events() []Event {
	return s.journal.Events()
}

// Rooms returns the occupied rooms known to the registry.
func (s *Simulator) Rooms() []catalog.Room {
	return s.registry.Rooms()
}

// SetMode enters a simulation mode. Idle stops the simulation.
func (s *Simulator) SetMode(ctx context.Context, mode vitals.Mode) error {
	return s.do(ctx, func(loopCtx context.Context) error {
		if mode == vitals.Idle {
			s.stop()
			return nil
		}
		s.enterMode(loopCtx, mode)
		return nil
	})
}

// Stop halts the simulation and clears the alarm.
func (s *Simulator) Stop(ctx context.Context) error {
	return s.SetMode(ctx, vitals.Idle)
}

// SelectRoom stops the active mode and moves the subscriptions to another room.
func (s *Simulator) SelectRoom(ctx context.Context, roomID int) error {
	return s.do(ctx, func(loopCtx context.Context) error {
		room, ok := s.registry.Room(roomID)
		if !ok {
			return fmt.Errorf("select room %d: %w", roomID, catalog.ErrUnknownRoom)
		}
		s.stop()
		s.unsubscribeAll()
		s.room = room
		s.hasRoom = true
		s.subscribeRoom(loopCtx)
		s.journal.Record("room", fmt.Sprintf("selected room %d (%s)", room.ID, room.Name))
		s.logger.Info("room selected", zap.Int("room_id", room.ID), zap.String("room", room.Name))
		return nil
	})
}

// do runs fn on the loop and waits for its result.
func (s *Simulator) do(ctx context.Context, fn func(context.Context) error) error {
	reply := make(chan error, 1)
	select {
	case s.events <- commandEvent{fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

// post hands an event to the loop. It gives up once the loop has exited.
func (s *Simulator) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Simulator) enterMode(ctx context.Context, mode vitals.Mode) {
	s.stopTicker()
	s.generation++
	s.alarm.Clear()
	if s.hasRoom {
		s.unsubscribeAll()
		s.subscribeRoom(ctx)
	}
	if mode == vitals.Stable {
		s.state = vitals.Baseline()
	}
	s.mode = mode
	s.ticker = time.NewTicker(s.tickInterval)
	if mode.Alerting() {
		s.alarm.Latch()
		s.journal.Record("alarm", "latched")
	}
	s.journal.Record("mode", mode.String())
	s.logger.Info("mode entered", zap.Stringer("mode", mode), zap.Uint64("generation", s.generation))
}

func (s *Simulator) stop() {
	wasLatched := s.alarm.State().AlertLatched
	s.stopTicker()
	s.generation++
	s.alarm.Clear()
	if wasLatched {
		s.journal.Record("alarm", "cleared")
	}
	if s.mode != vitals.Idle {
		s.journal.Record("mode", vitals.Idle.String())
		s.logger.Info("simulation stopped", zap.Stringer("previous_mode", s.mode))
	}
	s.mode = vitals.Idle
}

func (s *Simulator) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Simulator) subscribeRoom(ctx context.Context) {
	s.subGen++
	gen := s.subGen
	for _, topic := range roomTopics(s.room.ID) {
		sub, err := s.transport.Subscribe(ctx, topic, func(topic string, payload []byte) {
			s.post(messageEvent{gen: gen, topic: topic, payload: payload})
		})
		if err != nil {
			s.logger.Warn("subscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		s.subs = append(s.subs, sub)
	}
}

func (s *Simulator) unsubscribeAll() {
	s.subGen++
	ctx := s.runCtx
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(ctx); err != nil {
			s.logger.Warn("unsubscribe failed", zap.String("topic", sub.Topic()), zap.Error(err))
		}
	}
	s.subs = nil
}

// SetActuator queues an actuator command for the selected room.
func (s *Simulator) SetActuator(act Actuator, on bool) {
	if !s.hasRoom {
		return
	}
	s.outbox.push(actuatorCommand{roomID: s.room.ID, act: act, on: on})
}

func (s *Simulator) publishActuator(ctx context.Context, cmd actuatorCommand) {
	payload := []byte("0")
	if cmd.on {
		payload = []byte("1")
	}
	topic := ActuatorTopic(cmd.roomID, cmd.act)
	err := s.transport.Publish(ctx, topic, payload, bus.Acknowledged)
	s.metrics.Publish(metrics.KindActuator, err)
	if err != nil {
		s.logger.Warn("actuator command failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Simulator) shutdown() {
	s.stopTicker()
	s.alarm.Close()
	s.unsubscribeAll()
}

func (s *Simulator) publishStatus() {
	st := &Status{
		Mode:          s.mode,
		RoomSelected:  s.hasRoom,
		Vitals:        s.state,
		Alarm:         s.alarm.State(),
		Generation:    s.generation,
		Ticks:         s.ticks,
		SkippedTicks:  s.skipped,
		InFlight:      s.inFlight,
		LastTickAt:    s.lastTickAt,
		LastTickError: s.lastErr,
	}
	if s.hasRoom {
		st.RoomID = s.room.ID
		st.RoomName = s.room.Name
	}
	st.Subscriptions = make([]string, 0, len(s.subs))
	for _, sub := range s.subs {
		st.Subscriptions = append(st.Subscriptions, sub.Topic())
	}
	sort.Strings(st.Subscriptions)
	st.PendingRearms = []string{}
	for _, act := range Actuators {
		if s.alarm.Pending(act) {
			st.PendingRearms = append(st.PendingRearms, act.String())
		}
	}
	s.status.Store(st)
}
