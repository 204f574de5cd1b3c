package sim

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"vitals-sim/internal/metrics"
	"vitals-sim/internal/vitals"
)

// tick advances the vitals and dispatches the resulting messages. A tick is
// skipped while the previous dispatch is still in flight.
func (s *Simulator) tick(ctx context.Context) {
	if !s.hasRoom {
		s.metrics.Tick(metrics.TickNoRoom)
		s.lastErr = ErrNoRoomSelected.Error()
		s.logger.Warn("tick failed", zap.Error(ErrNoRoomSelected))
		return
	}
	if s.inFlight {
		s.skipped++
		s.metrics.Tick(metrics.TickSkipped)
		s.logger.Warn("tick skipped, previous dispatch still in flight", zap.Int("room_id", s.room.ID))
		return
	}

	s.state = vitals.Step(s.state, s.mode, s.rng)

	room, ok := s.registry.Room(s.room.ID)
	if !ok {
		room = s.room
	}
	plan, err := Plan(room.ID, s.sensors.All(), s.state, room.Thresholds, s.mapping)
	if err != nil {
		s.logger.Warn("tick plan incomplete", zap.Int("room_id", room.ID), zap.Error(err))
	}
	s.inFlight = true
	gen := s.generation
	go func() {
		res := s.pipeline.Dispatch(ctx, plan)
		res.Generation = gen
		s.post(dispatchEvent{result: res})
	}()
}

func (s *Simulator) settle(res TickResult) {
	s.inFlight = false
	if res.Generation != s.generation {
		s.logger.Debug("dropping result of previous generation",
			zap.Uint64("generation", res.Generation), zap.Uint64("current", s.generation))
		return
	}
	s.ticks++
	s.lastTickAt = time.Now().UTC()
	if res.Partial() {
		s.lastErr = res.Err.Error()
		s.metrics.Tick(metrics.TickPartial)
		return
	}
	s.lastErr = ""
	s.metrics.Tick(metrics.TickOK)
}

func (s *Simulator) handleMessage(ctx context.Context, ev messageEvent) {
	if ev.gen != s.subGen || !s.hasRoom {
		return
	}
	switch ev.topic {
	case ActuatorTopic(s.room.ID, Siren):
		s.actuatorStatus(Siren, ev.payload)
	case ActuatorTopic(s.room.ID, Horn):
		s.actuatorStatus(Horn, ev.payload)
	case ConfigTopic(s.room.ID):
		s.refreshThresholds(ctx)
	}
}

func (s *Simulator) actuatorStatus(act Actuator, payload []byte) {
	state := "off"
	if s.alarm.Status(act, payload) {
		state = "on"
	}
	s.journal.Record("actuator", act.String()+" "+state)
	s.logger.Debug("actuator status", zap.Stringer("actuator", act), zap.String("state", state))
}

func (s *Simulator) rearm(ev rearmEvent) {
	if !s.alarm.Rearm(ev.act, ev.token) {
		return
	}
	s.metrics.Rearm()
	s.journal.Record("alarm", "re-armed by "+ev.act.String())
	s.logger.Info("alarm re-armed", zap.Stringer("actuator", ev.act), zap.Int("room_id", s.room.ID))
}

// refreshThresholds fetches the room's thresholds off the loop. Each fetch
// carries a sequence number; a result older than the last applied one for the
// same room is dropped.
func (s *Simulator) refreshThresholds(ctx context.Context) {
	if s.fetcher == nil {
		return
	}
	roomID := s.room.ID
	s.fetchSeq++
	seq := s.fetchSeq
	go func() {
		th, err := s.fetcher.FetchRoomThresholds(ctx, roomID)
		s.post(fetchEvent{roomID: roomID, seq: seq, thresholds: th, err: err})
	}()
}

func (s *Simulator) applyThresholds(ev fetchEvent) {
	if ev.seq <= s.appliedSeq[ev.roomID] {
		s.journal.Record("config", "stale thresholds dropped for room "+strconv.Itoa(ev.roomID))
		s.logger.Debug("dropping stale threshold fetch",
			zap.Int("room_id", ev.roomID), zap.Uint64("seq", ev.seq), zap.Uint64("applied", s.appliedSeq[ev.roomID]))
		return
	}
	err := ev.err
	if err == nil {
		err = s.registry.ReplaceThresholds(ev.roomID, ev.thresholds)
	}
	s.metrics.ConfigRefresh(err)
	if err != nil {
		ferr := &ConfigFetchError{RoomID: ev.roomID, Err: err}
		s.journal.Record("config", ferr.Error())
		s.logger.Error("threshold refresh failed", zap.Int("room_id", ev.roomID), zap.Error(ferr))
		return
	}
	s.appliedSeq[ev.roomID] = ev.seq
	if s.hasRoom && s.room.ID == ev.roomID {
		if room, ok := s.registry.Room(ev.roomID); ok {
			s.room = room
		}
	}
	s.journal.Record("config", "thresholds refreshed for room "+strconv.Itoa(ev.roomID))
	s.logger.Info("thresholds refreshed", zap.Int("room_id", ev.roomID), zap.Int("topics", ev.thresholds.Len()))
}
