package sim

import (
	"bytes"
	"fmt"
	"time"
)

// Actuator is one of the room's alarm devices.
type Actuator int

const (
	Siren Actuator = iota
	Horn
)

// Actuators lists every actuator.
var Actuators = []Actuator{Siren, Horn}

func (a Actuator) String() string {
	switch a {
	case Siren:
		return "siren"
	case Horn:
		return "horn"
	}
	return fmt.Sprintf("actuator(%d)", int(a))
}

// AlarmState is the latch and the last known actuator states.
type AlarmState struct {
	SirenOn      bool `json:"siren_on"`
	HornOn       bool `json:"horn_on"`
	AlertLatched bool `json:"alert_latched"`
}

// Switcher sends actuator commands. Implementations must not block.
type Switcher interface {
	SetActuator(act Actuator, on bool)
}

// AlarmController owns the alert latch and one re-arm timer per actuator.
// It is not safe for concurrent use; the simulator loop is its only caller.
// Timer expiries are reported through fire and applied with Rearm.
type AlarmController struct {
	state     AlarmState
	delay     time.Duration
	switcher  Switcher
	fire      func(act Actuator, token uint64)
	timers    map[Actuator]*rearmTimer
	nextToken uint64
}

type rearmTimer struct {
	timer *time.Timer
	token uint64
}

// NewAlarmController creates a controller with the given re-arm delay.
func NewAlarmController(delay time.Duration, sw Switcher, fire func(act Actuator, token uint64)) *AlarmController {
	return &AlarmController{
		delay:    delay,
		switcher: sw,
		fire:     fire,
		timers:   make(map[Actuator]*rearmTimer, len(Actuators)),
	}
}

// State returns the current alarm state.
func (a *AlarmController) State() AlarmState {
	return a.state
}

// Latch sets the alert latch and forces both actuators on.
func (a *AlarmController) Latch() {
	a.state.AlertLatched = true
	a.cancelAll()
	a.forceAll(true)
}

// Clear resets the latch, cancels pending re-arms and forces both actuators off.
func (a *AlarmController) Clear() {
	a.state.AlertLatched = false
	a.cancelAll()
	a.forceAll(false)
}

// Status applies an inbound actuator status payload. "1" means on, anything
// else off. It returns the resulting actuator state.
func (a *AlarmController) Status(act Actuator, payload []byte) bool {
	on := bytes.Equal(bytes.TrimSpace(payload), []byte("1"))
	a.set(act, on)
	if on {
		a.cancel(act)
		return true
	}
	if a.state.AlertLatched {
		a.arm(act)
	}
	return false
}

// Rearm handles a timer expiry. Stale tokens and expiries after the latch was
// cleared are ignored. It reports whether the actuators were re-activated.
func (a *AlarmController) Rearm(act Actuator, token uint64) bool {
	t, ok := a.timers[act]
	if !ok || t.token != token {
		return false
	}
	delete(a.timers, act)
	if !a.state.AlertLatched {
		return false
	}
	a.cancelAll()
	a.forceAll(true)
	return true
}

// Pending reports whether a re-arm timer is running for act.
func (a *AlarmController) Pending(act Actuator) bool {
	_, ok := a.timers[act]
	return ok
}

// Close stops every timer.
func (a *AlarmController) Close() {
	a.cancelAll()
}

func (a *AlarmController) arm(act Actuator) {
	a.cancel(act)
	a.nextToken++
	token := a.nextToken
	a.timers[act] = &rearmTimer{
		token: token,
		timer: time.AfterFunc(a.delay, func() { a.fire(act, token) }),
	}
}

func (a *AlarmController) cancel(act Actuator) {
	if t, ok := a.timers[act]; ok {
		t.timer.Stop()
		delete(a.timers, act)
	}
}

func (a *AlarmController) cancelAll() {
	for _, act := range Actuators {
		a.cancel(act)
	}
}

func (a *AlarmController) forceAll(on bool) {
	for _, act := range Actuators {
		a.set(act, on)
		if a.switcher != nil {
			a.switcher.SetActuator(act, on)
		}
	}
}

func (a *AlarmController) set(act Actuator, on bool) {
	switch act {
	case Siren:
		a.state.SirenOn = on
	case Horn:
		a.state.HornOn = on
	}
}
