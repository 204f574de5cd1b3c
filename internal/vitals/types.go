// Vital-sign state, simulation modes and physiological limits
package vitals

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects the per-tick drift applied to the vital signs.
type Mode int

// Simulation modes. Idle means no simulation is running.
const (
	Idle Mode = iota
	Normal
	High
	Low
	Stable
)

var modeNames = map[Mode]string{
	Idle:   "idle",
	Normal: "normal",
	High:   "high",
	Low:    "low",
	Stable: "stable",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Alerting reports whether entering the mode latches the alarm.
func (m Mode) Alerting() bool {
	return m == High || m == Low
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Idle, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Field names one vital sign.
type Field string

// Vital sign fields.
const (
	Temperature Field = "temperature"
	Systolic    Field = "systolic"
	Diastolic   Field = "diastolic"
	SpO2        Field = "spo2"
	HeartRate   Field = "heart_rate"
)

// Fields lists every vital sign in a stable order.
var Fields = []Field{Temperature, Systolic, Diastolic, SpO2, HeartRate}

// ParseField converts a field name into a Field.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown vital field %q", s)
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Min(r.Max, math.Max(r.Min, v))
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Limits are the physiological clamp bounds for every field.
var Limits = map[Field]Range{
	Temperature: {Min: 35, Max: 38},
	Systolic:    {Min: 90, Max: 180},
	Diastolic:   {Min: 60, Max: 120},
	SpO2:        {Min: 95, Max: 100},
	HeartRate:   {Min: 60, Max: 100},
}

// Drift is the per-tick delta range applied in High (added) and Low (subtracted).
var Drift = map[Field]Range{
	Temperature: {Min: 0.05, Max: 0.2},
	Systolic:    {Min: 5, Max: 10},
	Diastolic:   {Min: 3, Max: 7},
	SpO2:        {Min: 0.5, Max: 2},
	HeartRate:   {Min: 2, Max: 5},
}

// State holds the simulated vital signs.
type State struct {
	Temperature float64 `json:"temperature"`
	Systolic    float64 `json:"systolic"`
	Diastolic   float64 `json:"diastolic"`
	SpO2        float64 `json:"spo2"`
	HeartRate   float64 `json:"heart_rate"`
}

// Initial is the state at process start.
func Initial() State {
	return State{Temperature: 36, Systolic: 120, Diastolic: 80, SpO2: 95, HeartRate: 65}
}

// Baseline is the state Stable mode resets to.
func Baseline() State {
	return State{Temperature: 36, Systolic: 120, Diastolic: 80, SpO2: 95, HeartRate: 60}
}

// Get returns the value of one field.
func (s State) Get(f Field) float64 {
	switch f {
	case Temperature:
		return s.Temperature
	case Systolic:
		return s.Systolic
	case Diastolic:
		return s.Diastolic
	case SpO2:
		return s.SpO2
	case HeartRate:
		return s.HeartRate
	}
	return 0
}

func (s *State) set(f Field, v float64) {
	switch f {
	case Temperature:
		s.Temperature = v
	case Systolic:
		s.Systolic = v
	case Diastolic:
		s.Diastolic = v
	case SpO2:
		s.SpO2 = v
	case HeartRate:
		s.HeartRate = v
	}
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
