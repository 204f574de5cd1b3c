// Package scenario drives the simulator through scripted, timed mode phases.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"vitals-sim/internal/logging"
	"vitals-sim/internal/vitals"
)

// ErrInvalid is wrapped by every scenario validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is an ordered list of phases, optionally repeated.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Loop        bool    `yaml:"loop,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase holds the simulator in one mode for a duration. A non-zero RoomID
// selects that room before the mode is entered.
type Phase struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Mode        string        `yaml:"mode"`
	Duration    time.Duration `yaml:"duration"`
	RoomID      int           `yaml:"room_id,omitempty"`
}

// Driver is the part of the simulator a scenario controls.
type Driver interface {
	SelectRoom(ctx context.Context, roomID int) error
	SetMode(ctx context.Context, mode vitals.Mode) error
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every phase names a known mode and a positive duration.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalid)
	}
	for i, p := range s.Phases {
		if _, err := vitals.ParseMode(p.Mode); err != nil {
			return fmt.Errorf("%w: phase %d (%s): %v", ErrInvalid, i, p.Name, err)
		}
		if p.Duration <= 0 {
			return fmt.Errorf("%w: phase %d (%s): duration must be positive", ErrInvalid, i, p.Name)
		}
		if p.RoomID < 0 {
			return fmt.Errorf("%w: phase %d (%s): negative room id", ErrInvalid, i, p.Name)
		}
	}
	return nil
}

// Resolve returns the built-in scenario with that name or loads it from a file.
func Resolve(nameOrPath string) (*Scenario, error) {
	if s, ok := BuiltIn()[nameOrPath]; ok {
		return &s, nil
	}
	return Load(nameOrPath)
}

// Run plays the scenario against d until it ends or ctx is cancelled.
func Run(ctx context.Context, d Driver, s *Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}
	logger := logging.FromContext(logging.WithName(ctx, "scenario")).With(zap.String("scenario", s.Name))
	for {
		for _, p := range s.Phases {
			if err := runPhase(ctx, d, p, logger); err != nil {
				return err
			}
		}
		if !s.Loop {
			logger.Info("scenario finished")
			return nil
		}
	}
}

func runPhase(ctx context.Context, d Driver, p Phase, logger *zap.Logger) error {
	mode, err := vitals.ParseMode(p.Mode)
	if err != nil {
		return err
	}
	if p.RoomID > 0 {
		if err := d.SelectRoom(ctx, p.RoomID); err != nil {
			return fmt.Errorf("phase %s: %w", p.Name, err)
		}
	}
	if err := d.SetMode(ctx, mode); err != nil {
		return fmt.Errorf("phase %s: %w", p.Name, err)
	}
	logger.Info("phase started",
		zap.String("phase", p.Name),
		zap.Stringer("mode", mode),
		zap.Duration("duration", p.Duration),
	)

	timer := time.NewTimer(p.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
