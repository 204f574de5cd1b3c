package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"vitals-sim/internal/logging"
	"vitals-sim/internal/vitals"
)

type fakeDriver struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (d *fakeDriver) SelectRoom(_ context.Context, roomID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "room:"+strconv.Itoa(roomID))
	return d.fail
}

func (d *fakeDriver) SetMode(_ context.Context, mode vitals.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "mode:"+mode.String())
	return nil
}

func (d *fakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	require.NoError(t, err)
	require.Equal(t, "example", sc.Name)
	require.Equal(t, "basic test scenario", sc.Description)
	require.Len(t, sc.Phases, 2)
	require.Equal(t, 30*time.Second, sc.Phases[0].Duration)
	require.Equal(t, 3, sc.Phases[0].RoomID)
	require.Equal(t, "high", sc.Phases[1].Mode)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no phases":   "name: empty\nphases: []\n",
		"bad mode":    "phases:\n  - name: x\n    mode: panic\n    duration: 1s\n",
		"no duration": "phases:\n  - name: x\n    mode: high\n",
		"bad room id": "phases:\n  - name: x\n    mode: high\n    duration: 1s\n    room_id: -2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			_, err := Load(path)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestBuiltInScenarios(t *testing.T) {
	arcs := BuiltIn()
	for _, name := range []string{"deterioration", "hypotension"} {
		arc, ok := arcs[name]
		require.True(t, ok, name)
		require.NotEmpty(t, arc.Description)
		require.NoError(t, arc.Validate())
	}
	require.True(t, arcs["hypotension"].Loop)

	s, err := Resolve("deterioration")
	require.NoError(t, err)
	require.Equal(t, "Deterioration", s.Name)
}

func TestRunDrivesPhasesInOrder(t *testing.T) {
	s := &Scenario{
		Name: "short",
		Phases: []Phase{
			{Name: "a", Mode: "stable", Duration: time.Millisecond, RoomID: 2},
			{Name: "b", Mode: "high", Duration: time.Millisecond},
			{Name: "c", Mode: "idle", Duration: time.Millisecond},
		},
	}
	d := &fakeDriver{}
	require.NoError(t, Run(context.Background(), d, s))
	require.Equal(t, []string{"room:2", "mode:stable", "mode:high", "mode:idle"}, d.Calls())
}

func TestRunLogsThroughContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.NewContext(context.Background(), zap.New(core))
	s := &Scenario{
		Name:   "logged",
		Phases: []Phase{{Name: "a", Mode: "normal", Duration: time.Millisecond}},
	}
	require.NoError(t, Run(ctx, &fakeDriver{}, s))

	started := logs.FilterMessage("phase started").All()
	require.Len(t, started, 1)
	require.Equal(t, "scenario", started[0].LoggerName)
	require.Equal(t, "logged", started[0].ContextMap()["scenario"])
	require.Equal(t, 1, logs.FilterMessage("scenario finished").Len())
}

func TestRunLoopsUntilCancelled(t *testing.T) {
	s := &Scenario{
		Loop:   true,
		Phases: []Phase{{Name: "a", Mode: "low", Duration: time.Millisecond}},
	}
	d := &fakeDriver{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Run(ctx, d, s)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Greater(t, len(d.Calls()), 1)
}

func TestRunStopsOnDriverError(t *testing.T) {
	boom := errors.New("unknown room")
	s := &Scenario{Phases: []Phase{{Name: "a", Mode: "high", Duration: time.Hour, RoomID: 9}}}
	err := Run(context.Background(), &fakeDriver{fail: boom}, s)
	require.ErrorIs(t, err, boom)
}
