package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSwitcher struct {
	commands []string
}

func (r *recordingSwitcher) SetActuator(act Actuator, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	r.commands = append(r.commands, act.String()+"="+state)
}

type firing struct {
	act   Actuator
	token uint64
}

func newTestAlarm(delay time.Duration) (*AlarmController, *recordingSwitcher, chan firing) {
	sw := &recordingSwitcher{}
	fired := make(chan firing, 8)
	a := NewAlarmController(delay, sw, func(act Actuator, token uint64) {
		fired <- firing{act: act, token: token}
	})
	return a, sw, fired
}

func TestAlarmLatchForcesBothOn(t *testing.T) {
	a, sw, _ := newTestAlarm(time.Hour)
	a.Latch()
	require.Equal(t, AlarmState{SirenOn: true, HornOn: true, AlertLatched: true}, a.State())
	require.Equal(t, []string{"siren=on", "horn=on"}, sw.commands)

	a.Clear()
	require.Equal(t, AlarmState{}, a.State())
	require.Equal(t, []string{"siren=on", "horn=on", "siren=off", "horn=off"}, sw.commands)
}

func TestAlarmStatusPayloads(t *testing.T) {
	a, _, _ := newTestAlarm(time.Hour)
	defer a.Close()

	require.True(t, a.Status(Siren, []byte("1")))
	require.True(t, a.State().SirenOn)
	require.False(t, a.Status(Siren, []byte("0")))
	require.True(t, a.Status(Horn, []byte(" 1\n")))
	require.False(t, a.Status(Horn, []byte("on")))
	require.False(t, a.Status(Horn, []byte{0xff, 0x00}))
	require.False(t, a.State().HornOn)

	// Not latched: off never arms a timer.
	require.False(t, a.Pending(Siren))
	require.False(t, a.Pending(Horn))
}

func TestAlarmRearmAfterDelay(t *testing.T) {
	a, sw, fired := newTestAlarm(20 * time.Millisecond)
	defer a.Close()

	a.Latch()
	a.Status(Siren, []byte("0"))
	require.True(t, a.Pending(Siren))
	require.False(t, a.State().SirenOn)

	var f firing
	select {
	case f = <-fired:
	case <-time.After(time.Second):
		t.Fatal("re-arm timer did not fire")
	}
	require.Equal(t, Siren, f.act)
	require.True(t, a.Rearm(f.act, f.token))
	require.Equal(t, AlarmState{SirenOn: true, HornOn: true, AlertLatched: true}, a.State())
	require.False(t, a.Pending(Siren))
	require.False(t, a.Pending(Horn))
	require.Equal(t, []string{"siren=on", "horn=on"}, sw.commands[len(sw.commands)-2:])

	// The same expiry delivered twice is ignored.
	require.False(t, a.Rearm(f.act, f.token))
}

func TestAlarmStaleTokenIgnored(t *testing.T) {
	a, _, fired := newTestAlarm(20 * time.Millisecond)
	defer a.Close()

	a.Latch()
	a.Status(Horn, []byte("0"))
	first := <-fired
	a.Status(Horn, []byte("0"))
	require.False(t, a.Rearm(first.act, first.token))
	require.False(t, a.State().HornOn)

	second := <-fired
	require.NotEqual(t, first.token, second.token)
	require.True(t, a.Rearm(second.act, second.token))
	require.True(t, a.State().HornOn)
}

func TestAlarmStatusOnCancelsTimer(t *testing.T) {
	a, _, fired := newTestAlarm(30 * time.Millisecond)
	defer a.Close()

	a.Latch()
	a.Status(Siren, []byte("0"))
	require.True(t, a.Pending(Siren))
	a.Status(Siren, []byte("1"))
	require.False(t, a.Pending(Siren))

	select {
	case f := <-fired:
		t.Fatalf("cancelled timer fired: %+v", f)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAlarmClearCancelsTimersAndIgnoresLateExpiry(t *testing.T) {
	a, _, fired := newTestAlarm(20 * time.Millisecond)
	defer a.Close()

	a.Latch()
	a.Status(Siren, []byte("0"))
	a.Status(Horn, []byte("0"))
	f := <-fired

	a.Clear()
	require.False(t, a.Pending(Siren))
	require.False(t, a.Pending(Horn))
	require.False(t, a.Rearm(f.act, f.token))
	require.Equal(t, AlarmState{}, a.State())
}
