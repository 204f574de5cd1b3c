package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"vitals-sim/internal/catalog"
	"vitals-sim/internal/metrics"
	"vitals-sim/internal/sim"
	"vitals-sim/internal/vitals"
)

type fakeController struct {
	status sim.Status
	rooms  []catalog.Room
	err    error
}

func (f *fakeController) Status() sim.Status    { return f.status }
func (f *fakeController) Events() []sim.Event   { return []sim.Event{{Type: "mode", Details: "high"}} }
func (f *fakeController) Rooms() []catalog.Room { return f.rooms }

func (f *fakeController) SetMode(_ context.Context, m vitals.Mode) error {
	if f.err != nil {
		return f.err
	}
	f.status.Mode = m
	return nil
}

func (f *fakeController) Stop(ctx context.Context) error {
	return f.SetMode(ctx, vitals.Idle)
}

func (f *fakeController) SelectRoom(_ context.Context, id int) error {
	for _, r := range f.rooms {
		if r.ID == id {
			f.status.RoomID = id
			f.status.RoomSelected = true
			return nil
		}
	}
	return fmt.Errorf("select room %d: %w", id, catalog.ErrUnknownRoom)
}

func newTestServer() (*fakeController, *metrics.Metrics, http.Handler) {
	ctl := &fakeController{rooms: []catalog.Room{{
		ID:       3,
		Name:     "UCI 3",
		Occupied: true,
		Thresholds: catalog.NewThresholds([]catalog.ThresholdConfig{
			{SensorTopic: "/hr", Min: 60, Max: 100},
		}),
	}}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	return ctl, m, NewServer(ctl, m, reg, nil).Handler()
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHandleMode(t *testing.T) {
	ctl, m, h := newTestServer()

	w := do(h, http.MethodPost, "/mode?name=high")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, vitals.High, ctl.status.Mode)

	var st map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Equal(t, "high", st["mode"])

	w = do(h, http.MethodPost, "/mode?name=frantic")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown mode")

	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/mode", "2xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/mode", "4xx")))
}

func TestHandleModeWrongMethod(t *testing.T) {
	_, _, h := newTestServer()
	w := do(h, http.MethodGet, "/mode?name=high")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUnmatchedPathsShareOneSeries(t *testing.T) {
	_, m, h := newTestServer()
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusNotFound, do(h, http.MethodGet, fmt.Sprintf("/junk/%d", i)).Code)
	}
	do(h, http.MethodGet, "/status")

	require.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequests))
	require.Equal(t, 50.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "4xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/status", "2xx")))
}

func TestHandleStop(t *testing.T) {
	ctl, _, h := newTestServer()
	ctl.status.Mode = vitals.Low
	w := do(h, http.MethodPost, "/stop")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, vitals.Idle, ctl.status.Mode)
}

func TestHandleRoom(t *testing.T) {
	ctl, _, h := newTestServer()

	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/room?id=3").Code)
	require.Equal(t, 3, ctl.status.RoomID)
	require.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/room?id=4").Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/room?id=abc").Code)
}

func TestHandleRooms(t *testing.T) {
	_, _, h := newTestServer()
	w := do(h, http.MethodGet, "/rooms")
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []roomView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	require.Equal(t, "UCI 3", rooms[0].Name)
	require.Equal(t, []thresholdView{{SensorTopic: "/hr", Min: 60, Max: 100}}, rooms[0].Thresholds)
}

func TestHandleEventsAndMetrics(t *testing.T) {
	_, _, h := newTestServer()
	w := do(h, http.MethodGet, "/events")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"details":"high"`)

	w = do(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "vitals_sim_admin_requests_total"))
}

func TestCommandFailureMapsToStatus(t *testing.T) {
	ctl, _, h := newTestServer()
	ctl.err = sim.ErrStopped
	require.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/mode?name=normal").Code)
	ctl.err = fmt.Errorf("boom")
	require.Equal(t, http.StatusInternalServerError, do(h, http.MethodPost, "/stop").Code)
}
