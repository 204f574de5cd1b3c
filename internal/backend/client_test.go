package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vitals-sim/internal/catalog"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sensores/catalogo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"nombre":"Frecuencia Cardiaca","topico":"/hr"},
			{"id":2,"nombre":"Oxigenacion","topico":"/spo2"}
		]`))
	})
	mux.HandleFunc("/api/habitaciones/ocupados", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id_habitacion":7,"nombre_habitacion":"UCI 7","ocupado":true,"config_sensores":[
				{"id":1,"fecha_actualizacion":"2024-05-01T10:00:00Z","max_valor":100,"min_valor":60,"topico_sensor":"/hr"},
				{"id":2,"fecha_actualizacion":"2024-06-01T10:00:00Z","max_valor":110,"min_valor":50,"topico_sensor":"/hr"},
				{"id":3,"fecha_actualizacion":null,"max_valor":100,"min_valor":94,"topico_sensor":"/spo2"}
			]}
		]`))
	})
	mux.HandleFunc("/api/habitaciones/7/config_sensores", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":9,"fecha_actualizacion":"2024-07-01 08:30:00","max_valor":90,"min_valor":55,"topico_sensor":"/hr"}
		]`))
	})
	mux.HandleFunc("/api/habitaciones/8/config_sensores", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSensorCatalog(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{BaseURL: srv.URL}, nil)

	sensors, err := c.FetchSensorCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, []catalog.Sensor{
		{ID: 1, Name: "Frecuencia Cardiaca", TopicSuffix: "/hr"},
		{ID: 2, Name: "Oxigenacion", TopicSuffix: "/spo2"},
	}, sensors)
}

func TestFetchOccupiedRoomsKeepsLatestThreshold(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{BaseURL: srv.URL}, nil)

	rooms, err := c.FetchOccupiedRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, 7, rooms[0].ID)
	require.Equal(t, "UCI 7", rooms[0].Name)
	require.True(t, rooms[0].Occupied)
	require.Equal(t, 2, rooms[0].Thresholds.Len())

	hr, ok := rooms[0].Thresholds.Lookup("/hr")
	require.True(t, ok)
	require.Equal(t, 50.0, hr.Min)
	require.Equal(t, 110.0, hr.Max)

	spo2, ok := rooms[0].Thresholds.Lookup("/spo2")
	require.True(t, ok)
	require.True(t, spo2.UpdatedAt.IsZero())
}

func TestFetchRoomThresholds(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{BaseURL: srv.URL}, nil)

	th, err := c.FetchRoomThresholds(context.Background(), 7)
	require.NoError(t, err)
	hr, ok := th.Lookup("/hr")
	require.True(t, ok)
	require.Equal(t, 55.0, hr.Min)
	require.Equal(t, time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC), hr.UpdatedAt)
}

func TestFetchRoomThresholdsErrorStatus(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{BaseURL: srv.URL}, nil)

	_, err := c.FetchRoomThresholds(context.Background(), 8)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Retries: 2}, nil)

	sensors, err := c.FetchSensorCatalog(context.Background())
	require.NoError(t, err)
	require.Empty(t, sensors)
	require.Equal(t, int32(2), calls.Load())
}

func TestCancelledContext(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{BaseURL: srv.URL}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchSensorCatalog(ctx)
	require.Error(t, err)
}
