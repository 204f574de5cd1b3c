// Package admin exposes the HTTP control API of the simulator.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vitals-sim/internal/catalog"
	"vitals-sim/internal/metrics"
	"vitals-sim/internal/sim"
	"vitals-sim/internal/vitals"
)

// Controller is the simulator surface driven by the API.
type Controller interface {
	Status() sim.Status
	Events() []sim.Event
	Rooms() []catalog.Room
	SetMode(ctx context.Context, mode vitals.Mode) error
	Stop(ctx context.Context) error
	SelectRoom(ctx context.Context, roomID int) error
}

// Server serves the control API.
type Server struct {
	ctl      Controller
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	mux      *http.ServeMux
}

// NewServer builds the API around ctl. Metrics are served from gatherer.
func NewServer(ctl Controller, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ctl: ctl, metrics: m, gatherer: gatherer, logger: logger.Named("admin"), mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /rooms", s.handleRooms)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.HandleFunc("POST /mode", s.handleMode)
	s.mux.HandleFunc("POST /stop", s.handleStop)
	s.mux.HandleFunc("POST /room", s.handleRoom)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the API handler wrapped with request accounting.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		s.metrics.Request(r.Method, routeLabel(r), rec.status)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Start listens on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("admin API listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// routeLabel is the matched mux pattern without its method, or "unmatched".
func routeLabel(r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" {
		return "unmatched"
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

type thresholdView struct {
	SensorTopic string    `json:"sensor_topic"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type roomView struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Occupied   bool            `json:"occupied"`
	Thresholds []thresholdView `json:"thresholds"`
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.ctl.Rooms()
	out := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		v := roomView{ID: room.ID, Name: room.Name, Occupied: room.Occupied, Thresholds: []thresholdView{}}
		for _, c := range room.Thresholds.Configs() {
			v.Thresholds = append(v.Thresholds, thresholdView(c))
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Events())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := vitals.ParseMode(r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctl.SetMode(r.Context(), mode); err != nil {
		s.commandFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Stop(r.Context()); err != nil {
		s.commandFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("id must be a positive integer"))
		return
	}
	if err := s.ctl.SelectRoom(r.Context(), id); err != nil {
		s.commandFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) commandFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownRoom):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, sim.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Warn("command failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
