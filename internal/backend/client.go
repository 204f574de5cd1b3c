// Package backend is the HTTP client for the hospital backend API: the sensor
// catalog, the occupied rooms and per-room threshold configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"vitals-sim/internal/catalog"
)

// ErrUnexpectedStatus is wrapped when the backend answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// Client fetches catalog and room data from the backend.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New creates a backend client.
func New(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	http := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: http, logger: logger.Named("backend")}
}

// FetchSensorCatalog returns the static sensor catalog.
func (c *Client) FetchSensorCatalog(ctx context.Context) ([]catalog.Sensor, error) {
	var dtos []sensorDTO
	if err := c.get(ctx, "/api/sensores/catalogo", &dtos); err != nil {
		return nil, err
	}
	out := make([]catalog.Sensor, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toSensor())
	}
	c.logger.Debug("fetched sensor catalog", zap.Int("sensors", len(out)))
	return out, nil
}

// FetchOccupiedRooms returns the occupied rooms with their thresholds.
func (c *Client) FetchOccupiedRooms(ctx context.Context) ([]catalog.Room, error) {
	var dtos []roomDTO
	if err := c.get(ctx, "/api/habitaciones/ocupados", &dtos); err != nil {
		return nil, err
	}
	out := make([]catalog.Room, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toRoom())
	}
	c.logger.Debug("fetched occupied rooms", zap.Int("rooms", len(out)))
	return out, nil
}

// FetchRoomThresholds returns the current threshold set of one room.
func (c *Client) FetchRoomThresholds(ctx context.Context, roomID int) (catalog.Thresholds, error) {
	var dtos []thresholdDTO
	path := "/api/habitaciones/" + strconv.Itoa(roomID) + "/config_sensores"
	if err := c.get(ctx, path, &dtos); err != nil {
		return catalog.Thresholds{}, err
	}
	return toThresholds(dtos), nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(result).
		Get(path)
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Warn("backend returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("GET %s: %w: %d", path, ErrUnexpectedStatus, resp.StatusCode())
	}
	return nil
}
