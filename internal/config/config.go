// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"vitals-sim/internal/vitals"
)

//go:embed schema.cue
var schemaCUE []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Broker configures the MQTT connection.
type Broker struct {
	URL            string        `yaml:"url"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// API configures the backend HTTP client.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// Simulation holds engine settings.
type Simulation struct {
	Tick       time.Duration     `yaml:"tick"`
	RearmDelay time.Duration     `yaml:"rearm_delay"`
	RoomID     int               `yaml:"room_id"`
	Mode       string            `yaml:"mode"`
	Seed       int64             `yaml:"seed"`
	SensorMap  map[string]string `yaml:"sensor_map"`
}

// Logging selects the log level and encoder.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Admin configures the control API.
type Admin struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Broker     Broker     `yaml:"broker"`
	API        API        `yaml:"api"`
	Simulation Simulation `yaml:"simulation"`
	Logging    Logging    `yaml:"logging"`
	Admin      Admin      `yaml:"admin"`
}

// DefaultSensorMap maps backend sensor names to the vital they report.
var DefaultSensorMap = map[string]vitals.Field{
	"Temperatura Corporal":        vitals.Temperature,
	"Presion Arterial Sistolica":  vitals.Systolic,
	"Presion Arterial Diastolica": vitals.Diastolic,
	"Oxigenacion":                 vitals.SpO2,
	"Frecuencia Cardiaca":         vitals.HeartRate,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, validates and decodes a YAML configuration file. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks YAML configuration bytes against the embedded CUE schema.
func Validate(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: cannot unmarshal YAML: %v", ErrInvalid, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	final := def.Unify(ctx.Encode(doc))
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Broker.URL == "" {
		c.Broker.URL = "tcp://localhost:1883"
	}
	if c.Broker.ClientID == "" {
		c.Broker.ClientID = "vitals-sim-" + uuid.NewString()
	}
	if c.Broker.ConnectTimeout == 0 {
		c.Broker.ConnectTimeout = 10 * time.Second
	}
	if c.Broker.PublishTimeout == 0 {
		c.Broker.PublishTimeout = 5 * time.Second
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:3000"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 5 * time.Second
	}
	if c.Simulation.Tick == 0 {
		c.Simulation.Tick = time.Second
	}
	if c.Simulation.RearmDelay == 0 {
		c.Simulation.RearmDelay = 2 * time.Minute
	}
	if c.Simulation.Mode == "" {
		c.Simulation.Mode = vitals.Idle.String()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8080"
	}
}

// ApplyEnv overrides broker URL, API base URL and tick interval from
// MQTT_BROKER, API_BASE_URL and TICK_INTERVAL.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("MQTT_BROKER"); v != "" {
		c.Broker.URL = v
	}
	if v := getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("TICK_INTERVAL: %w: must be positive", ErrInvalid)
		}
		c.Simulation.Tick = d
	}
	return nil
}

// SensorMapping returns the default sensor map merged with the configured
// overrides.
func (c *Config) SensorMapping() (map[string]vitals.Field, error) {
	out := make(map[string]vitals.Field, len(DefaultSensorMap)+len(c.Simulation.SensorMap))
	for name, f := range DefaultSensorMap {
		out[name] = f
	}
	for name, raw := range c.Simulation.SensorMap {
		f, err := vitals.ParseField(raw)
		if err != nil {
			return nil, fmt.Errorf("sensor_map[%q]: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}

// InitialMode parses simulation.mode.
func (c *Config) InitialMode() (vitals.Mode, error) {
	return vitals.ParseMode(c.Simulation.Mode)
}
