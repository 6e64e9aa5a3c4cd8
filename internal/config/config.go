// Package config loads the cronmachine YAML configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Timezone        string        `yaml:"timezone"`
	IdleInterval    string        `yaml:"idle_interval"`
	StrictSchedules bool          `yaml:"strict_schedules"`
	Log             LogConfig     `yaml:"log"`
	HTTP            HTTPConfig    `yaml:"http"`
	Journal         JournalConfig `yaml:"journal"`
	Tasks           []TaskConfig  `yaml:"tasks"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type HTTPConfig struct {
	// Addr is the status API bind address. Empty disables the API.
	Addr       string  `yaml:"addr"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type TaskConfig struct {
	ID       string         `yaml:"id"`
	Schedule string         `yaml:"schedule"`
	Kind     string         `yaml:"kind"`
	Payload  map[string]any `yaml:"payload"`
}

func Defaults() Config {
	return Config{
		Log:     LogConfig{Level: "info", Console: true},
		HTTP:    HTTPConfig{Addr: ":8080", RatePerSec: 20, Burst: 40},
		Journal: JournalConfig{Enabled: true},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Defaults, rejecting unknown fields, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Idle(); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.RatePerSec < 0 {
		errs = append(errs, errors.New("http.rate_per_sec: must be >= 0"))
	}
	if c.HTTP.Burst < 0 {
		errs = append(errs, errors.New("http.burst: must be >= 0"))
	}
	for i, t := range c.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		if strings.TrimSpace(t.ID) == "" {
			errs = append(errs, fmt.Errorf("%s.id: required", path))
		}
		if strings.TrimSpace(t.Kind) == "" {
			errs = append(errs, fmt.Errorf("%s.kind: required", path))
		}
		if _, err := t.PayloadJSON(); err != nil {
			errs = append(errs, fmt.Errorf("%s.payload: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Idle returns the idle interval. Empty or zero yields zero, which the
// scheduler treats as its own default.
func (c *Config) Idle() (time.Duration, error) {
	raw := strings.TrimSpace(c.IdleInterval)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("idle_interval: invalid duration %q: %w", c.IdleInterval, err)
	}
	if d < 0 {
		return 0, errors.New("idle_interval: must be >= 0")
	}
	return d, nil
}

// PayloadJSON re-encodes the YAML payload as JSON for the handlers.
func (t TaskConfig) PayloadJSON() (json.RawMessage, error) {
	if t.Payload == nil {
		return json.RawMessage("{}"), nil
	}
	b, err := json.Marshal(normalizeYAML(t.Payload))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return b, nil
}

// normalizeYAML ensures all map keys are strings so the result can be JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalizeYAML(x[i])
		}
		return out
	default:
		return in
	}
}
