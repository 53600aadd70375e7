// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port        string           `yaml:"port"`
	FrontendURL string           `yaml:"frontend_url"`
	DBPath      string           `yaml:"db_path"`
	SessionTTL  time.Duration    `yaml:"session_ttl"`
	LogLevel    string           `yaml:"log_level"`
	Scheduler   SchedulerConfig  `yaml:"scheduler"`
	Transcript  TranscriptConfig `yaml:"transcript"`
}

// SchedulerConfig points at the remote scheduling service.
type SchedulerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TranscriptConfig controls NDJSON conversation transcripts.
type TranscriptConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	QueueSize int    `yaml:"queue_size"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:       "3000",
		DBPath:     "./data/planchat.db",
		SessionTTL: 60 * time.Minute,
		LogLevel:   "info",
		Scheduler: SchedulerConfig{
			BaseURL: "http://localhost:8080/api/chatbot",
			Timeout: 30 * time.Second,
		},
		Transcript: TranscriptConfig{
			Enabled:   false,
			Dir:       "./data/transcripts",
			QueueSize: 1000,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PLANCHAT_PORT", c.Port)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Scheduler.BaseURL = getEnv("SCHEDULER_BASE_URL", c.Scheduler.BaseURL)
	c.Scheduler.Timeout = getEnvDuration("SCHEDULER_TIMEOUT", c.Scheduler.Timeout)
	c.Transcript.Enabled = getEnvBool("TRANSCRIPT_ENABLED", c.Transcript.Enabled)
	c.Transcript.Dir = getEnv("TRANSCRIPT_DIR", c.Transcript.Dir)
	c.Transcript.QueueSize = getEnvInt("TRANSCRIPT_QUEUE_SIZE", c.Transcript.QueueSize)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PLANCHAT_PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.Scheduler.BaseURL == "" {
		return errors.New("SCHEDULER_BASE_URL cannot be empty")
	}
	u, err := url.Parse(c.Scheduler.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SCHEDULER_BASE_URL %q must be an absolute http(s) URL", c.Scheduler.BaseURL)
	}
	if c.Scheduler.Timeout <= 0 {
		return errors.New("SCHEDULER_TIMEOUT must be > 0")
	}
	if c.SessionTTL < 0 {
		return errors.New("SESSION_TTL cannot be negative")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return errors.New("TRANSCRIPT_DIR cannot be empty when transcripts are enabled")
	}
	if c.Transcript.QueueSize <= 0 {
		return errors.New("TRANSCRIPT_QUEUE_SIZE must be > 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the local server.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", name, err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
