// Package config loads and validates the runtime configuration at startup.
// Fail-fast: if a required value is missing or invalid, Load returns an
// error and the process exits.
//
// Sources, lowest precedence first: defaults, an optional YAML file
// (match-service.yaml in the working directory or --config), a .env file,
// then the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const fileName = "match-service"

// Config holds all runtime configuration for the match service.
type Config struct {
	DatabaseURL string `mapstructure:"database_url" validate:"required"`
	RedisURL    string `mapstructure:"redis_url" validate:"omitempty,url"`
	AMQPURL     string `mapstructure:"amqp_url" validate:"omitempty,url"`

	HTTPPort string `mapstructure:"http_port" validate:"required,numeric"`
	GRPCPort string `mapstructure:"grpc_port" validate:"omitempty,numeric"`

	// DefaultThreshold applies to jobs without their own match threshold.
	DefaultThreshold float64 `mapstructure:"default_threshold" validate:"gt=0,lte=100"`
	// MatchTTL sets expiresAt on new matches; zero disables expiry.
	MatchTTL       time.Duration `mapstructure:"match_ttl" validate:"gte=0"`
	ExpirySchedule string        `mapstructure:"expiry_schedule" validate:"omitempty,cron"`
	RescanSchedule string        `mapstructure:"rescan_schedule" validate:"omitempty,cron"`

	// NotifyMirrors lists the transports notifications are copied to after
	// being stored.
	NotifyMirrors []string      `mapstructure:"notify_mirrors" validate:"dive,oneof=redis amqp"`
	ScoreCacheTTL time.Duration `mapstructure:"score_cache_ttl" validate:"gte=0"`

	TriggersEnabled bool   `mapstructure:"triggers_enabled"`
	TriggerQueue    string `mapstructure:"trigger_queue"`

	LogJSON  bool `mapstructure:"log_json"`
	LogDebug bool `mapstructure:"log_debug"`
}

// env maps config keys to their environment variables.
var env = map[string]string{
	"database_url":      "DATABASE_URL",
	"redis_url":         "REDIS_URL",
	"amqp_url":          "AMQP_URL",
	"http_port":         "MATCH_HTTP_PORT",
	"grpc_port":         "MATCH_GRPC_PORT",
	"default_threshold": "MATCH_DEFAULT_THRESHOLD",
	"match_ttl":         "MATCH_TTL",
	"expiry_schedule":   "MATCH_EXPIRY_SCHEDULE",
	"rescan_schedule":   "MATCH_RESCAN_SCHEDULE",
	"notify_mirrors":    "MATCH_NOTIFY_MIRRORS",
	"score_cache_ttl":   "MATCH_SCORE_CACHE_TTL",
	"triggers_enabled":  "MATCH_TRIGGERS_ENABLED",
	"trigger_queue":     "MATCH_TRIGGER_QUEUE",
	"log_json":          "LOG_JSON",
	"log_debug":         "LOG_DEBUG",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8083")
	v.SetDefault("grpc_port", "9093")
	v.SetDefault("default_threshold", 60.0)
	v.SetDefault("match_ttl", time.Duration(0))
	v.SetDefault("expiry_schedule", "@every 1h")
	v.SetDefault("rescan_schedule", "")
	v.SetDefault("notify_mirrors", []string{})
	v.SetDefault("score_cache_ttl", 10*time.Minute)
	v.SetDefault("triggers_enabled", true)
	v.SetDefault("trigger_queue", "match_triggers")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads the configuration. path, when non-empty, names a YAML file
// that must exist; otherwise match-service.yaml is read if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.NotifyMirrors = normalize(cfg.NotifyMirrors)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check enforces cross-field rules.
func (c *Config) check() error {
	for _, m := range c.NotifyMirrors {
		switch {
		case m == "redis" && c.RedisURL == "":
			return fmt.Errorf("invalid config: notify mirror redis requires REDIS_URL")
		case m == "amqp" && c.AMQPURL == "":
			return fmt.Errorf("invalid config: notify mirror amqp requires AMQP_URL")
		}
	}
	return nil
}

// Triggers reports whether event triggers should run: they are enabled and
// at least one broker is configured.
func (c *Config) Triggers() bool {
	return c.TriggersEnabled && (c.RedisURL != "" || c.AMQPURL != "")
}

func normalize(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		for _, part := range strings.Split(s, ",") {
			if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
