// Package config loads dropzone settings from an optional YAML file and
// DROPZONE_* environment variables.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/viper"

	"github.com/dharsanguruparan/dropzone/internal/processing"
	"github.com/dharsanguruparan/dropzone/internal/widget"
)

// EnvPrefix prefixes every environment override, e.g. DROPZONE_SERVER_ADDRESS.
const EnvPrefix = "DROPZONE"

// Config represents runtime configuration for the server and worker.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Widget    WidgetConfig    `mapstructure:"widget"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Signing   SigningConfig   `mapstructure:"signing"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Events    EventsConfig    `mapstructure:"events"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WidgetConfig struct {
	AcceptedTypes []string `mapstructure:"accepted_types"`
	MaxFileSize   int64    `mapstructure:"max_file_size"`
	MaxFiles      int      `mapstructure:"max_files"`
	AllowMultiple bool     `mapstructure:"allow_multiple"`
	ShowPreviews  bool     `mapstructure:"show_previews"`
	Disabled      bool     `mapstructure:"disabled"`
}

type SimulatorConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	MinStep     float64       `mapstructure:"min_step"`
	MaxStep     float64       `mapstructure:"max_step"`
}

type SigningConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Concurrency int  `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const (
	defaultAddress         = ":8080"
	defaultMaxRequestBytes = 64 << 20 // 64 MiB
	defaultShutdownTimeout = 10 * time.Second
	defaultSignedTTL       = 5 * time.Minute
	defaultRedisAddr       = "localhost:6379"
	defaultLogLevel        = "info"
	defaultConcurrency     = 2
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", defaultAddress)
	v.SetDefault("server.max_request_bytes", defaultMaxRequestBytes)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout.String())

	v.SetDefault("widget.accepted_types", widget.DefaultAcceptedTypes)
	v.SetDefault("widget.max_file_size", widget.DefaultMaxFileSize)
	v.SetDefault("widget.max_files", widget.DefaultMaxFiles)
	v.SetDefault("widget.allow_multiple", true)
	v.SetDefault("widget.show_previews", true)
	v.SetDefault("widget.disabled", false)

	v.SetDefault("simulator.min_interval", processing.DefaultMinInterval.String())
	v.SetDefault("simulator.max_interval", processing.DefaultMaxInterval.String())
	v.SetDefault("simulator.min_step", processing.DefaultMinStep)
	v.SetDefault("simulator.max_step", processing.DefaultMaxStep)

	v.SetDefault("signing.secret", "")
	v.SetDefault("signing.ttl", defaultSignedTTL.String())

	v.SetDefault("redis.addr", defaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.concurrency", defaultConcurrency)
	v.SetDefault("log.level", defaultLogLevel)
}

// Load reads configuration from path, or from ./dropzone.yaml when path is
// empty, then applies environment overrides. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dropzone")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()

	return &cfg, nil
}

// normalize puts invalid values back to their defaults.
func (c *Config) normalize() {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	c.Widget.AcceptedTypes = cleanList(c.Widget.AcceptedTypes)
	if c.Widget.MaxFileSize <= 0 {
		c.Widget.MaxFileSize = widget.DefaultMaxFileSize
	}
	if c.Widget.MaxFiles <= 0 {
		c.Widget.MaxFiles = widget.DefaultMaxFiles
	}
	if c.Server.MaxRequestBytes < c.Widget.MaxFileSize {
		c.Server.MaxRequestBytes = max(defaultMaxRequestBytes, c.Widget.MaxFileSize*2)
	}

	if c.Simulator.MinInterval <= 0 {
		c.Simulator.MinInterval = processing.DefaultMinInterval
	}
	if c.Simulator.MaxInterval < c.Simulator.MinInterval {
		c.Simulator.MaxInterval = c.Simulator.MinInterval
	}
	if c.Simulator.MinStep <= 0 {
		c.Simulator.MinStep = processing.DefaultMinStep
	}
	if c.Simulator.MaxStep < c.Simulator.MinStep {
		c.Simulator.MaxStep = c.Simulator.MinStep
	}

	if c.Events.Concurrency <= 0 {
		c.Events.Concurrency = defaultConcurrency
	}

	if c.Signing.TTL <= 0 {
		c.Signing.TTL = defaultSignedTTL
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		c.Log.Level = defaultLogLevel
	}
}

// WidgetOptions converts the widget section for widget.New.
func (c *Config) WidgetOptions() widget.Options {
	return widget.Options{
		AcceptedTypes: append([]string(nil), c.Widget.AcceptedTypes...),
		MaxFileSize:   c.Widget.MaxFileSize,
		MaxFiles:      c.Widget.MaxFiles,
		AllowMultiple: c.Widget.AllowMultiple,
		ShowPreviews:  c.Widget.ShowPreviews,
		Disabled:      c.Widget.Disabled,
	}
}

// SimulatorOptions converts the simulator section for processing.New.
func (c *Config) SimulatorOptions() []processing.Option {
	return []processing.Option{
		processing.WithInterval(c.Simulator.MinInterval, c.Simulator.MaxInterval),
		processing.WithStep(c.Simulator.MinStep, c.Simulator.MaxStep),
	}
}

// SigningSecret returns the configured secret, or a random one when none is
// set. Links signed with a random secret do not survive a restart.
func (c *Config) SigningSecret() []byte {
	if c.Signing.Secret != "" {
		return []byte(c.Signing.Secret)
	}
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return buf
}

// RedisOpt returns the asynq connection options.
func (c *Config) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
