// Package config loads studyhash settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/studyhash/internal/sm2"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates nested keys, so STUDYHASH_DB__DSN sets db.dsn.
const EnvPrefix = "STUDYHASH_"

// Config is the full application configuration.
type Config struct {
	DB        DBConfig      `koanf:"db"`
	HTTP      HTTPConfig    `koanf:"http"`
	Log       LogConfig     `koanf:"log"`
	Scheduler sm2.Policy    `koanf:"scheduler"`
	Queue     QueueConfig   `koanf:"queue"`
	Streaks   StreaksConfig `koanf:"streaks"`
}

type DBConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type HTTPConfig struct {
	Addr           string `koanf:"addr" validate:"required"`
	MaxImportBytes int64  `koanf:"max_import_bytes" validate:"min=1"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// QueueConfig drives the daily queue sweep. Location names the server time
// zone whose local day the queues cover.
type QueueConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	Location string        `koanf:"location" validate:"required"`
	PageSize int           `koanf:"page_size" validate:"min=1,max=10000"`
}

type StreaksConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	PageSize int           `koanf:"page_size" validate:"min=1,max=10000"`
}

// Location resolves Queue.Location.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Queue.Location)
	if err != nil {
		return nil, fmt.Errorf("queue.location: %w", err)
	}
	return loc, nil
}

// NewFlagSet defines every configuration flag with its default value.
// Flag names are the configuration keys.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	def := sm2.DefaultPolicy()

	flags.String("config", "", "Path to a YAML config file")
	flags.String("env-file", ".env", "Path to a dotenv file, ignored when missing")

	flags.String("db.driver", "sqlite", "Store backend: sqlite or postgres")
	flags.String("db.dsn", "studyhash.db", "SQLite path or PostgreSQL DSN")
	flags.String("http.addr", ":8080", "HTTP listen address")
	flags.Int64("http.max_import_bytes", 4<<20, "Largest accepted deck import body in bytes")
	flags.String("log.level", "info", "Log level: debug, info, warn or error")
	flags.String("log.format", "text", "Log format: text or json")

	flags.Int("scheduler.hard", int(def.Hard), "SM-2 quality for a hard rating")
	flags.Int("scheduler.medium", int(def.Medium), "SM-2 quality for a medium rating")
	flags.Int("scheduler.easy", int(def.Easy), "SM-2 quality for an easy rating")

	flags.Duration("queue.interval", 24*time.Hour, "Daily queue sweep interval")
	flags.String("queue.location", "UTC", "Time zone of the server day used for queues")
	flags.Int("queue.page_size", 200, "Users per daily queue sweep page")
	flags.Duration("streaks.interval", time.Hour, "Streak reset sweep interval")
	flags.Int("streaks.page_size", 200, "Users per streak reset sweep page")
	return flags
}

// Load builds the configuration from an already parsed flag set.
func Load(flags *pflag.FlagSet) (Config, error) {
	if path, _ := flags.GetString("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	k := koanf.New(".")
	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, the rating policy and the location.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid config: scheduler: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewLogger builds the slog logger described by c, writing to w.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
