// Package config loads recall's settings. Layers apply in increasing order
// of precedence: built-in defaults, an optional YAML file, RECALL_*
// environment variables and command-line flags.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "RECALL_"

// Config is the resolved application configuration.
type Config struct {
	DB       DB     `koanf:"db"`
	Server   Server `koanf:"server"`
	Learner  string `koanf:"learner" validate:"required"`
	Timezone string `koanf:"timezone" validate:"required"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
	Log      Log    `koanf:"log"`
}

type DB struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type Server struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

var defaults = map[string]any{
	"db.driver":   "sqlite",
	"db.dsn":      "recall.db",
	"server.addr": ":8080",
	"learner":     "default",
	"timezone":    "Local",
	"repos_dir":   "repos",
	"log.level":   "info",
	"log.format":  "text",
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"db-driver":  "db.driver",
	"db":         "db.dsn",
	"addr":       "server.addr",
	"learner":    "learner",
	"timezone":   "timezone",
	"repos-dir":  "repos_dir",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to a YAML config file")
	fs.String("db-driver", "sqlite", "Database driver (sqlite or postgres)")
	fs.String("db", "recall.db", "Database DSN; a file path for sqlite")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.StringP("learner", "l", "default", "Learner whose reviews are scheduled")
	fs.String("timezone", "Local", "IANA timezone that decides when a day begins")
	fs.String("repos-dir", "repos", "Directory for git source checkouts")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "text", "Log format (text or json)")
}

// Load resolves the configuration from every layer and validates it. fs
// must have been parsed; a "config" flag, when set, names the YAML file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns RECALL_DB_DSN into db.dsn and RECALL_REPOS_DIR into repos_dir.
func envKey(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for key := range defaults {
		if strings.ReplaceAll(key, ".", "_") == name {
			return key
		}
	}
	return strings.ReplaceAll(name, "_", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location returns the configured timezone. "Local" is the system zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
