// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

// Package config loads fundhub configuration from defaults, a YAML file,
// the environment and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/fundhub/fundhub/internal/auth"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, e.g. FUNDHUB_SESSION__TTL=12h.
const EnvPrefix = "FUNDHUB_"

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr" jsonschema:"description=HTTP listen address"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes" jsonschema:"minimum=1"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string        `koanf:"url" jsonschema:"description=PostgreSQL connection URL; DATABASE_URL is also honored"`
	MaxConns       int32         `koanf:"max_conns" jsonschema:"minimum=0"`
	ConnectRetries uint64        `koanf:"connect_retries" jsonschema:"minimum=0"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	AutoMigrate    bool          `koanf:"auto_migrate" jsonschema:"description=Apply pending migrations on serve"`
}

// SessionConfig configures session lifetime and the session cookie.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	CookieName    string        `koanf:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	SweepInterval time.Duration `koanf:"sweep_interval" jsonschema:"description=Expired session cleanup period; 0 disables"`
}

// AuthConfig configures credential handling.
type AuthConfig struct {
	// RevealUnknownUser answers a login for a nonexistent account with 404
	// instead of the generic 401.
	RevealUnknownUser bool         `koanf:"reveal_unknown_user"`
	Argon2            Argon2Config `koanf:"argon2"`
}

// Argon2Config holds the argon2id cost parameters used for new digests.
type Argon2Config struct {
	Memory  uint32 `koanf:"memory" jsonschema:"description=Memory in KiB,minimum=8,maximum=1048576"`
	Time    uint32 `koanf:"time" jsonschema:"minimum=1,maximum=64"`
	Threads uint8  `koanf:"threads" jsonschema:"minimum=1"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the observability listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" jsonschema:"description=Metrics and health listen address; empty disables"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectRetries: 5,
			ConnectTimeout: 5 * time.Second,
		},
		Session: SessionConfig{
			TTL:           auth.DefaultSessionTTL,
			CookieName:    "fundhub_session",
			SweepInterval: auth.DefaultSweepInterval,
		},
		Auth: AuthConfig{
			Argon2: Argon2Config{
				Memory:  auth.DefaultArgon2Memory,
				Time:    auth.DefaultArgon2Time,
				Threads: auth.DefaultArgon2Threads,
			},
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// LoadOptions selects the sources layered over the defaults.
type LoadOptions struct {
	// File is an optional YAML file.
	File string
	// Flags, when set, overrides keys for flags the user changed.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys, e.g. "addr" to "server.addr".
	FlagKeys map[string]string
}

// Load builds a Config from defaults, file, environment and flags, then
// validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", opts.File).
				Wrap(err)
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := opts.FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	if err := k.Load(env.Provider("DATABASE_URL", ".", func(s string) string {
		if s != "DATABASE_URL" {
			return ""
		}
		return "database.url"
	}), nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key, _ := envKey(s)
		return key
	}), nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	return nil
}

// envKey maps FUNDHUB_SESSION__COOKIE_NAME to session.cookie_name.
func envKey(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(strings.ToLower(rest), "__", "."), true
}

// Validate rejects inconsistent values.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return invalid("server.addr", "is required")
	case c.Server.ReadHeaderTimeout <= 0:
		return invalid("server.read_header_timeout", "must be positive")
	case c.Server.ShutdownTimeout <= 0:
		return invalid("server.shutdown_timeout", "must be positive")
	case c.Server.MaxBodyBytes <= 0:
		return invalid("server.max_body_bytes", "must be positive")
	case c.Database.MaxConns < 0:
		return invalid("database.max_conns", "cannot be negative")
	case c.Session.TTL <= 0:
		return invalid("session.ttl", "must be positive")
	case c.Session.CookieName == "":
		return invalid("session.cookie_name", "is required")
	case c.Session.SweepInterval < 0:
		return invalid("session.sweep_interval", "cannot be negative")
	case c.Auth.Argon2.Time == 0:
		return invalid("auth.argon2.time", "must be at least 1")
	case c.Auth.Argon2.Time > auth.MaxArgon2Time:
		return invalid("auth.argon2.time", fmt.Sprintf("must be at most %d", auth.MaxArgon2Time))
	case c.Auth.Argon2.Memory < 8*uint32(max(c.Auth.Argon2.Threads, 1)):
		return invalid("auth.argon2.memory", "must be at least 8 KiB per thread")
	case c.Auth.Argon2.Memory > auth.MaxArgon2Memory:
		return invalid("auth.argon2.memory", fmt.Sprintf("must be at most %d KiB", auth.MaxArgon2Memory))
	case c.Auth.Argon2.Threads == 0:
		return invalid("auth.argon2.threads", "must be at least 1")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid("log.format", "must be 'json' or 'text'")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, invalid("log.level", "must be debug, info, warn or error")
	}
	return level, nil
}

// Argon2Params converts the hashing section for auth.NewArgon2idHasherWithParams.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		Time:    c.Auth.Argon2.Time,
		Memory:  c.Auth.Argon2.Memory,
		Threads: c.Auth.Argon2.Threads,
	}
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, msg)
}
