// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON or YAML config file
// and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration read from strings such as "90s" or "1h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Addr is the inspector listen address (ip:port); empty disables it.
	Addr string `json:"addr" yaml:"addr"`

	// Token, when set, is required as a bearer token by the inspector.
	Token string `json:"token" yaml:"token"`

	// DatabaseDSN selects the PostgreSQL snapshot store.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// RedisAddr selects the Redis snapshot store when DatabaseDSN is empty.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	// SessionID keys the persisted snapshot; a random one is used if empty.
	SessionID string `json:"session_id" yaml:"session_id"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// CleanInterval is how often expired snapshots are purged.
	CleanInterval Duration `json:"clean_interval" yaml:"clean_interval"`

	// Cmd selects what the binary does: "serve" or "shell".
	Cmd string `json:"cmd" yaml:"cmd"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
}

// Parse parses os.Args and the process environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:], os.Getenv)
}

// ParseArgs builds Options from args, then overlays the config file and
// finally the environment: flag < file < env.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{CleanInterval: Duration(time.Hour)}

	fs := flag.NewFlagSet("appstate", flag.ContinueOnError)
	fs.StringVar(&options.Cmd, "cmd", "serve", "command: serve | shell")
	fs.StringVar(&options.Addr, "a", "", "inspector ip:port (empty disables the inspector)")
	fs.StringVar(&options.Token, "t", "", "inspector bearer token")
	fs.StringVar(&options.DatabaseDSN, "d", "", "postgres DSN for state snapshots")
	fs.StringVar(&options.RedisAddr, "r", "", "redis address for state snapshots")
	fs.StringVar(&options.SessionID, "s", "", "snapshot session id")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.TextVar(&options.CleanInterval, "clean-interval", options.CleanInterval, "expired snapshot purge interval")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := loadFile(options.Config, options); err != nil {
			return nil, err
		}
	}

	overrides := []struct {
		env string
		dst *string
	}{
		{"SERVER_ADDRESS", &options.Addr},
		{"INSPECTOR_TOKEN", &options.Token},
		{"DATABASE_DSN", &options.DatabaseDSN},
		{"REDIS_ADDR", &options.RedisAddr},
		{"SESSION_ID", &options.SessionID},
		{"LOG_LEVEL", &options.LogLevel},
	}
	for _, o := range overrides {
		if v := getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	if v := getenv("CLEAN_INTERVAL"); v != "" {
		if err := options.CleanInterval.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("CLEAN_INTERVAL: %w", err)
		}
	}

	return options, nil
}

// loadFile overlays path onto options. A missing file is not an error.
func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, options)
	default:
		err = json.Unmarshal(data, options)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
