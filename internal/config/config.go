// Package config loads the client and server configuration from an optional
// YAML file, environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ClientEnvPrefix префикс переменных окружения клиента
	ClientEnvPrefix = "REPSYNC"
	// ServerEnvPrefix префикс переменных окружения сервера
	ServerEnvPrefix = "REPSYNC_SERVER"
)

// Client is the configuration of the repsync CLI
type Client struct {
	ServerURL            string        `mapstructure:"server_url"`
	DBPath               string        `mapstructure:"db_path"`
	LogLevel             string        `mapstructure:"log_level"`
	ProbeInterval        time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout         time.Duration `mapstructure:"probe_timeout"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	BackoffBase          time.Duration `mapstructure:"backoff_base"`
	BackoffMax           time.Duration `mapstructure:"backoff_max"`
	ConflictRetention    time.Duration `mapstructure:"conflict_retention"`
	BackoffJitterPercent uint64        `mapstructure:"backoff_jitter_percent"`
	MaxRetries           int           `mapstructure:"max_retries"`
}

// Server is the configuration of repsync-server
type Server struct {
	Addr            string        `mapstructure:"addr"`
	DBPath          string        `mapstructure:"db_path"`
	LogLevel        string        `mapstructure:"log_level"`
	TicketSecret    string        `mapstructure:"ticket_secret"`
	JanitorSchedule string        `mapstructure:"janitor_schedule"`
	EntityTypes     []string      `mapstructure:"entity_types"` // пусто = любые типы
	TicketTTL       time.Duration `mapstructure:"ticket_ttl"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
	ChangeRetention time.Duration `mapstructure:"change_retention"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	RateLimit       int           `mapstructure:"rate_limit"`
}

func clientDefaults(v *viper.Viper) {
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("db_path", "repsync.db")
	v.SetDefault("log_level", "warn")
	v.SetDefault("probe_interval", 5*time.Second)
	v.SetDefault("probe_timeout", 2*time.Second)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("backoff_base", time.Second)
	v.SetDefault("backoff_max", 5*time.Minute)
	v.SetDefault("backoff_jitter_percent", 10)
	v.SetDefault("max_retries", 8)
	v.SetDefault("conflict_retention", 720*time.Hour)
}

func serverDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "repsync-server.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("ticket_secret", "")
	v.SetDefault("janitor_schedule", "@every 10m")
	v.SetDefault("entity_types", []string{})
	v.SetDefault("ticket_ttl", 12*time.Hour)
	v.SetDefault("idempotency_ttl", 72*time.Hour)
	v.SetDefault("change_retention", 720*time.Hour)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("rate_window", time.Minute)
	v.SetDefault("rate_limit", 600)
}

// LoadClient reads the client configuration. Flags override environment
// variables, which override the config file. configFile may be empty.
func LoadClient(configFile string, flags *pflag.FlagSet) (*Client, error) {
	v := newViper(ClientEnvPrefix, "repsync")
	clientDefaults(v)

	if err := load(v, configFile, flags); err != nil {
		return nil, err
	}

	cfg := &Client{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServer reads the server configuration
func LoadServer(configFile string, flags *pflag.FlagSet) (*Server, error) {
	v := newViper(ServerEnvPrefix, "repsync-server")
	serverDefaults(v)

	if err := load(v, configFile, flags); err != nil {
		return nil, err
	}

	cfg := &Server{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(envPrefix, configName string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper, configFile string, flags *pflag.FlagSet) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Файл в рабочей директории необязателен, явно указанный обязателен
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags == nil {
		return nil
	}

	// Флаг "server-url" задает ключ "server_url"
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !v.IsSet(key) && !f.Changed {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// Validate checks the client configuration
func (c *Client) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.ProbeInterval <= 0 || c.ProbeTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("probe_interval, probe_timeout and request_timeout must be positive")
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff_base must be positive")
	}
	if c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("backoff_max must not be less than backoff_base")
	}
	if c.BackoffJitterPercent > 100 {
		return fmt.Errorf("backoff_jitter_percent must be at most 100")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Validate checks the server configuration
func (c *Server) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.TicketTTL <= 0 || c.IdempotencyTTL <= 0 {
		return fmt.Errorf("ticket_ttl and idempotency_ttl must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return fmt.Errorf("rate_window must be positive")
	}
	if c.JanitorSchedule == "" {
		return fmt.Errorf("janitor_schedule is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name (debug, info, warn, error) to slog.Level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", name, err)
	}
	return level, nil
}
