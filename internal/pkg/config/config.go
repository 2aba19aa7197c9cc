package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Places    PlacesConfig    `mapstructure:"places"`
	Search    SearchConfig    `mapstructure:"search"`
	Markers   MarkersConfig   `mapstructure:"markers"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
	// Durable is the JetStream consumer name for events.changed. Each API
	// instance needs its own so every instance refreshes.
	Durable string `mapstructure:"durable"`
}

type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type PlacesConfig struct {
	BaseURL      string   `mapstructure:"base_url"`
	UserAgent    string   `mapstructure:"user_agent"`
	TimeoutMS    int      `mapstructure:"timeout_ms"`
	CountryCodes []string `mapstructure:"country_codes"`
}

func (p PlacesConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

type SearchConfig struct {
	ExternalTimeoutMS int `mapstructure:"external_timeout_ms"`
	DebounceMS        int `mapstructure:"debounce_ms"`
	Limit             int `mapstructure:"limit"`
	CacheTTL          int `mapstructure:"cache_ttl"` // seconds
}

func (s SearchConfig) ExternalTimeout() time.Duration {
	return time.Duration(s.ExternalTimeoutMS) * time.Millisecond
}

// Debounce is the configured live-search debounce. LiveSearch clamps it.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

type MarkersConfig struct {
	RefreshInterval string `mapstructure:"refresh_interval"`
	EventLimit      int    `mapstructure:"event_limit"`
}

// Interval parses RefreshInterval. Validate guarantees it parses.
func (m MarkersConfig) Interval() time.Duration {
	d, _ := time.ParseDuration(m.RefreshInterval)
	return d
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional config.yaml and
// GIGMAP_* environment variables. A .env file is loaded first when present.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gigmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "gigmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.durable", service)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "gigmap:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("places.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("places.user_agent", "gigmap/1.0")
	v.SetDefault("places.timeout_ms", 5000)
	v.SetDefault("places.country_codes", []string{})
	v.SetDefault("search.external_timeout_ms", 2500)
	v.SetDefault("search.debounce_ms", 400)
	v.SetDefault("search.limit", 20)
	v.SetDefault("search.cache_ttl", 300)
	v.SetDefault("markers.refresh_interval", "1m")
	v.SetDefault("markers.event_limit", 5000)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "gigmap-harvest")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// GIGMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("GIGMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// LOG_LEVEL is honoured without the prefix as well.
	_ = v.BindEnv("log.level", "GIGMAP_LOG_LEVEL", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// All violations are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Places.BaseURL == "" {
		errs = append(errs, "places.base_url is required")
	}
	if c.Places.TimeoutMS <= 0 {
		errs = append(errs, "places.timeout_ms must be positive")
	}
	if c.Search.ExternalTimeoutMS <= 0 {
		errs = append(errs, "search.external_timeout_ms must be positive")
	}
	if c.Search.Limit <= 0 || c.Search.Limit > 50 {
		errs = append(errs, fmt.Sprintf("search.limit must be 1-50, got %d", c.Search.Limit))
	}
	if c.Search.CacheTTL < 0 {
		errs = append(errs, "search.cache_ttl must not be negative")
	}
	if d, err := time.ParseDuration(c.Markers.RefreshInterval); err != nil || d <= 0 {
		errs = append(errs, fmt.Sprintf("markers.refresh_interval must be a positive duration, got %q", c.Markers.RefreshInterval))
	}
	if c.Markers.EventLimit <= 0 {
		errs = append(errs, "markers.event_limit must be positive")
	}
	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required when temporal is enabled")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
