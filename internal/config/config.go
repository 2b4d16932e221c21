package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Selection SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Location  LocationConfig  `yaml:"location" mapstructure:"location"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the visit history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OverpassConfig configures the geodata client.
type OverpassConfig struct {
	Endpoints          []string `yaml:"endpoints" mapstructure:"endpoints"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	QueryTimeoutSecs   int      `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	ResultLimit        int      `yaml:"result_limit" mapstructure:"result_limit"`
	RatePerSec         float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst              int      `yaml:"burst" mapstructure:"burst"`
	UserAgent          string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// RequestTimeout returns the per-request client timeout.
func (o OverpassConfig) RequestTimeout() time.Duration {
	return time.Duration(o.RequestTimeoutSecs) * time.Second
}

// DiscoveryConfig configures radius escalation and endpoint health.
type DiscoveryConfig struct {
	RadiusLadder            []float64 `yaml:"radius_ladder" mapstructure:"radius_ladder"`
	MaxRadiusMiles          float64   `yaml:"max_radius_miles" mapstructure:"max_radius_miles"`
	LargeResult             int       `yaml:"large_result" mapstructure:"large_result"`
	BreakerFailureThreshold int       `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int       `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	RulesPath               string    `yaml:"rules_path" mapstructure:"rules_path"`
}

// SelectionConfig configures the distance options offered for picks.
type SelectionConfig struct {
	DistanceOptions []float64 `yaml:"distance_options" mapstructure:"distance_options"`
	DefaultDistance float64   `yaml:"default_distance" mapstructure:"default_distance"`
}

// LocationConfig configures the cached location.
type LocationConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL returns the cache lifetime.
func (l LocationConfig) TTL() time.Duration {
	return time.Duration(l.TTLMinutes) * time.Minute
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPINPLATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "spinplate.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("overpass.endpoints", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
	})
	v.SetDefault("overpass.request_timeout_secs", 20)
	v.SetDefault("overpass.query_timeout_secs", 25)
	v.SetDefault("overpass.result_limit", 300)
	v.SetDefault("overpass.rate_per_sec", 1.0)
	v.SetDefault("overpass.burst", 2)
	v.SetDefault("overpass.user_agent", "spinplate/1.0")
	v.SetDefault("discovery.radius_ladder", []float64{5, 10, 15})
	v.SetDefault("discovery.max_radius_miles", 15.0)
	v.SetDefault("discovery.large_result", 50)
	v.SetDefault("discovery.breaker_failure_threshold", 3)
	v.SetDefault("discovery.breaker_reset_secs", 120)
	v.SetDefault("selection.distance_options", []float64{2, 4, 8})
	v.SetDefault("selection.default_distance", 4.0)
	v.SetDefault("location.ttl_minutes", 15)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validDrivers = []string{"sqlite", "postgres", "memory"}

// Validate checks the fields a command mode depends on. Every problem is
// reported in one error.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "discover", "spin":
		errs = append(errs, c.validateDiscovery()...)
		errs = append(errs, c.validateSelection()...)
	case "visits":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateDiscovery()...)
		errs = append(errs, c.validateSelection()...)
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	if !slices.Contains(validDrivers, c.Store.Driver) {
		errs = append(errs, fmt.Sprintf("store.driver %q must be one of %s", c.Store.Driver, strings.Join(validDrivers, ", ")))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}
	return errs
}

func (c *Config) validateDiscovery() []string {
	var errs []string
	if len(c.Overpass.Endpoints) == 0 {
		errs = append(errs, "overpass.endpoints must not be empty")
	}
	if c.Overpass.RequestTimeoutSecs <= 0 {
		errs = append(errs, "overpass.request_timeout_secs must be > 0")
	}
	if c.Overpass.QueryTimeoutSecs <= c.Overpass.RequestTimeoutSecs {
		errs = append(errs, "overpass.query_timeout_secs must be greater than request_timeout_secs")
	}
	if c.Overpass.ResultLimit <= 0 {
		errs = append(errs, "overpass.result_limit must be > 0")
	}
	if c.Overpass.RatePerSec <= 0 {
		errs = append(errs, "overpass.rate_per_sec must be > 0")
	}

	ladder := c.Discovery.RadiusLadder
	if len(ladder) == 0 {
		errs = append(errs, "discovery.radius_ladder must not be empty")
	}
	for i, r := range ladder {
		if r <= 0 || (i > 0 && r <= ladder[i-1]) {
			errs = append(errs, "discovery.radius_ladder must be positive and strictly ascending")
			break
		}
	}
	if c.Discovery.MaxRadiusMiles <= 0 {
		errs = append(errs, "discovery.max_radius_miles must be > 0")
	}
	if c.Discovery.LargeResult <= 0 {
		errs = append(errs, "discovery.large_result must be > 0")
	}
	return errs
}

func (c *Config) validateSelection() []string {
	var errs []string
	for _, d := range c.Selection.DistanceOptions {
		if d <= 0 {
			errs = append(errs, "selection.distance_options values must be > 0")
			break
		}
	}
	if c.Selection.DefaultDistance < 0 {
		errs = append(errs, "selection.default_distance must be >= 0")
	}
	if c.Location.TTLMinutes <= 0 {
		errs = append(errs, "location.ttl_minutes must be > 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
