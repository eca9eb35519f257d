package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	ClickHouse DatabaseConfig   `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Points     PointsConfig     `mapstructure:"points"`
	Redemption RedemptionConfig `mapstructure:"redemption"`
	Sweeper    SweeperConfig    `mapstructure:"sweeper"`
	Relay      RelayConfig      `mapstructure:"relay"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ChannelPrefix string        `mapstructure:"channel_prefix"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

type PointsConfig struct {
	DefaultCurrencyUnitsPerPoint string `mapstructure:"default_currency_units_per_point"`
}

// DefaultRatio parses the configured fallback conversion ratio.
func (p PointsConfig) DefaultRatio() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(p.DefaultCurrencyUnitsPerPoint))
	if err != nil {
		return decimal.Zero, fmt.Errorf("points.default_currency_units_per_point: %w", err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("points.default_currency_units_per_point must be positive, got %s", d)
	}
	return d, nil
}

type RedemptionConfig struct {
	PickupWindow time.Duration `mapstructure:"pickup_window"`
}

type SweeperConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type RelayConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (LOYALTY_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("merge %s: %w", path, err)
		}
	}

	// env override (LOYALTY_DATABASE_DSN, ...)
	v.SetEnvPrefix("LOYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Points.DefaultRatio(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
