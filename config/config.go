// Package config loads engine configuration from a .env file and the
// environment. Every key has a compiled-in default, so both binaries run
// with no configuration at all on plain JSON inputs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dispatch engine.
type Config struct {
	Files     FilesConfig
	Simulator SimulatorConfig
	Monitor   MonitorConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
}

// FilesConfig holds the input file paths and the log tee target.
type FilesConfig struct {
	Vehicles        string `mapstructure:"VEHICLES_FILE"`
	Bookings        string `mapstructure:"BOOKINGS_FILE"`
	InstantBookings string `mapstructure:"INSTANT_BOOKINGS_FILE"`
	LogFile         string `mapstructure:"LOG_FILE"`
}

// SimulatorConfig holds the real-time loop settings. Times of day are
// minutes from midnight.
type SimulatorConfig struct {
	StartMinute     float64 `mapstructure:"SIM_START_MINUTE"`
	EndMinute       float64 `mapstructure:"SIM_END_MINUTE"`
	StepMinutes     float64 `mapstructure:"SIM_STEP_MINUTES"`
	RealStepSeconds int     `mapstructure:"SIM_REAL_STEP_SECONDS"`
	ReportEvery     int     `mapstructure:"SIM_REPORT_EVERY"`
	Seed            int64   `mapstructure:"SIM_SEED"` // 0 = time-based
}

// MonitorConfig holds the optional read-only HTTP API settings.
type MonitorConfig struct {
	Enabled      bool          `mapstructure:"MONITOR_ENABLED"`
	Host         string        `mapstructure:"MONITOR_HOST"`
	Port         int           `mapstructure:"MONITOR_PORT"`
	ReadTimeout  time.Duration `mapstructure:"MONITOR_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"MONITOR_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"MONITOR_IDLE_TIMEOUT"`
}

// PostgresConfig holds the optional plan-archive connection settings.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"POSTGRES_ENABLED"`
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds the optional fleet-cache connection settings.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"REDIS_ENABLED"`
	Host        string        `mapstructure:"REDIS_HOST"`
	Port        int           `mapstructure:"REDIS_PORT"`
	Password    string        `mapstructure:"REDIS_PASSWORD"`
	DB          int           `mapstructure:"REDIS_DB"`
	PoolSize    int           `mapstructure:"REDIS_POOL_SIZE"`
	SnapshotTTL time.Duration `mapstructure:"REDIS_SNAPSHOT_TTL"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ListenAddr returns the monitor API listen address in host:port format.
func (m *MonitorConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Load reads configuration from environment variables and a .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("VEHICLES_FILE", "vehicles.json")
	viper.SetDefault("BOOKINGS_FILE", "bookings.json")
	viper.SetDefault("INSTANT_BOOKINGS_FILE", "instant_bookings.json")
	viper.SetDefault("LOG_FILE", "log.txt")

	viper.SetDefault("SIM_START_MINUTE", 360)  // 06:00
	viper.SetDefault("SIM_END_MINUTE", 1140)   // 19:00
	viper.SetDefault("SIM_STEP_MINUTES", 30)   // simulated minutes per tick
	viper.SetDefault("SIM_REAL_STEP_SECONDS", 6)
	viper.SetDefault("SIM_REPORT_EVERY", 4)
	viper.SetDefault("SIM_SEED", 0)

	viper.SetDefault("MONITOR_ENABLED", false)
	viper.SetDefault("MONITOR_HOST", "0.0.0.0")
	viper.SetDefault("MONITOR_PORT", 8080)
	viper.SetDefault("MONITOR_READ_TIMEOUT", "5s")
	viper.SetDefault("MONITOR_WRITE_TIMEOUT", "10s")
	viper.SetDefault("MONITOR_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_ENABLED", false)
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "homebound")
	viper.SetDefault("POSTGRES_PASSWORD", "homebound_secret")
	viper.SetDefault("POSTGRES_DB", "homebound_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 10)
	viper.SetDefault("POSTGRES_MIN_CONNS", 2)

	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_SNAPSHOT_TTL", "10m")

	// Try to read .env. When it does not exist (CI, containers), the
	// defaults plus injected env vars are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Files ───────────────────────────────────────────
	cfg.Files = FilesConfig{
		Vehicles:        viper.GetString("VEHICLES_FILE"),
		Bookings:        viper.GetString("BOOKINGS_FILE"),
		InstantBookings: viper.GetString("INSTANT_BOOKINGS_FILE"),
		LogFile:         viper.GetString("LOG_FILE"),
	}

	// ── Simulator ───────────────────────────────────────
	cfg.Simulator = SimulatorConfig{
		StartMinute:     viper.GetFloat64("SIM_START_MINUTE"),
		EndMinute:       viper.GetFloat64("SIM_END_MINUTE"),
		StepMinutes:     viper.GetFloat64("SIM_STEP_MINUTES"),
		RealStepSeconds: viper.GetInt("SIM_REAL_STEP_SECONDS"),
		ReportEvery:     viper.GetInt("SIM_REPORT_EVERY"),
		Seed:            viper.GetInt64("SIM_SEED"),
	}

	// ── Monitor ─────────────────────────────────────────
	cfg.Monitor = MonitorConfig{
		Enabled:      viper.GetBool("MONITOR_ENABLED"),
		Host:         viper.GetString("MONITOR_HOST"),
		Port:         viper.GetInt("MONITOR_PORT"),
		ReadTimeout:  viper.GetDuration("MONITOR_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("MONITOR_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("MONITOR_IDLE_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Enabled:  viper.GetBool("POSTGRES_ENABLED"),
		Host:     viper.GetString("POSTGRES_HOST"),
		Port:     viper.GetInt("POSTGRES_PORT"),
		User:     viper.GetString("POSTGRES_USER"),
		Password: viper.GetString("POSTGRES_PASSWORD"),
		DBName:   viper.GetString("POSTGRES_DB"),
		SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Enabled:     viper.GetBool("REDIS_ENABLED"),
		Host:        viper.GetString("REDIS_HOST"),
		Port:        viper.GetInt("REDIS_PORT"),
		Password:    viper.GetString("REDIS_PASSWORD"),
		DB:          viper.GetInt("REDIS_DB"),
		PoolSize:    viper.GetInt("REDIS_POOL_SIZE"),
		SnapshotTTL: viper.GetDuration("REDIS_SNAPSHOT_TTL"),
	}

	return cfg, nil
}
