package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, built once in main.
type Config struct {
	Server    Server
	Log       Log
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Billing   BillingConfig
	Scheduler SchedulerConfig
	Gateway   GatewayConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	Env        string
	AdminToken string
}

type Log struct {
	Level  string
	Format string
}

type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	ClientID    string
}

// BillingConfig holds the money rules. CommissionBasisPoints is parts per
// 10,000 of collected fees (1500 = 15%).
type BillingConfig struct {
	CommissionBasisPoints int64
	PendingPaymentTimeout time.Duration
	RefundCutoffDays      int
}

type SchedulerConfig struct {
	Enabled  bool
	Timezone string
	LockTTL  time.Duration
}

// Location resolves Timezone, falling back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type GatewayConfig struct {
	Timeout time.Duration
	Mode    string
}

// IsProduction reports whether the server runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// FromEnv builds Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	commission, err := parseRate(getEnv("COMMISSION_RATE", "0.15"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: Server{
			Addr:       getEnv("MOA_ADDR", ":8080"),
			Env:        getEnv("MOA_ENV", "development"),
			AdminToken: os.Getenv("ADMIN_TOKEN"),
		},
		Log: Log{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart:  getBool("DB_MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "moa"),
			ClientID:    getEnv("KAFKA_CLIENT_ID", "moa-ledger"),
		},
		Billing: BillingConfig{
			CommissionBasisPoints: commission,
			PendingPaymentTimeout: getDuration("PARTY_PENDING_TIMEOUT", 30*time.Minute),
			RefundCutoffDays:      getInt("REFUND_CUTOFF_DAYS", 2),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getBool("SCHEDULER_ENABLED", true),
			Timezone: getEnv("SCHEDULER_TIMEZONE", "Asia/Seoul"),
			LockTTL:  getDuration("SCHEDULER_LOCK_TTL", 10*time.Minute),
		},
		Gateway: GatewayConfig{
			Timeout: getDuration("GATEWAY_TIMEOUT", 10*time.Second),
			Mode:    getEnv("GATEWAY_MODE", "sandbox"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Billing.CommissionBasisPoints < 0 || c.Billing.CommissionBasisPoints > 10000 {
		errs = append(errs, errors.New("COMMISSION_RATE must be between 0 and 1"))
	}
	if c.Billing.PendingPaymentTimeout <= 0 {
		errs = append(errs, errors.New("PARTY_PENDING_TIMEOUT must be positive"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULER_TIMEZONE: %w", err))
	}
	if c.IsProduction() {
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required in production"))
		}
		if c.Server.AdminToken == "" {
			errs = append(errs, errors.New("ADMIN_TOKEN is required in production"))
		}
	}
	return errors.Join(errs...)
}

func parseRate(raw string) (int64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("COMMISSION_RATE: %w", err)
	}
	return int64(math.Round(f * 10000)), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
