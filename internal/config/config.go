package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/fee"
)

type Config struct {
	Server    ServerConfig
	Parking   ParkingConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	LogLevel  slog.Level
}

type ServerConfig struct {
	Host string
	Port int
}

type ParkingConfig struct {
	MaxDimension int
	Location     *time.Location
	FeeRules     domain.FeeRules
}

// PostgresConfig is optional; the record archive is enabled iff Name is set.
type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

func (c PostgresConfig) Enabled() bool { return c.Name != "" }

// RedisConfig is optional; caching, pub/sub, idempotency and rate limiting
// are enabled iff Addr is set.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	LotCacheTTL    time.Duration
	IdempotencyTTL time.Duration
	RatePerMinute  int
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// DefaultFeeRules are used when FEE_RULES_PATH is not set.
func DefaultFeeRules() domain.FeeRules {
	return domain.FeeRules{
		Currency: "USD",
		FlatRate: domain.FlatRate{Hourly: 20, Daily: 300, MaxHours: 3},
		NormalRate: domain.NormalRate{SlotSize: domain.SlotSizeRates{
			Small:  15,
			Medium: 20,
			Large:  30,
		}},
	}
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
	)

	cfg.Server.Host = getenv("SERVER_HOST", "localhost")

	if cfg.Server.Port, err = atoi("SERVER_PORT", "8080"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	if cfg.Parking.MaxDimension, err = atoi("LOT_MAX_DIMENSION", "10"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Parking.MaxDimension < 2 {
		return nil, fmt.Errorf("%s: LOT_MAX_DIMENSION must be at least 2", op)
	}

	if cfg.Parking.Location, err = time.LoadLocation(getenv("PARKING_TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("%s: invalid PARKING_TIMEZONE: %w", op, err)
	}

	cfg.Parking.FeeRules = DefaultFeeRules()
	if path := os.Getenv("FEE_RULES_PATH"); path != "" {
		if cfg.Parking.FeeRules, err = LoadFeeRules(path); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if cfg.Postgres, err = loadPostgres(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Redis, err = loadRedis(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:     strings.EqualFold(getenv("OTEL_ENABLED", "false"), "true"),
		ServiceName: getenv("OTEL_SERVICE_NAME", "parkgo"),
		Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
	}

	return &cfg, nil
}

func loadPostgres() (PostgresConfig, error) {
	pg := PostgresConfig{
		Name:     os.Getenv("POSTGRES_DB"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     getenv("POSTGRES_HOST", "localhost"),
		SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
	}

	if !pg.Enabled() {
		return pg, nil
	}

	var err error
	if pg.Port, err = atoi("POSTGRES_PORT", "5432"); err != nil {
		return pg, err
	}

	if pg.User == "" {
		return pg, fmt.Errorf("missing POSTGRES_USER")
	}

	if pg.Password == "" {
		return pg, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	return pg, nil
}

func loadRedis() (RedisConfig, error) {
	rc := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if rc.DB, err = atoi("REDIS_DB", "0"); err != nil {
		return rc, err
	}

	if rc.LotCacheTTL, err = duration("LOT_CACHE_TTL", "5s"); err != nil {
		return rc, err
	}

	if rc.IdempotencyTTL, err = duration("IDEMPOTENCY_TTL", "2h"); err != nil {
		return rc, err
	}

	if rc.RatePerMinute, err = atoi("RATE_LIMIT_PER_MINUTE", "60"); err != nil {
		return rc, err
	}

	return rc, nil
}

// LoadFeeRules reads and validates a fee rules JSON document.
func LoadFeeRules(path string) (domain.FeeRules, error) {
	const op = "config.LoadFeeRules"

	b, err := os.ReadFile(path)
	if err != nil {
		return domain.FeeRules{}, fmt.Errorf("%s: %w", op, err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var rules domain.FeeRules
	if err := dec.Decode(&rules); err != nil {
		return domain.FeeRules{}, fmt.Errorf("%s: decode %s: %w", op, path, err)
	}

	if err := fee.Validate(rules); err != nil {
		return domain.FeeRules{}, fmt.Errorf("%s: %w", op, err)
	}

	return rules, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(key, def string) (int, error) {
	v, err := strconv.Atoi(getenv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func duration(key, def string) (time.Duration, error) {
	v, err := time.ParseDuration(getenv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
