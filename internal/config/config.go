package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

type Config struct {
	HTTPAddr string
	LogLevel slog.Level

	PollStore  string
	VoteLedger string

	Postgres  Postgres
	RedisAddr string

	// RabbitMQURL left empty disables event publishing to the broker.
	RabbitMQURL   string
	RabbitMQQueue string

	VoteUniqueVoter bool
	// VoteRateLimit is votes per second per client IP; 0 disables limiting.
	VoteRateLimit float64
	VoteRateBurst int

	VoterTokenSecret string
	VoterTokenTTL    time.Duration
	CookieDomain     string
	CookieSecure     bool

	CORSAllowedOrigins []string

	StorageRetryAttempts int
	StorageRetryDelay    time.Duration
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:   getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		PollStore:  getEnv("POLL_STORE", BackendMemory),
		VoteLedger: getEnv("VOTE_LEDGER", BackendMemory),
		Postgres: Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			DB:       getEnv("POSTGRES_DB", "poll"),
		},
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue:      getEnv("RABBITMQ_QUEUE", "poll_events"),
		VoterTokenSecret:   os.Getenv("VOTER_TOKEN_SECRET"),
		CookieDomain:       os.Getenv("COOKIE_DOMAIN"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	var errs []error
	var err error

	if err = cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.VoteUniqueVoter, err = getBool("VOTE_UNIQUE_VOTER", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.VoteRateLimit, err = getFloat("VOTE_RATE_LIMIT", 1); err != nil {
		errs = append(errs, err)
	}
	if cfg.VoteRateBurst, err = getInt("VOTE_RATE_BURST", 5); err != nil {
		errs = append(errs, err)
	}
	if cfg.StorageRetryAttempts, err = getInt("STORAGE_RETRY_ATTEMPTS", 3); err != nil {
		errs = append(errs, err)
	}
	if cfg.StorageRetryDelay, err = getDuration("STORAGE_RETRY_DELAY", 50*time.Millisecond); err != nil {
		errs = append(errs, err)
	}
	if cfg.VoterTokenTTL, err = getDuration("VOTER_TOKEN_TTL", 30*24*time.Hour); err != nil {
		errs = append(errs, err)
	}

	if !oneOf(cfg.PollStore, BackendMemory, BackendPostgres) {
		errs = append(errs, fmt.Errorf("POLL_STORE: unsupported backend %q", cfg.PollStore))
	}
	if !oneOf(cfg.VoteLedger, BackendMemory, BackendPostgres, BackendRedis) {
		errs = append(errs, fmt.Errorf("VOTE_LEDGER: unsupported backend %q", cfg.VoteLedger))
	}
	if cfg.VoteLedger == BackendPostgres && cfg.PollStore != BackendPostgres {
		errs = append(errs, errors.New("VOTE_LEDGER=postgres requires POLL_STORE=postgres"))
	}
	if cfg.StorageRetryAttempts < 1 {
		errs = append(errs, errors.New("STORAGE_RETRY_ATTEMPTS must be at least 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
