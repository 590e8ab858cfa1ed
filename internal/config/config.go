package config // package config loads application configuration from environment variables

import (
	"errors"  // errors joins every configuration problem into one report
	"fmt"     // fmt formats validation messages
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list values
	"time"    // time parses durations

	"github.com/joho/godotenv" // godotenv loads a local .env file during development

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/model"
)

// Storage drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	JWTSecret string // secret used to sign and verify JWTs
	LogLevel  string // zap level name

	StorageDriver  string        // mysql or memory
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	DBMigrate      bool          // create missing tables on startup
	StorageTimeout time.Duration // bound for every storage call

	CancellableStatuses []model.JourneyStatus // journey statuses that allow cancelling a booking
	PointsDivisor       int64                 // currency units per loyalty point

	AMQPURL           string // RabbitMQ URL; empty delivers notifications inline
	NotificationQueue string // durable queue carrying booking notifications

	MetricsNamespace  string // prometheus namespace
	WorkerMetricsAddr string // listen address of the worker's /metrics endpoint
}

// Load reads a .env file when present, then the environment.  Every missing
// or malformed variable is reported in the returned error.
func Load() (Config, error) {
	return load(true)
}

// LoadWorker is Load for the notification worker, which serves no API and
// therefore needs neither APP_PORT nor JWT_SECRET.
func LoadWorker() (Config, error) {
	return load(false)
}

func load(api bool) (Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside development

	l := &loader{}
	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", ""),
		JWTSecret: envStr("JWT_SECRET", ""),
		LogLevel:  envStr("LOG_LEVEL", "info"),

		StorageDriver:  strings.ToLower(envStr("STORAGE_DRIVER", DriverMySQL)),
		DBPass:         os.Getenv("DB_PASS"),
		DBMigrate:      envBool("DB_MIGRATE", false),
		StorageTimeout: l.durOr("STORAGE_TIMEOUT", 3*time.Second),

		PointsDivisor: int64(l.intOr("LOYALTY_POINTS_DIVISOR", 10)),

		AMQPURL:           firstEnv("RABBITMQ_URL", "AMQP_URL"),
		NotificationQueue: envStr("NOTIFICATION_QUEUE", "booking.notifications"),
		MetricsNamespace:  envStr("METRICS_NAMESPACE", "railbooking"),
		WorkerMetricsAddr: envStr("WORKER_METRICS_ADDR", ":9101"),
	}
	if api {
		cfg.Port = l.must("APP_PORT")
		cfg.JWTSecret = l.must("JWT_SECRET")
	}

	switch cfg.StorageDriver {
	case DriverMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case DriverMemory:
	default:
		l.fail(fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver))
	}

	statuses, err := parseStatuses(envStr("CANCELLABLE_JOURNEY_STATUSES", string(model.JourneyScheduled)))
	if err != nil {
		l.fail(err)
	}
	cfg.CancellableStatuses = statuses
	if cfg.PointsDivisor <= 0 {
		l.fail(fmt.Errorf("LOYALTY_POINTS_DIVISOR must be positive"))
	}
	return cfg, l.err()
}

// Booking returns the allocator policy.
func (c Config) Booking() booking.Config {
	return booking.Config{
		Timeout:             c.StorageTimeout,
		CancellableStatuses: c.CancellableStatuses,
		PointsDivisor:       c.PointsDivisor,
	}
}

// TokenTTL is the lifetime of issued access tokens, ACCESS_TOKEN_TTL_MIN
// minutes (default 60).
func TokenTTL() time.Duration {
	return time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute
}

func parseStatuses(s string) ([]model.JourneyStatus, error) {
	var out []model.JourneyStatus
	for _, p := range strings.Split(s, ",") {
		st := model.JourneyStatus(strings.ToUpper(strings.TrimSpace(p)))
		if st == "" {
			continue
		}
		if !st.Valid() {
			return nil, fmt.Errorf("invalid journey status %q in CANCELLABLE_JOURNEY_STATUSES", st)
		}
		out = append(out, st)
	}
	return out, nil
}

// loader collects configuration errors instead of exiting on the first.
type loader struct {
	errs []error
}

func (l *loader) fail(err error) { l.errs = append(l.errs, err) }

func (l *loader) err() error { return errors.Join(l.errs...) }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// intOr is like envInt but records malformed values instead of ignoring them.
func (l *loader) intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(fmt.Errorf("invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func (l *loader) durOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		l.fail(fmt.Errorf("invalid duration for %s: %q", key, v))
		return def
	}
	return d
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
