package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"imdb-titles/internal/platform/pg"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Store struct {
		Driver string `validate:"required,oneof=postgres sqlite"`
	}
	Postgres struct {
		// DSN is DATABASE_URL, or assembled from the PG_* variables.
		DSN string
	}
	SQLite struct {
		Path string
	}
	Redis struct {
		// Addr enables the title cache when set.
		Addr     string `validate:"omitempty,hostname_port"`
		Password string
		DB       int `validate:"gte=0,lte=15"`
	}
	Cache struct {
		TTL time.Duration `validate:"gt=0"`
	}
	Dataset struct {
		Source string `validate:"required"`
		// Schedule is a cron expression with seconds; empty disables refresh.
		Schedule  string
		BatchSize int `validate:"gt=0"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	var errs []error

	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Store.Driver = strings.ToLower(getenv("STORE_DRIVER", DriverSQLite))

	c.Postgres.DSN = os.Getenv("DATABASE_URL")
	if c.Store.Driver == DriverPostgres {
		if c.Postgres.DSN != "" {
			if err := checkDatabaseURL(c.Postgres.DSN); err != nil {
				errs = append(errs, err)
			}
		} else {
			dsn, err := dsnFromParts()
			if err != nil {
				errs = append(errs, err)
			}
			c.Postgres.DSN = dsn
		}
	}
	c.SQLite.Path = getenv("SQLITE_PATH", "data/titles.db")

	c.Redis.Addr = os.Getenv("REDIS_ADDR")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB = getint("REDIS_DB", 0, &errs)
	c.Cache.TTL = getduration("CACHE_TTL", 10*time.Minute, &errs)

	c.Dataset.Source = getenv("DATASET_SOURCE", "https://datasets.imdbws.com/title.basics.tsv.gz")
	c.Dataset.Schedule = os.Getenv("DATASET_SCHEDULE")
	c.Dataset.BatchSize = getint("DATASET_BATCH_SIZE", 1000, &errs)

	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/titles.log")

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Store.Driver == DriverPostgres && c.Postgres.DSN == "" {
		return Config{}, errors.New("DATABASE_URL or PG_USER and PG_DATABASE required when STORE_DRIVER=postgres")
	}
	if c.Store.Driver == DriverSQLite && c.SQLite.Path == "" {
		return Config{}, errors.New("SQLITE_PATH required when STORE_DRIVER=sqlite")
	}
	return c, nil
}

// checkDatabaseURL applies the PG_* checks to a DATABASE_URL. The URL itself
// is used verbatim.
func checkDatabaseURL(dsn string) error {
	cfg, err := pg.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("DATABASE_URL: %w", err)
	}
	if err := pg.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("DATABASE_URL: %w", err)
	}
	return nil
}

// dsnFromParts assembles a DSN from PG_HOST, PG_PORT, PG_USER, PG_PASSWORD,
// PG_DATABASE and PG_SSLMODE. It returns "" when PG_USER is unset.
func dsnFromParts() (string, error) {
	if os.Getenv("PG_USER") == "" {
		return "", nil
	}

	cfg := pg.DefaultDSNConfig()
	cfg.Host = getenv("PG_HOST", cfg.Host)
	cfg.User = os.Getenv("PG_USER")
	cfg.Password = os.Getenv("PG_PASSWORD")
	cfg.Database = os.Getenv("PG_DATABASE")
	cfg.SSLMode = getenv("PG_SSLMODE", cfg.SSLMode)
	cfg.ApplicationName = "imdb-titles"

	var errs []error
	cfg.Port = getint("PG_PORT", cfg.Port, &errs)
	if len(errs) > 0 {
		return "", errs[0]
	}
	if err := pg.ValidateConfig(cfg); err != nil {
		return "", fmt.Errorf("PG_*: %w", err)
	}
	return pg.BuildDSN(cfg), nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int, errs *[]error) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func getduration(k string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}
