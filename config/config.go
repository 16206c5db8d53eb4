package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	JWTSecretKey  string `env:"JWT_SECRET_KEY,required"`

	FeeRate             decimal.Decimal `env:"FEE_RATE" envDefault:"0.10"`
	HouseAccountID      int64           `env:"HOUSE_ACCOUNT_ID" envDefault:"0"`
	AllowInProgressExit bool            `env:"ALLOW_IN_PROGRESS_EXIT" envDefault:"true"`
	MinStake            decimal.Decimal `env:"MIN_STAKE" envDefault:"1"`
	MaxStake            decimal.Decimal `env:"MAX_STAKE" envDefault:"10000"`

	AdjudicationURL           string        `env:"ADJUDICATION_URL"`
	AdjudicationAPIKey        string        `env:"ADJUDICATION_API_KEY"`
	AdjudicationTimeout       time.Duration `env:"ADJUDICATION_TIMEOUT" envDefault:"15s"`
	AdjudicationMaxRetries    int           `env:"ADJUDICATION_MAX_RETRIES" envDefault:"2"`
	AdjudicationRetryDelay    time.Duration `env:"ADJUDICATION_RETRY_DELAY" envDefault:"500ms"`
	AdjudicationMinConfidence float64       `env:"ADJUDICATION_MIN_CONFIDENCE" envDefault:"0.7"`
	AdjudicationAsync         bool          `env:"ADJUDICATION_ASYNC" envDefault:"false"`
	ReviewSweepInterval       time.Duration `env:"REVIEW_SWEEP_INTERVAL" envDefault:"1m"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}

	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}
		if c.DBMaxOpenConns <= 0 || c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
			return fmt.Errorf("invalid DB pool: max open %d, max idle %d", c.DBMaxOpenConns, c.DBMaxIdleConns)
		}
		if c.DBConnectTimeout <= 0 {
			return errors.New("DB_CONNECT_TIMEOUT must be positive")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.StorageDriver)
	}

	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("FEE_RATE must be in [0, 1), got %s", c.FeeRate)
	}
	if !c.MinStake.IsPositive() {
		return fmt.Errorf("MIN_STAKE must be positive, got %s", c.MinStake)
	}
	if c.MaxStake.LessThan(c.MinStake) {
		return fmt.Errorf("MAX_STAKE (%s) must not be below MIN_STAKE (%s)", c.MaxStake, c.MinStake)
	}
	if c.HouseAccountID < 0 {
		return fmt.Errorf("HOUSE_ACCOUNT_ID must not be negative, got %d", c.HouseAccountID)
	}

	if c.AdjudicationTimeout <= 0 {
		return errors.New("ADJUDICATION_TIMEOUT must be positive")
	}
	if c.AdjudicationMaxRetries < 0 {
		return errors.New("ADJUDICATION_MAX_RETRIES must not be negative")
	}
	if c.AdjudicationRetryDelay < 0 {
		return errors.New("ADJUDICATION_RETRY_DELAY must not be negative")
	}
	if c.AdjudicationMinConfidence < 0 || c.AdjudicationMinConfidence > 1 {
		return fmt.Errorf("ADJUDICATION_MIN_CONFIDENCE must be in [0, 1], got %v", c.AdjudicationMinConfidence)
	}
	if c.ReviewSweepInterval <= 0 {
		return errors.New("REVIEW_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// R2Enabled - заданы ли все параметры хранилища доказательств.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
