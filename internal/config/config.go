package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/model"
)

// Sink kinds
const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// DefaultStartDate is the first day of price history requested by default
const DefaultStartDate = "2018-03-25"

// Config holds all application configuration
type Config struct {
	Industry       string    `env:"INDUSTRY" envDefault:"uranium"`
	Tickers        []string  `env:"TICKERS"` // comma separated; overrides the industry list
	StartDate      time.Time `env:"START_DATE" envDefault:"2018-03-25"`
	EndDate        time.Time `env:"END_DATE"` // defaults to today
	TradingDays    int       `env:"TRADING_DAYS" envDefault:"252"`
	RiskFreeRate   float64   `env:"RISK_FREE_RATE" envDefault:"0.05035"`
	Simulations    int       `env:"SIMULATIONS" envDefault:"100000"`
	Investment     float64   `env:"INVESTMENT" envDefault:"1000"`
	Seed           uint64    `env:"SEED"` // random when unset
	Workers        int       `env:"WORKERS" envDefault:"0"` // 0 uses every CPU
	ReferenceDate  time.Time `env:"REFERENCE_DATE"`         // defaults to now
	PricesFile     string    `env:"PRICES_FILE"`            // read prices from CSV instead of Yahoo
	OutputDir      string    `env:"OUTPUT_DIR" envDefault:"outputs"`
	IndustriesFile string    `env:"INDUSTRIES_FILE" envDefault:"configs/industries.yaml"`

	Sink        string        `env:"SINK" envDefault:"csv"`
	DatabaseURL string        `env:"DATABASE_URL"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"outputs/allocator.db"`
	SQLTimeout  time.Duration `env:"SQL_TIMEOUT" envDefault:"5m"` // per table write

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"12h"`

	YahooBaseURL   string `env:"YAHOO_BASE_URL"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec int    `env:"REQUESTS_PER_SEC" envDefault:"2"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
	PushgatewayURL   string `env:"PUSHGATEWAY_URL"`
	Chart            bool   `env:"CHART" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SeedSet bool // SEED was provided
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	var err error

	cfg.Industry = getEnvWithDefault("INDUSTRY", "uranium")
	cfg.Tickers = ParseTickers(os.Getenv("TICKERS"))
	if cfg.StartDate, err = getEnvDateWithDefault("START_DATE", DefaultStartDate); err != nil {
		return nil, err
	}
	if cfg.EndDate, err = getEnvDateWithDefault("END_DATE", ""); err != nil {
		return nil, err
	}
	cfg.TradingDays = getEnvIntWithDefault("TRADING_DAYS", 252)
	cfg.RiskFreeRate = getEnvFloatWithDefault("RISK_FREE_RATE", 0.05035)
	cfg.Simulations = getEnvIntWithDefault("SIMULATIONS", 100000)
	cfg.Investment = getEnvFloatWithDefault("INVESTMENT", 1000)
	if value := os.Getenv("SEED"); value != "" {
		if cfg.Seed, err = strconv.ParseUint(value, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid SEED %q: %w", value, err)
		}
		cfg.SeedSet = true
	}
	cfg.Workers = getEnvIntWithDefault("WORKERS", 0)
	if cfg.ReferenceDate, err = getEnvDateWithDefault("REFERENCE_DATE", ""); err != nil {
		return nil, err
	}
	cfg.PricesFile = os.Getenv("PRICES_FILE")
	cfg.OutputDir = getEnvWithDefault("OUTPUT_DIR", "outputs")
	cfg.IndustriesFile = getEnvWithDefault("INDUSTRIES_FILE", "configs/industries.yaml")

	cfg.Sink = strings.ToLower(getEnvWithDefault("SINK", SinkCSV))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SQLitePath = getEnvWithDefault("SQLITE_PATH", "outputs/allocator.db")
	cfg.SQLTimeout = getEnvDurationWithDefault("SQL_TIMEOUT", 5*time.Minute)

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.CacheTTL = getEnvDurationWithDefault("CACHE_TTL", 12*time.Hour)

	cfg.YahooBaseURL = os.Getenv("YAHOO_BASE_URL")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 2)

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", 0))
	cfg.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	cfg.Chart = getEnvBoolWithDefault("CHART", true)

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	return &cfg, nil
}

// Validate checks settings that do not belong to the run parameters
func (c *Config) Validate() error {
	switch c.Sink {
	case SinkCSV, SinkSQLite:
	case SinkPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres sink", model.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown sink %q", model.ErrInvalidConfiguration, c.Sink)
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("%w: TELEGRAM_CHAT_ID is required with a bot token", model.ErrInvalidConfiguration)
	}
	return nil
}

// End returns the configured end date, or today
func (c *Config) End() time.Time {
	if c.EndDate.IsZero() {
		return model.TruncateDay(time.Now())
	}
	return c.EndDate
}

// Params builds the run parameters for tickers
func (c *Config) Params(tickers []string) model.Params {
	return model.Params{
		Industry:     c.Industry,
		Tickers:      tickers,
		Start:        c.StartDate,
		End:          c.End(),
		TradingDays:  c.TradingDays,
		RiskFreeRate: c.RiskFreeRate,
		Simulations:  c.Simulations,
		Investment:   c.Investment,
	}
}

// ParseTickers splits a comma separated list, trimming and upper-casing symbols
func ParseTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseDate parses a YYYY-MM-DD date. An empty string is the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid number, using default")
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvDateWithDefault(key, defaultValue string) (time.Time, error) {
	t, err := ParseDate(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}
