package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every variable, e.g. FASHIONFINDER_SHOPS. Keys with an explicit
// envconfig tag are also read unprefixed (PORT, REDIS_URL, ...).
const EnvPrefix = "FASHIONFINDER"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// ParseEnvironment falls back to Development for unknown values.
func ParseEnvironment(v string) Environment {
	if Environment(v) == Production {
		return Production
	}
	return Development
}

// Config holds all application configuration.
type Config struct {
	// General
	Environment string `envconfig:"ENV"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	ShopsPath   string `envconfig:"SHOPS"`

	// Outbound requests
	RespectRobots  bool          `envconfig:"RESPECT_ROBOTS"`
	DelayProfile   string        `envconfig:"DELAY_PROFILE"` // "cautious", "normal", "aggressive", "none"
	RatePerSecond  float64       `envconfig:"RATE_PER_SECOND"`
	RateBurst      int           `envconfig:"RATE_BURST"`
	MaxConcurrent  int           `envconfig:"MAX_CONCURRENT"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT"`
	BrowserBin     string        `envconfig:"ROD_BROWSER_BIN"`

	// Proxy
	ProxyMode      string `envconfig:"PROXY_MODE"` // "decodo", "custom", "direct"
	ProxyFile      string `envconfig:"PROXIES"`
	DecodoUsername string `envconfig:"DECODO_USERNAME"`
	DecodoPassword string `envconfig:"DECODO_PASSWORD"`
	DecodoCountry  string `envconfig:"DECODO_COUNTRY"`

	// HTTP server
	HTTPPort string `envconfig:"PORT"`
	APIKey   string `envconfig:"API_KEY"`

	// Cost calculation
	ExchangeRateAPIKey string        `envconfig:"EXCHANGE_RATE_API_KEY"`
	RedisURL           string        `envconfig:"REDIS_URL"`
	RateCacheTTL       time.Duration `envconfig:"RATE_CACHE_TTL"`

	// Watch store + notifications
	StoreDSN     string `envconfig:"STORE_DSN"`
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	FromEmail    string `envconfig:"FROM_EMAIL"`

	// Monitoring
	MonitorBatchSize  int           `envconfig:"MONITOR_BATCH_SIZE"`
	MonitorBatchDelay time.Duration `envconfig:"MONITOR_BATCH_DELAY"`

	// Vision
	VisionProvider string `envconfig:"VISION_PROVIDER"` // "gemini", "openai"
	VisionModel    string `envconfig:"VISION_MODEL"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Environment:       string(Development),
		LogLevel:          "info",
		ShopsPath:         "configs/shops",
		RespectRobots:     true,
		DelayProfile:      "normal",
		RatePerSecond:     0.5,
		RateBurst:         1,
		MaxConcurrent:     8,
		RequestTimeout:    30 * time.Second,
		ProxyMode:         "direct",
		DecodoCountry:     "se",
		HTTPPort:          "8080",
		RateCacheTTL:      6 * time.Hour,
		StoreDSN:          "sqlite://fashionfinder.db",
		FromEmail:         "alerts@fashionfinder.app",
		MonitorBatchSize:  10,
		MonitorBatchDelay: time.Second,
		VisionProvider:    "gemini",
	}
}

// LoadFromEnv loads .env (if present) then overlays environment variables.
// Unset variables leave the current value untouched.
func (c *Config) LoadFromEnv() error {
	// silently ignored if missing
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("process env config: %w", err)
	}
	return nil
}

func (c *Config) Env() Environment {
	return ParseEnvironment(c.Environment)
}
