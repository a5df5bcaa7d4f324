package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"multimind.ai/server/internal/store"
)

const (
	TextProviderGemini    = "gemini"
	TextProviderOpenAI    = "openai"
	ImageProviderClipdrop = "clipdrop"
	ImageProviderOpenAI   = "openai"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

type Config struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	Env       string `mapstructure:"APP_ENV"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	TextProvider  string `mapstructure:"TEXT_PROVIDER"`
	ImageProvider string `mapstructure:"IMAGE_PROVIDER"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	OpenAIAPIKey     string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel      string `mapstructure:"OPENAI_MODEL"`
	OpenAIImageModel string `mapstructure:"OPENAI_IMAGE_MODEL"`

	ClipdropAPIKey string `mapstructure:"CLIPDROP_API_KEY"`
	ClipdropAPIURL string `mapstructure:"CLIPDROP_API_URL"`

	CloudinaryCloudName   string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey      string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret   string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryAPIURL      string `mapstructure:"CLOUDINARY_API_URL"`
	CloudinaryDeliveryURL string `mapstructure:"CLOUDINARY_DELIVERY_URL"`

	ClerkSecretKey string `mapstructure:"CLERK_SECRET_KEY"`
	ClerkAPIURL    string `mapstructure:"CLERK_API_URL"`
	// ClerkJWTPublicKey is the PEM encoded RSA key used to verify session tokens (RS256).
	ClerkJWTPublicKey      string   `mapstructure:"CLERK_JWT_PUBLIC_KEY"`
	ClerkAuthorizedParties []string `mapstructure:"CLERK_AUTHORIZED_PARTIES"`
	// JWTSecret enables HS256 session tokens for local development.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ProfileCacheTTL time.Duration `mapstructure:"PROFILE_CACHE_TTL"`

	FreeUsageLimit  int           `mapstructure:"FREE_USAGE_LIMIT"`
	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	MaxUploadBytes  int64         `mapstructure:"MAX_UPLOAD_BYTES"`

	CORSAllowedOrigins    []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LikeReconcileSchedule string   `mapstructure:"LIKE_RECONCILE_SCHEDULE"`

	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

var AppConfig Config

// LoadConfig populates AppConfig and stops the process when the configuration is unusable.
func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	AppConfig = *cfg
}

// Load builds a Config from the process environment without touching AppConfig.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_DRIVER", store.DriverSQLite)
	v.SetDefault("DATABASE_URL", "multimind.db")
	v.SetDefault("TEXT_PROVIDER", TextProviderGemini)
	v.SetDefault("IMAGE_PROVIDER", ImageProviderClipdrop)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_IMAGE_MODEL", "dall-e-3")
	v.SetDefault("CLIPDROP_API_KEY", "")
	v.SetDefault("CLIPDROP_API_URL", "https://clipdrop-api.co")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("CLOUDINARY_API_URL", "https://api.cloudinary.com/v1_1")
	v.SetDefault("CLOUDINARY_DELIVERY_URL", "https://res.cloudinary.com")
	v.SetDefault("CLERK_SECRET_KEY", "")
	v.SetDefault("CLERK_API_URL", "https://api.clerk.com/v1")
	v.SetDefault("CLERK_JWT_PUBLIC_KEY", "")
	v.SetDefault("CLERK_AUTHORIZED_PARTIES", []string{})
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PROFILE_CACHE_TTL", "10m")
	v.SetDefault("FREE_USAGE_LIMIT", 10)
	v.SetDefault("PROVIDER_TIMEOUT", "60s")
	v.SetDefault("MAX_UPLOAD_BYTES", 20<<20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("LIKE_RECONCILE_SCHEDULE", "@hourly")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "multimind-server")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("config: DATABASE_DRIVER must be %q or %q, got %q", store.DriverSQLite, store.DriverPostgres, c.DatabaseDriver)
	}

	switch strings.ToLower(c.LogFormat) {
	case "":
		c.LogFormat = LogFormatConsole
		if c.IsProduction() {
			c.LogFormat = LogFormatJSON
		}
	case LogFormatConsole, LogFormatJSON:
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		return fmt.Errorf("config: LOG_FORMAT must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.LogFormat)
	}

	switch c.TextProvider {
	case TextProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("config: GEMINI_API_KEY is required when TEXT_PROVIDER=gemini")
		}
	case TextProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("config: OPENAI_API_KEY is required when TEXT_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("config: unknown TEXT_PROVIDER %q", c.TextProvider)
	}

	switch c.ImageProvider {
	case ImageProviderClipdrop:
	case ImageProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("config: OPENAI_API_KEY is required when IMAGE_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("config: unknown IMAGE_PROVIDER %q", c.ImageProvider)
	}

	if c.ClerkJWTPublicKey == "" && c.JWTSecret == "" {
		return errors.New("config: CLERK_JWT_PUBLIC_KEY or JWT_SECRET environment variable is required")
	}
	if c.FreeUsageLimit < 0 {
		return errors.New("config: FREE_USAGE_LIMIT must not be negative")
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 60 * time.Second
	}
	if c.ProfileCacheTTL <= 0 {
		c.ProfileCacheTTL = 10 * time.Minute
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
