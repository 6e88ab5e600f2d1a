package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"storysmith.app/refinery/core/db"
)

type Config struct {
	OTel      OTelConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Env       string
	Port      string
	DB        db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string
	MaxTokens int
}

// PipelineConfig bounds engine calls and sets prompt defaults.
// StageTimeoutSeconds applies per engine call; timeouts count as transport
// failures and consume the single retry.
type PipelineConfig struct {
	StageTimeoutSeconds int
	Language            string // "de" or "en", default instruction language
	Temperature         float64
}

type RedisConfig struct {
	URL          string
	IntakeStream string
}

type TypesenseConfig struct {
	URL          string
	APIKey       string
	Collection   string
	SnippetLimit int
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeRefine ServiceType = "refine"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.refine for the one-shot CLI
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("REFINERY_ENV", "development") == "development" {
		// Try service-specific env file first, fall back to .env
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("REFINERY_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "refinery"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		LLM: LLMConfig{
			Provider:  getEnv("LLM_PROVIDER", "openai"),
			APIKey:    getEnv("LLM_API_KEY", ""),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			Model:     getEnv("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 4096),
		},
		Pipeline: PipelineConfig{
			StageTimeoutSeconds: getEnvInt("STAGE_TIMEOUT_SECONDS", 45),
			Language:            getEnv("PIPELINE_LANGUAGE", "de"),
			Temperature:         getEnvFloat("PIPELINE_TEMPERATURE", 0.2),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			IntakeStream: getEnv("REDIS_INTAKE_STREAM", "refinery:documents:intake"),
		},
		Typesense: TypesenseConfig{
			URL:          getEnv("TYPESENSE_URL", ""),
			APIKey:       getEnv("TYPESENSE_API_KEY", ""),
			Collection:   getEnv("TYPESENSE_COLLECTION", "refinery_documents"),
			SnippetLimit: getEnvInt("TYPESENSE_SNIPPET_LIMIT", 5),
		},
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c TypesenseConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
