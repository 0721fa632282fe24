package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is built once at startup and handed to constructors by pointer.
// Nothing mutates it after Load returns.
type Config struct {
	// Server
	Port          string
	Env           string
	LogLevel      string
	AllowedOrigin string

	// Rate limiting
	RateLimitPerMin int
	RedisURL        string

	// Model
	ModelProvider string
	ModelName     string
	PersonaPath   string

	// Vertex AI
	GCPProject     string
	GCPLocation    string
	ServiceAccount *ServiceAccount

	// API-key providers
	GeminiAPIKey string
	OpenAIAPIKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Env:             getEnvOrDefault("ENV", "development"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		AllowedOrigin:   getEnvOrDefault("ALLOWED_ORIGIN", "*"),
		RateLimitPerMin: getEnvAsIntOrDefault("RATE_LIMIT_PER_MIN", 30),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),
		ModelProvider:   strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderVertex)),
		PersonaPath:     getEnvOrDefault("PERSONA_PATH", ""),
		GCPLocation:     getEnvOrDefault("GCP_LOCATION", "us-central1"),
	}

	var err error
	switch cfg.ModelProvider {
	case ProviderVertex:
		encoded, err := requireEnv("SERVICE_ACCOUNT_KEY_BASE64")
		if err != nil {
			return nil, err
		}
		cfg.ServiceAccount, err = DecodeServiceAccount(encoded)
		if err != nil {
			return nil, fmt.Errorf("SERVICE_ACCOUNT_KEY_BASE64: %w", err)
		}
		cfg.GCPProject = getEnvOrDefault("GCP_PROJECT", cfg.ServiceAccount.ProjectID)
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT is not set and the service account has no project_id")
		}
		cfg.ModelName = getEnvOrDefault("MODEL_NAME", "gemini-1.5-flash-001")
	case ProviderGemini:
		if cfg.GeminiAPIKey, err = requireEnv("GEMINI_API_KEY"); err != nil {
			return nil, err
		}
		cfg.ModelName = getEnvOrDefault("MODEL_NAME", "gemini-1.5-flash")
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
		cfg.ModelName = getEnvOrDefault("MODEL_NAME", "gpt-4o-mini")
	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q", cfg.ModelProvider)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return val, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
