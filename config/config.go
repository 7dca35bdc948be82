package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Provider        string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	RateLimit  int
	RateWindow time.Duration

	SessionCapacity int
	SessionIdleTTL  time.Duration

	GenerationTimeout time.Duration

	AgentConfigPath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file found, using environment variables")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Provider:          getEnv("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		RateLimit:         getEnvInt("RATE_LIMIT", 50),
		RateWindow:        getEnvDuration("RATE_WINDOW", 24*time.Hour),
		SessionCapacity:   getEnvInt("SESSION_CAPACITY", 0),
		SessionIdleTTL:    getEnvDuration("SESSION_IDLE_TTL", 0),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 120*time.Second),
		AgentConfigPath:   getEnv("AGENT_CONFIG", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[ERROR] Invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[ERROR] Invalid value for %s: %q, using default %s", key, value, fallback)
		return fallback
	}
	return d
}
