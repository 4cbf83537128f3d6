package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     ProviderKeys
	Dispatch DispatchConfig
	Credits  CreditConfig
	Midtrans MidtransConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// ProviderKeys are the system-level API keys used for credit-funded calls.
// Self-funded calls use the user's own stored key instead.
type ProviderKeys struct {
	OpenAI        string
	Gemini        string
	OpenAIBaseURL string
	GeminiBaseURL string
	OllamaBaseURL string
}

type DispatchConfig struct {
	RequestTimeout      time.Duration
	MaxRateLimitRetries int
	BackoffBaseDelay    time.Duration
}

type CreditConfig struct {
	SignupBonus         decimal.Decimal
	PricePerCredit      decimal.Decimal // money units per credit, for top-up conversion
	LowBalanceThreshold decimal.Decimal
	AlertEmail          string
}

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "AI Dispatch"),
		},
		Keys: ProviderKeys{
			OpenAI:        getEnv("OPENAI_API_KEY", ""),
			Gemini:        getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Dispatch: DispatchConfig{
			RequestTimeout:      getEnvAsDuration("DISPATCH_REQUEST_TIMEOUT", 90*time.Second),
			MaxRateLimitRetries: getEnvAsInt("DISPATCH_MAX_RATE_LIMIT_RETRIES", 3),
			BackoffBaseDelay:    getEnvAsDuration("DISPATCH_BACKOFF_BASE_DELAY", 500*time.Millisecond),
		},
		Credits: CreditConfig{
			SignupBonus:         getEnvAsDecimal("CREDITS_SIGNUP_BONUS", "10"),
			PricePerCredit:      getEnvAsDecimal("CREDITS_PRICE_PER_CREDIT", "1000"),
			LowBalanceThreshold: getEnvAsDecimal("CREDITS_LOW_BALANCE_THRESHOLD", "2"),
			AlertEmail:          getEnv("CREDITS_ALERT_EMAIL", ""),
		},
		Midtrans: MidtransConfig{
			ServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			IsProduction: getEnv("MIDTRANS_IS_PRODUCTION", "false") == "true",
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDecimal(key, fallback string) decimal.Decimal {
	strValue := getEnv(key, fallback)
	if value, err := decimal.NewFromString(strValue); err == nil {
		return value
	}
	v, _ := decimal.NewFromString(fallback)
	return v
}
