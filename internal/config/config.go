package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the notification engine,
// loaded from the environment (with optional .env support).
type Config struct {
	HTTPAddr    string
	DatabaseDSN string

	// Push provider (Expo-compatible HTTP API).
	ExpoBaseURL     string
	ExpoAccessToken string

	// SMTP transport for the email channel.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Optional SMS gateway endpoint; empty means placeholder sends.
	SMSGatewayURL string
	SMSGatewayKey string

	// Background cadences.
	RetryInterval   time.Duration
	ReceiptInterval time.Duration
	SweepInterval   time.Duration

	// Per-channel send timeout for a single dispatch attempt.
	SendTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseDSN: getEnv("DATABASE_URL", "medalert.db"),

		ExpoBaseURL:     getEnv("EXPO_BASE_URL", "https://exp.host"),
		ExpoAccessToken: os.Getenv("EXPO_ACCESS_TOKEN"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getEnv("SMTP_FROM", "alerts@medalert.local"),

		SMSGatewayURL: os.Getenv("SMS_GATEWAY_URL"),
		SMSGatewayKey: os.Getenv("SMS_GATEWAY_KEY"),

		RetryInterval:   getEnvDuration("RETRY_INTERVAL", 5*time.Minute),
		ReceiptInterval: getEnvDuration("RECEIPT_INTERVAL", 15*time.Minute),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", time.Hour),

		SendTimeout: getEnvDuration("SEND_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
