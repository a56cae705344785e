package config

import (
	"os"
	"strconv"
)

// Config carries the environment-driven settings for the server.
type Config struct {
	ListenAddr string
	DatabaseDSN string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// MerchantID and PaymentSecret are shared with the payment provider;
	// the secret keys the webhook signature digest.
	MerchantID    string
	PaymentSecret string

	// ChatRateLimit is the per-(task, sender) number of messages allowed
	// per ChatRateWindowSeconds.
	ChatRateLimit         int
	ChatRateWindowSeconds int

	Debug bool
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		ListenAddr:            getEnv("LISTEN_ADDR", ":8008"),
		DatabaseDSN:           getEnv("DATABASE_DSN", "task-marketplace.db"),
		JWTSecret:             getEnv("JWT_SECRET", "development-insecure-secret-change-me"),
		JWTIssuer:             getEnv("JWT_ISSUER", "task-marketplace-api"),
		JWTAudience:           getEnv("JWT_AUDIENCE", "task-marketplace-clients"),
		MerchantID:            getEnv("PAYMENT_MERCHANT_ID", "merchant-dev"),
		PaymentSecret:         getEnv("PAYMENT_SECRET", "development-payment-secret"),
		ChatRateLimit:         getEnvAsInt("CHAT_RATE_LIMIT", 1),
		ChatRateWindowSeconds: getEnvAsInt("CHAT_RATE_WINDOW_SECONDS", 2),
		Debug:                 getEnv("DEBUG", "") != "",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
