package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port                string
	Environment         string
	MongoURI            string
	DBName              string
	MongoTransactions   bool
	JWTSecret           string
	AccessTokenTTL      time.Duration
	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURL         string
	Currency            string
	RabbitMQURL         string
	OrderEventsExchange string
	UploadDir           string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
	if AppEnv.WebhookTestMode() {
		log.Println("[CONFIG] [WARN] APP_ENV=test: stripe webhook signature verification is disabled")
	}
}

// FromEnv reads the configuration from the process environment without
// touching .env files.
func FromEnv() Config {
	return Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		Environment:         strings.ToLower(getEnvOrDefault("APP_ENV", "development")),
		MongoURI:            getEnvOrDefault("MONGO_URI", ""),
		DBName:              getEnvOrDefault("DB_NAME", "storefront"),
		MongoTransactions:   getBoolEnv("MONGO_TRANSACTIONS", true),
		JWTSecret:           getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:      getDurationEnv("ACCESS_TOKEN_TTL", 30, 24*time.Hour),
		StripeSecretKey:     getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		FrontendURL:         strings.TrimRight(getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),
		Currency:            strings.ToLower(getEnvOrDefault("CURRENCY", "inr")),
		RabbitMQURL:         getEnvOrDefault("RABBITMQ_URL", ""),
		OrderEventsExchange: getEnvOrDefault("ORDER_EVENTS_EXCHANGE", "order_events"),
		UploadDir:           getEnvOrDefault("UPLOAD_DIR", "uploads"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// WebhookTestMode reports whether stripe webhook bodies may be accepted
// without a signature. Only the test environment qualifies.
func (c Config) WebhookTestMode() bool {
	return c.Environment == "test"
}
