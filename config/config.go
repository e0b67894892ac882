package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the process needs from the environment.
// It is loaded once in main and handed to constructors explicitly.
type Config struct {
	Port   string
	AppEnv string
	DBURL  string

	JWTSecret string

	// Where the frontend lives; checkout success/cancel and OAuth
	// redirects point back here.
	AppURL     string
	CORSOrigin string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeProductID     string

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleRedirectURL      string
	GoogleFrontendRedirect string

	SMTPFrom     string
	SMTPPassword string
	SMTPHost     string
	SMTPPort     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	return &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),
		DBURL:  mustEnv("DB_URL"),

		JWTSecret: mustEnv("JWT_SECRET"),

		AppURL:     getEnv("APP_URL", "http://localhost:5173"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		StripeSecretKey:     mustEnv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: mustEnv("STRIPE_WEBHOOK_SECRET"),
		StripeProductID:     getEnv("STRIPE_PRODUCT_ID", ""),

		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleFrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),

		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
