package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	Env                 string // "dev" or "prod"
	JWTSecret           string
	JWTExpiry           time.Duration
	StoreBackend        string // "memory", "firestore" or "postgres"
	FirebaseCredentials string
	FirebaseProjectID   string
	PostgresDSN         string
	PubSubTopic         string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtExpiry := 24 * time.Hour
	if exp := os.Getenv("JWT_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			jwtExpiry = parsed
		}
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("APP_ENV", "dev"),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiry:           jwtExpiry,
		StoreBackend:        getEnv("STORE_BACKEND", "memory"),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),
		PubSubTopic:         getEnv("PUBSUB_TOPIC", ""),
	}
}

// IsDev reports whether the server runs in development mode.
// Dev mode enables the local token endpoint.
func (c *Config) IsDev() bool {
	return c.Env != "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
