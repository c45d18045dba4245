package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	GoogleClientID   string
	GoogleJWKSURL    string
	JWKSCacheSeconds int

	GeminiAPIKey string
	GeminiModel  string

	DefaultCurrency string

	RedisAddr       string
	RateLimitPerMin int

	RabbitURL string

	FrontendOrigin string
}

func Load() Config {
	return Config{
		Port:             getenv("APP_PORT", "8080"),
		MongoURI:         getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getenv("MONGO_DB", "expense_db"),
		GoogleClientID:   getenv("GOOGLE_CLIENT_ID", ""),
		GoogleJWKSURL:    getenv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		JWKSCacheSeconds: atoi(getenv("JWKS_CACHE_SECONDS", "3600")),
		GeminiAPIKey:     getenv("GEMINI_API_KEY", ""),
		GeminiModel:      getenv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		DefaultCurrency:  getenv("DEFAULT_CURRENCY", "USD"),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		RateLimitPerMin:  atoi(getenv("RATE_LIMIT_PER_MIN", "30")),
		RabbitURL:        getenv("RABBIT_URL", ""),
		FrontendOrigin:   getenv("FRONTEND_ORIGIN", "http://localhost:5173"),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
