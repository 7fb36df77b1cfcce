package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             string
	MongoURI         string
	MongoDB          string
	JWTSecret        string
	SessionTTLMin    int
	GoogleClientID   string
	GoogleJWKSURL    string
	JWKSCacheSeconds int
	RedisAddr        string
	RateLimitPerMin  int
	RabbitURL        string
	Prod             bool
}

func Load() Config {
	return Config{
		Port:             getenv("APP_PORT", "8080"),
		MongoURI:         getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getenv("MONGO_DB", "garage_db"),
		JWTSecret:        getenv("JWT", "default_secret_key"),
		SessionTTLMin:    atoi(getenv("SESSION_TTL_MIN", "15")),
		GoogleClientID:   getenv("GOOGLE_CLIENT_ID", ""),
		GoogleJWKSURL:    getenv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		JWKSCacheSeconds: atoi(getenv("JWKS_CACHE_SECONDS", "3600")),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RateLimitPerMin:  atoi(getenv("RATE_LIMIT_PER_MIN", "10")),
		RabbitURL:        getenv("RABBIT_URL", ""),
		Prod:             getenv("APP_ENV", "dev") == "prod",
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
