package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Admin session
	SessionSecret string
	SessionTTL    time.Duration
	AdminUsername string
	AdminPassword string
	BcryptCost    int

	// Uploads and video banner
	UploadsDir         string
	MaxVideoSize       int64
	DefaultPhoneNumber string
	UploadRate         float64 // uploads per second across the process
	MaxRequestSize     int64

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Listing cache
	CacheTTL          time.Duration
	CacheStaleTTL     time.Duration
	CacheWarmInterval time.Duration

	// Telemetry
	OTELEnabled  bool
	OTELEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/listings"),
		DBName:      getEnv("DB_NAME", "listings"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		BcryptCost:    getEnvInt("BCRYPT_COST", 12),

		UploadsDir:         getEnv("UPLOADS_DIR", "./public/uploads"),
		MaxVideoSize:       getEnvInt64("MAX_VIDEO_SIZE", 50*1024*1024), // 50MB
		DefaultPhoneNumber: getEnv("DEFAULT_PHONE_NUMBER", "917878787878"),
		UploadRate:         getEnvFloat64("UPLOAD_RATE", 0.5),
		MaxRequestSize:     getEnvInt64("MAX_REQUEST_SIZE", 55*1024*1024),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		CacheTTL:          getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheStaleTTL:     getEnvDuration("CACHE_STALE_TTL", 24*time.Hour),
		CacheWarmInterval: getEnvDuration("CACHE_WARM_INTERVAL", 5*time.Minute),

		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET is required and must be at least 32 characters - set it in .env file")
	}

	if cfg.CacheStaleTTL < cfg.CacheTTL {
		return nil, fmt.Errorf("CACHE_STALE_TTL (%s) must not be shorter than CACHE_TTL (%s)", cfg.CacheStaleTTL, cfg.CacheTTL)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
