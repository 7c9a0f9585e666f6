package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment string
	Addr        string
	LogLevel    string

	JWTSecret      string
	AccessTokenTTL time.Duration

	// KVBackend selects the persistence port implementation:
	// "file" (default), "redis" or "postgres".
	KVBackend       string
	KVDataDir       string
	KVEncryptionKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL   string
	MigrationsDir string

	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int

	SSEHeartbeat time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     time.Duration(GetInt("ACCESS_TOKEN_TTL_HOURS", 12)) * time.Hour,
		KVBackend:          GetString("KV_BACKEND", "file"),
		KVDataDir:          GetString("KV_DATA_DIR", "./data"),
		KVEncryptionKey:    GetString("KV_ENCRYPTION_KEY", ""),
		RedisAddr:          GetString("KV_REDIS_ADDR", "localhost:6379"),
		RedisPassword:      GetString("KV_REDIS_PASSWORD", ""),
		RedisDB:            GetInt("KV_REDIS_DB", 0),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://yachts:yachts@db:5432/yachts?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		SSEHeartbeat:       time.Duration(GetInt("SSE_HEARTBEAT_SECONDS", 25)) * time.Second,
	}
}
