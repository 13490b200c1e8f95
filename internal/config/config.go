package config

import (
	"context"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	HTTPAddr           string        `env:"HTTP_ADDR,default=:8080"`
	GRPCAddr           string        `env:"GRPC_ADDR"`
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	JWTSecret          string        `env:"JWT_SECRET,required"`
	JWTIssuer          string        `env:"JWT_ISSUER,default=volunteerhub"`
	TokenTTL           time.Duration `env:"TOKEN_TTL,default=168h"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
	QueryTimeout       time.Duration `env:"QUERY_TIMEOUT,default=5s"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB,default=0"`
	SessionCacheTTL    time.Duration `env:"SESSION_CACHE_TTL,default=5m"`
	NATSURL            string        `env:"NATS_URL"`
	OTLPEndpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE,default=300"`
	ServiceAuthToken   string        `env:"SERVICE_AUTH_TOKEN"`
	CleanupEnabled     bool          `env:"CLEANUP_ENABLED,default=true"`
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL,default=1h"`
	CleanupTimeout     time.Duration `env:"CLEANUP_TIMEOUT,default=30s"`
	MigrateOnStart     bool          `env:"MIGRATE_ON_START,default=true"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	LogFormat          string        `env:"LOG_FORMAT,default=json"`
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	return cfg, nil
}
