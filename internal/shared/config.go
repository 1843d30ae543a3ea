package shared

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	Storage        string // mysql|memory
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	JWTSecret      string
	JWTTTL         time.Duration
	OTPPeriod      time.Duration
	OTPMaxAttempts int
	OTPRPS         float64
	NotifyBase     string
	NotifyKey      string
	NotifyRPS      int
	PublicBaseURL  string
	RequestTimeout time.Duration
	SweepWorkers   int
}

func Load() Config {
	// .env is optional; real env vars win
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		Storage:        strings.ToLower(env("APP_STORAGE", "mysql")),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/homestay?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		JWTSecret:      env("JWT_SECRET", ""),
		JWTTTL:         time.Duration(atoi("JWT_TTL_MINUTES", 60*24)) * time.Minute,
		OTPPeriod:      time.Duration(atoi("OTP_PERIOD_SECONDS", 300)) * time.Second,
		OTPMaxAttempts: atoi("OTP_MAX_ATTEMPTS", 5),
		OTPRPS:         atof("OTP_RPS", 0.2),
		NotifyBase:     env("NOTIFY_BASE_URL", "http://localhost:9000/v1"),
		NotifyKey:      env("NOTIFY_API_KEY", ""),
		NotifyRPS:      atoi("NOTIFY_RPS", 5),
		PublicBaseURL:  strings.TrimRight(env("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		SweepWorkers:   atoi("SWEEP_WORKERS", 8),
	}
	if c.NotifyKey == "" {
		log.Warn().Msg("NOTIFY_API_KEY is empty; OTP messages are logged (redacted) instead of sent")
	}
	return c
}

func (c Config) Dev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

// Validate rejects settings the API cannot safely start with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.Dev() {
			return errors.New("JWT_SECRET is required")
		}
	} else if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if c.Storage != "mysql" && c.Storage != "memory" {
		return errors.New("APP_STORAGE must be mysql or memory")
	}
	if c.OTPMaxAttempts <= 0 {
		return errors.New("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.NotifyKey == "" && !c.Dev() {
		return errors.New("NOTIFY_API_KEY is required outside development")
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
