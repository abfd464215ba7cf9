package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port string

	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	RequestTimeout time.Duration
	StatusTTL      time.Duration

	ProfileCacheSize int
	ProfileCacheTTL  time.Duration

	BroadcastQueueSize     int
	BroadcastFlushInterval time.Duration
	AllowedOrigins         []string

	RedisURL     string
	RedisChannel string

	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPass         string
	SMTPFrom         string
	VerifyAdminEmail string
	PublicBaseURL    string

	LogLevel  string
	LogFormat string
}

// Load reads .env when present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from environment")
	}

	return &Config{
		Port: getEnv("PORT", "3000"),

		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "broadcast.db"),

		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Second),
		StatusTTL:      getEnvAsDuration("STATUS_TTL", 24*time.Hour),

		ProfileCacheSize: getEnvAsInt("PROFILE_CACHE_SIZE", 1000),
		ProfileCacheTTL:  getEnvAsDuration("PROFILE_CACHE_TTL", 5*time.Minute),

		BroadcastQueueSize:     getEnvAsInt("BROADCAST_QUEUE_SIZE", 1000),
		BroadcastFlushInterval: getEnvAsDuration("BROADCAST_FLUSH_INTERVAL", 100*time.Millisecond),
		AllowedOrigins:         getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

		RedisURL:     getEnv("REDIS_URL", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "broadcast:events"),

		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", ""),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPass:         getEnv("SMTP_PASS", ""),
		SMTPFrom:         getEnv("SMTP_FROM", ""),
		VerifyAdminEmail: getEnv("VERIFY_ADMIN_EMAIL", ""),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the global logger.
func (c *Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warnf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
