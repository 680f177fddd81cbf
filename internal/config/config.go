package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port            string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	TokenTTLMin     int
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string
	RedisAddr       string
	RateLimitPerMin int
	RabbitURL       string
	Production      bool
}

// Load reads configuration from the environment. Required values have no
// defaults; the process must refuse to start without them.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("APP_PORT", "8080"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDB:         getenv("MONGO_DB", "tours_db"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTLMin:     atoi(getenv("JWT_TTL_MIN", "90")),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        atoi(getenv("SMTP_PORT", "25")),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		MailFrom:        getenv("MAIL_FROM", "Tours <noreply@tours.local>"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "10")),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		Production:      getenv("APP_ENV", "development") == "production",
	}
	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("config: MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.TokenTTLMin <= 0 {
		return Config{}, fmt.Errorf("config: JWT_TTL_MIN must be positive")
	}
	return cfg, nil
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
