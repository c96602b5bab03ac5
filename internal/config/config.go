package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type SMTP struct {
	Host string
	Port int
	User string
	Pass string
}

type Config struct {
	Env      string
	HTTPAddr string

	MongoURI  string
	MongoDB   string
	RedisAddr string
	RabbitURL string

	JWTSecret string

	SMTP         SMTP
	FallbackSMTP SMTP
	MailFrom     string
	PreviewURL   string

	LockTTL      time.Duration
	CacheTTL     time.Duration
	OTLPEndpoint string
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	lockTTL, _ := time.ParseDuration(os.Getenv("LOCK_TTL"))
	if lockTTL == 0 {
		lockTTL = 30 * time.Second
	}
	cacheTTL, _ := time.ParseDuration(os.Getenv("CACHE_TTL"))
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "tourstay"
	}

	return &Config{
		Env:       os.Getenv("ENV"),
		HTTPAddr:  httpAddr,
		MongoURI:  os.Getenv("MONGO_URI"),
		MongoDB:   mongoDB,
		RedisAddr: os.Getenv("REDIS_ADDR"),
		RabbitURL: os.Getenv("RABBIT_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		SMTP: SMTP{
			Host: os.Getenv("SMTP_HOST"),
			Port: intEnv("SMTP_PORT", 587),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
		},
		FallbackSMTP: SMTP{
			Host: os.Getenv("SMTP_FALLBACK_HOST"),
			Port: intEnv("SMTP_FALLBACK_PORT", 587),
			User: os.Getenv("SMTP_FALLBACK_USER"),
			Pass: os.Getenv("SMTP_FALLBACK_PASS"),
		},
		MailFrom:     os.Getenv("MAIL_FROM"),
		PreviewURL:   os.Getenv("MAIL_PREVIEW_URL"),
		LockTTL:      lockTTL,
		CacheTTL:     cacheTTL,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
