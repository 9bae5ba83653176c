package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AppEnv     string
	Port       string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string
	JWTTTL     time.Duration

	// Antrian token: batas waktu status Calling sebelum otomatis Done (0 = nonaktif).
	TokenCallTimeout time.Duration
	TokenSweepSpec   string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBroker string
	KafkaTopic  string

	UploadDir string
	LogLevel  string
	Timezone  string

	AdminEmail    string
	AdminPassword string
}

var (
	cfg  *Config
	once sync.Once
)

// LoadConfig membaca .env (jika ada) lalu environment variable, hanya sekali per proses.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			logrus.Warn("Warning: .env file not found. Relying on environment variables.")
		}
		cfg = FromEnv()
	})
	return cfg
}

// FromEnv membangun Config dari environment saat ini tanpa cache.
func FromEnv() *Config {
	return &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBHost:           getEnv("DB_HOST", "127.0.0.1"),
		DBPort:           getEnv("DB_PORT", "3306"),
		DBName:           os.Getenv("DB_NAME"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTTTL:           getDuration("JWT_TTL", 12*time.Hour),
		TokenCallTimeout: getDuration("TOKEN_CALL_TIMEOUT", 0),
		TokenSweepSpec:   getEnv("TOKEN_SWEEP_SPEC", "@every 1m"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		CacheTTL:         getDuration("CACHE_TTL", 5*time.Minute),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "hospital_events"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads/doctors"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Timezone:         getEnv("TIMEZONE", "Asia/Kolkata"),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}
}

// Location mengembalikan zona waktu sesi antrian; fallback ke UTC bila tidak valid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logrus.WithField("timezone", c.Timezone).Warn("invalid TIMEZONE, using UTC")
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logrus.WithFields(logrus.Fields{"key": key, "value": raw}).Warn("invalid duration, using default")
		return fallback
	}
	return d
}
