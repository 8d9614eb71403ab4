package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	SQLitePath   string
	UploadDir    string
	RedisAddr    string
	KafkaBrokers []string
	JWTSecret    string
	SessionTTL   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		UploadDir:    os.Getenv("UPLOAD_DIR"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: []string{os.Getenv("KAFKA_BROKER")},
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "spriteshop.db"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "static/uploads"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, sessions will not survive secret rotation")
		cfg.JWTSecret = "supersecret"
	}

	cfg.SessionTTL = 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			slog.Warn("invalid SESSION_TTL, using default", "value", raw, "error", err)
		} else {
			cfg.SessionTTL = ttl
		}
	}

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"sqlite_path", cfg.SQLitePath,
		"upload_dir", cfg.UploadDir,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"session_ttl", cfg.SessionTTL)
	return cfg
}
