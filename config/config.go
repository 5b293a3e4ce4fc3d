package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type LogConfig struct {
	Level      string
	Filename   string
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

type Config struct {
	ServerAddr        string
	StoreDriver       string // mysql, memory
	MysqlDSN          string
	JWTSecret         string
	ProximityRadiusKm float64
	RoomCloseDelay    time.Duration
	SweepSchedule     string
	NameCacheTTL      time.Duration
	CORSOrigins       string
	DashboardKeyHash  string // bcrypt hash; empty leaves the dashboard open
	Log               LogConfig
}

var Cfg *Config

func Load() {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	Cfg = &Config{
		ServerAddr:        ":" + getEnv("PORT", "8080"),
		StoreDriver:       getEnv("STORE_DRIVER", "mysql"),
		MysqlDSN:          getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/safecircle?charset=utf8mb4&parseTime=True&loc=Local"),
		JWTSecret:         getEnv("JWT_SECRET", "safecircle-secret-key-change-in-production"),
		ProximityRadiusKm: cast.ToFloat64(getEnv("PROXIMITY_RADIUS_KM", "2.0")),
		RoomCloseDelay:    cast.ToDuration(getEnv("ROOM_CLOSE_DELAY", "30s")),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "@every 1m"),
		NameCacheTTL:      cast.ToDuration(getEnv("NAME_CACHE_TTL", "5m")),
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", ""),
		DashboardKeyHash:  getEnv("DASHBOARD_KEY_HASH", ""),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Filename:   getEnv("LOG_FILENAME", ""),
			MaxSize:    cast.ToInt(getEnv("LOG_MAX_SIZE", "100")),
			MaxAge:     cast.ToInt(getEnv("LOG_MAX_AGE", "7")),
			MaxBackups: cast.ToInt(getEnv("LOG_MAX_BACKUPS", "5")),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
