package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	// Backend selects the stock ledger: memory, sqlite, mysql, or redis.
	// The redis backend keeps orders and reporting in MySQL, so it also
	// needs MySQLDSN.
	Backend    string
	SQLitePath string
	MySQLDSN   string
	RedisAddr  string

	SweepInterval  time.Duration
	ReservationTTL time.Duration
	SeedOnStart    bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		Backend:    getenv("STOCK_BACKEND", "sqlite"),
		SQLitePath: getenv("SQLITE_PATH", "readingroom.db"),
		MySQLDSN:   getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/readingroom?parseTime=true"),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),

		SweepInterval:  getduration("SWEEP_INTERVAL", 30*time.Second),
		ReservationTTL: getduration("RESERVATION_TTL", 10*time.Minute),
		SeedOnStart:    getenv("SEED_ON_START", "true") == "true",
	}
}
