package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	LogLevel      string
	RevealDelay   time.Duration
	BurstDuration time.Duration
	HistoryLimit  int
	SingleSession bool
	IdleTimeout   time.Duration
	ExportEnabled bool
	ExportFile    string
	Seed          int64
}

// FromEnv reads the configuration from the environment, after loading a
// .env file from the working directory if one exists.
func FromEnv() Config {
	_ = godotenv.Load()

	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.LogLevel = getenv("LOG_LEVEL", "info")
	c.RevealDelay = getMillis("REVEAL_DELAY_MS", 1400*time.Millisecond)
	c.BurstDuration = getMillis("BURST_MS", 900*time.Millisecond)
	c.HistoryLimit = getint("HISTORY_LIMIT", 50)
	c.SingleSession = getenv("SINGLE_SESSION", "false") == "true"
	c.IdleTimeout = getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	c.ExportEnabled = getenv("EXPORT_ENABLED", "false") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./swgdash-rounds.txt")
	c.Seed = int64(getint("RNG_SEED", 0))
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

// getMillis accepts a plain millisecond count. A negative value is kept, it
// disables the burst.
func getMillis(k string, def time.Duration) time.Duration {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func getDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
