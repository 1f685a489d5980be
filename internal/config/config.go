package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	ServerPort    string
	DatabaseType  string // sqlite (default), postgres, mysql
	DatabasePath  string // sqlite file path
	DatabaseURL   string // postgres/mysql DSN
	QuestionsPath string
	GameOverDelay time.Duration // feedback stays visible before the terminal lock
	TickInterval  time.Duration // test-mode timer period
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	godotenv.Load()

	return &Config{
		ServerPort:    getEnv("PORT", "8080"),
		DatabaseType:  getEnv("DB_TYPE", "sqlite"),
		DatabasePath:  getEnv("DB_PATH", "./skillforge.db"),
		DatabaseURL:   getEnv("DB_URL", ""),
		QuestionsPath: getEnv("QUESTIONS_PATH", "./questions.json"),
		GameOverDelay: getDuration("GAME_OVER_DELAY", 1500*time.Millisecond),
		TickInterval:  getDuration("TICK_INTERVAL", time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
