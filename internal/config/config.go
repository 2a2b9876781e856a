// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting of the server. Values come from the
// environment (optionally via a .env file loaded by godotenv) with defaults.
type Config struct {
	Port string

	RedisAddr string
	RedisDB   int

	DatabaseURL string

	AuthPrivateKeyPath string
	AuthPublicKeyPath  string

	LogLevel  string
	LogFormat string

	AllowedOrigins []string

	ResultsQueue       string
	HistorianBatchSize int
	HistorianFlush     time.Duration

	SessionTTL       time.Duration
	SessionRetention time.Duration
	RevealText       string

	QuestionDuration       time.Duration
	QuestionRevealDuration time.Duration
	DrawDuration           time.Duration
	GuessDuration          time.Duration
	TurnGrace              time.Duration
	FinalTurnGrace         time.Duration
	PresenceGrace          time.Duration
}

// Default returns the configuration used when no environment overrides are set.
func Default() Config {
	return Config{
		Port:                   "8080",
		RedisAddr:              "localhost:6379",
		LogLevel:               "info",
		LogFormat:              "text",
		AllowedOrigins:         []string{"*"},
		ResultsQueue:           "babygame_results",
		HistorianBatchSize:     20,
		HistorianFlush:         500 * time.Millisecond,
		SessionTTL:             2 * time.Hour,
		SessionRetention:       24 * time.Hour,
		RevealText:             "It's a Boy!!!!!!!!",
		QuestionDuration:       15 * time.Second,
		QuestionRevealDuration: 3 * time.Second,
		DrawDuration:           20 * time.Second,
		GuessDuration:          15 * time.Second,
		TurnGrace:              3 * time.Second,
		FinalTurnGrace:         10 * time.Second,
		PresenceGrace:          2 * time.Second,
	}
}

// Load reads the environment on top of Default.
func Load() Config {
	cfg := Default()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AuthPrivateKeyPath = getEnv("AUTH_PRIVATE_KEY_PATH", "")
	cfg.AuthPublicKeyPath = getEnv("AUTH_PUBLIC_KEY_PATH", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = strings.Split(raw, ",")
	}
	cfg.ResultsQueue = getEnv("RESULTS_QUEUE_NAME", cfg.ResultsQueue)
	cfg.HistorianBatchSize = getEnvInt("HISTORIAN_BATCH_SIZE", cfg.HistorianBatchSize)
	if ms := getEnvInt("HISTORIAN_FLUSH_MS", -1); ms > 0 {
		cfg.HistorianFlush = time.Duration(ms) * time.Millisecond
	}
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionRetention = getEnvDuration("SESSION_RETENTION", cfg.SessionRetention)
	cfg.RevealText = getEnv("REVEAL_TEXT", cfg.RevealText)

	cfg.QuestionDuration = getEnvSeconds("QUESTION_SECONDS", cfg.QuestionDuration)
	cfg.QuestionRevealDuration = getEnvSeconds("QUESTION_REVEAL_SECONDS", cfg.QuestionRevealDuration)
	cfg.DrawDuration = getEnvSeconds("DRAW_SECONDS", cfg.DrawDuration)
	cfg.GuessDuration = getEnvSeconds("GUESS_SECONDS", cfg.GuessDuration)
	cfg.TurnGrace = getEnvSeconds("TURN_GRACE_SECONDS", cfg.TurnGrace)
	cfg.FinalTurnGrace = getEnvSeconds("FINAL_TURN_GRACE_SECONDS", cfg.FinalTurnGrace)
	cfg.PresenceGrace = getEnvSeconds("PRESENCE_GRACE_SECONDS", cfg.PresenceGrace)
	return cfg
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	v := getEnvInt(key, -1)
	if v < 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
