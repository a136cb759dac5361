// Package config loads the server environment (.env + process env) and the
// YAML tuning that drives the puzzle generator.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds process-level settings.
type Env struct {
	Port           string
	LogLevel       string
	DBPath         string
	ClientOrigin   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	DailySalt      string
	TargetsFile    string
	TuningFile     string
	Production     bool

	// Live session limits.
	SessionIdleMinutes  int
	SessionEndedMinutes int
	MaxSessions         int
}

// LoadEnv reads .env (if present) and returns the settings with defaults applied.
// 9876 is the port the browser client expects.
func LoadEnv() Env {
	_ = godotenv.Load()
	return Env{
		Port:           GetEnv("PORT", "9876"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		DBPath:         GetEnv("DB_PATH", "./data/alchemy.db"),
		ClientOrigin:   GetEnv("CLIENT_ORIGIN", "http://localhost:3000"),
		JWTSecret:      GetEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: GetEnvInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     GetEnv("COOKIE_NAME", "alchemy_token"),
		DailySalt:      GetEnv("DAILY_SALT", "local_dev_salt"),
		TargetsFile:    os.Getenv("TARGETS_FILE"),
		TuningFile:     os.Getenv("TUNING_FILE"),
		Production:     strings.EqualFold(os.Getenv("APP_ENV"), "production"),

		SessionIdleMinutes:  GetEnvInt("SESSION_IDLE_MINUTES", 60),
		SessionEndedMinutes: GetEnvInt("SESSION_ENDED_MINUTES", 10),
		MaxSessions:         GetEnvInt("MAX_SESSIONS", 10000),
	}
}

// GetEnv returns the value of k or def if unset/empty.
func GetEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// GetEnvInt returns k parsed as an int, or def if unset or malformed.
func GetEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
