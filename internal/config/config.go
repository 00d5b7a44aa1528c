package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	Port string

	// Database
	DatabaseURL string

	// Auth
	AuthServiceURL    string
	AuthTimeout       time.Duration
	SessionCookieName string

	// Rate Limit（req/min）
	RateLimitPerMinute      int
	RateLimitWritePerMinute int

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load は.envファイルと環境変数からConfigを読み込む。
// .envが存在しない場合は環境変数のみを使う。既存の環境変数は.envで上書きしない。
// 必須環境変数の未設定・不正はすべてまとめてエラーとして返す。
func Load(dotenvPaths ...string) (*Config, error) {
	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing, invalid []string

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		missing = append(missing, "PORT")
	} else if p, err := strconv.Atoi(cfg.Port); err != nil || p < 1 || p > 65535 {
		invalid = append(invalid, "PORT")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthServiceURL = strings.TrimRight(os.Getenv("AUTH_SERVICE_URL"), "/")
	if cfg.AuthServiceURL != "" && !isHTTPURL(cfg.AuthServiceURL) {
		invalid = append(invalid, "AUTH_SERVICE_URL")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return nil, configError(missing, invalid)
	}

	// Optional fields with defaults
	cfg.AuthTimeout = getEnvDuration("AUTH_TIMEOUT", 5*time.Second)
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "session_token")
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 120)
	cfg.RateLimitWritePerMinute = getEnvInt("RATE_LIMIT_WRITE_PER_MINUTE", 30)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "json")

	return cfg, nil
}

func configError(missing, invalid []string) error {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("required environment variables are not set: %v", missing))
	}
	if len(invalid) > 0 {
		parts = append(parts, fmt.Sprintf("environment variables have invalid values: %v", invalid))
	}
	return errors.New(strings.Join(parts, "; "))
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
