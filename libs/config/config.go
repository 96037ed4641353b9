// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	Session  SessionConfig
	SMTP     SMTPConfig
	Upload   UploadConfig
	Comments CommentsConfig
	BaseURL  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port pair of the Redis server
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings for the JSON endpoints
type CORSConfig struct {
	AllowedOrigins []string
}

// SessionConfig holds session cookie and remember-me settings
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	RememberTTL  time.Duration
	CookieSecure bool
}

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// UploadConfig holds settings for uploaded images
type UploadConfig struct {
	Dir     string
	MaxSize int64
}

// CommentsConfig holds comment length bounds
type CommentsConfig struct {
	MinLength int
	MaxLength int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := intOrDefault("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	cfg.BaseURL = strings.TrimRight(stringOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%d", serverPort)), "/")

	// Logging configuration
	cfg.Logging.Level = stringOrDefault("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Session configuration
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	cfg.Session.Secret = sessionSecret

	if cfg.Session.TTL, err = durationOrDefault("SESSION_TTL", "24h"); err != nil {
		return nil, err
	}
	// Remember-me cookies live for 30 days unless overridden
	if cfg.Session.RememberTTL, err = durationOrDefault("REMEMBER_TTL", "720h"); err != nil {
		return nil, err
	}
	cfg.Session.CookieSecure = os.Getenv("COOKIE_SECURE") == "true"

	// Redis configuration (sessions and the email queue)
	cfg.Redis.Host = stringOrDefault("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = intOrDefault("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD") // optional
	if cfg.Redis.DB, err = intOrDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// SMTP configuration (used by the worker)
	cfg.SMTP.Host = stringOrDefault("SMTP_HOST", "localhost")
	if cfg.SMTP.Port, err = intOrDefault("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME") // optional
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD") // optional
	cfg.SMTP.From = stringOrDefault("SMTP_FROM", "noreply@bloghut.local")

	// Upload configuration
	cfg.Upload.Dir = stringOrDefault("UPLOAD_DIR", "uploads")
	maxUpload, err := intOrDefault("MAX_UPLOAD_SIZE", 5*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.Upload.MaxSize = int64(maxUpload)

	// Comment length bounds
	if cfg.Comments.MinLength, err = intOrDefault("MIN_COMMENT_LENGTH", 3); err != nil {
		return nil, err
	}
	if cfg.Comments.MaxLength, err = intOrDefault("MAX_COMMENT_LENGTH", 1000); err != nil {
		return nil, err
	}
	if cfg.Comments.MinLength > cfg.Comments.MaxLength {
		return nil, fmt.Errorf("MIN_COMMENT_LENGTH must not exceed MAX_COMMENT_LENGTH")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	if c.Database.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func stringOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationOrDefault(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(stringOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseOrigins splits a comma-separated origin list, defaulting to "*"
func parseOrigins(raw string) []string {
	if raw == "" {
		// Default to allow all origins if not specified (for development)
		return []string{"*"}
	}
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
