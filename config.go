package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"faktur/pkg/mailer"
)

// Config is loaded once in main and handed to collaborators at construction.
// Nothing reads the environment mid-operation.
type Config struct {
	Addr    string
	BaseURL string
	DBDSN   string

	TemplatesDir   string
	WatchTemplates bool

	ViewSecret   string
	ViewTokenTTL time.Duration

	SMTP mailer.Config
}

func loadConfig() Config {
	return Config{
		Addr:           getEnvString("ADDR", ":8081"),
		BaseURL:        getEnvString("PUBLIC_BASE_URL", "http://localhost:8081"),
		DBDSN:          getEnvString("DB_DSN", ""),
		TemplatesDir:   getEnvString("TEMPLATES_DIR", "templates"),
		WatchTemplates: getEnvBool("TEMPLATES_WATCH", false),
		ViewSecret:     getEnvString("VIEW_TOKEN_SECRET", "dev-insecure-secret-change"),
		ViewTokenTTL:   getEnvDuration("VIEW_TOKEN_TTL", 12*time.Hour),
		SMTP: mailer.Config{
			Host:     getEnvString("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnvString("SMTP_USERNAME", ""),
			Password: getEnvString("SMTP_PASSWORD", ""),
			From:     getEnvString("SMTP_FROM", "invoices@localhost"),
		},
	}
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
