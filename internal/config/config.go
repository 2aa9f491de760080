// Package config loads application configuration from environment
// variables, reading a .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	StorageDriver  string // STORAGE_DRIVER: mysql (default) or memory
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	CORSOrigins    []string // CORS_ALLOW_ORIGINS, comma separated; empty allows any
	LogLevel       string
	LogFormat      string
	LogOutput      string // stdout, stderr or a file path
	AdminEmail     string // ADMIN_EMAIL and ADMIN_PASSWORD seed an admin when both are set
	AdminPassword  string
}

// LoadDotEnv reads the given files (default .env) into the environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from the environment. Every missing or
// malformed required variable is reported in the returned error.
func Load() (Config, error) {
	r := &reader{}
	cfg := Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           r.must("APP_PORT"),
		StorageDriver:  strings.ToLower(getenv("STORAGE_DRIVER", StorageMySQL)),
		JWTSecret:      r.must("JWT_SECRET"),
		AccessTTLMin:   r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: r.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		CORSOrigins:    splitList(os.Getenv("CORS_ALLOW_ORIGINS")),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
		LogOutput:      getenv("LOG_OUTPUT", "stdout"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}
	switch cfg.StorageDriver {
	case StorageMySQL:
		cfg.DBUser = r.must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.must("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	case StorageMemory:
	default:
		r.errs = append(r.errs, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver))
	}
	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	return cfg, nil
}

// reader collects errors for required variables.
type reader struct{ errs []error }

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
