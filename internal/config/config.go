// Package config reads the client's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	apiURLVar        = "HMS_API_URL"
	portalURLVar     = "HMS_PORTAL_URL"
	homeVar          = "HMS_HOME"
	storageVar       = "HMS_STORAGE"
	redisURLVar      = "HMS_REDIS_URL"
	redisPrefixVar   = "HMS_REDIS_PREFIX"
	httpTimeoutVar   = "HMS_HTTP_TIMEOUT"
	toastDurationVar = "HMS_TOAST_DURATION"
	logLevelVar      = "HMS_LOG_LEVEL"
	logFileVar       = "HMS_LOG_FILE"
)

// Storage backends for the persisted session.
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	APIURL    string
	PortalURL string
	// Home holds the session files and the log file.
	Home          string
	Storage       string
	RedisURL      string
	RedisPrefix   string
	HTTPTimeout   time.Duration
	ToastDuration time.Duration
	LogLevel      string
	LogFile       string
}

// GetEnv returns the value of envVar, or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	home := os.Getenv(homeVar)
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		home = filepath.Join(dir, ".hms")
	}

	httpTimeout, err := duration(httpTimeoutVar, "30s")
	if err != nil {
		return nil, err
	}
	toast, err := duration(toastDurationVar, "3s")
	if err != nil {
		return nil, err
	}

	apiURL := strings.TrimRight(GetEnv(apiURLVar, "http://localhost:5000/api"), "/")
	cfg := &Config{
		APIURL:        apiURL,
		PortalURL:     GetEnv(portalURLVar, portalFromAPI(apiURL)),
		Home:          home,
		Storage:       strings.ToLower(GetEnv(storageVar, StorageFile)),
		RedisURL:      GetEnv(redisURLVar, "redis://localhost:6379/0"),
		RedisPrefix:   GetEnv(redisPrefixVar, "hms:"),
		HTTPTimeout:   httpTimeout,
		ToastDuration: toast,
		LogLevel:      GetEnv(logLevelVar, "info"),
		LogFile:       GetEnv(logFileVar, filepath.Join(home, "hms.log")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func duration(envVar, def string) (time.Duration, error) {
	d, err := time.ParseDuration(GetEnv(envVar, def))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", envVar, err)
	}
	return d, nil
}

// portalFromAPI derives the web portal address from the API address: the
// API lives under /api, or on an api. subdomain of the portal.
func portalFromAPI(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return apiURL
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
	if host := u.Hostname(); strings.HasPrefix(host, "api.") {
		host = strings.TrimPrefix(host, "api.")
		if port := u.Port(); port != "" {
			host += ":" + port
		}
		u.Host = host
	}
	return u.String()
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{apiURLVar: c.APIURL, portalURLVar: c.PortalURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: %s: %q is not an absolute URL", name, raw))
		}
	}
	switch c.Storage {
	case StorageFile, StorageMemory:
	case StorageRedis:
		if _, err := url.Parse(c.RedisURL); err != nil || c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("config: %s: %q is not a URL", redisURLVar, c.RedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("config: %s: unknown backend %q", storageVar, c.Storage))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: %s must be positive", httpTimeoutVar))
	}
	if c.ToastDuration < 0 {
		errs = append(errs, fmt.Errorf("config: %s must not be negative", toastDurationVar))
	}
	return errors.Join(errs...)
}

// SessionDir is where the file backend keeps the session.
func (c *Config) SessionDir() string {
	return filepath.Join(c.Home, "session")
}
