// internal/config/config.go
//
// Process configuration read from the environment (after .env is loaded by main).
// Every setting has a default so the server runs with no environment at all.

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the server process.
type Config struct {
	Port               string        // PORT
	LogLevel           string        // LOG_LEVEL
	DBPath             string        // DB_PATH; empty keeps games in memory
	WordsFile          string        // WORDS_FILE; empty uses the embedded list
	StrictTurns        bool          // STRICT_TURNS
	StoreRetries       int           // STORE_RETRIES
	StoreRetryBackoff  time.Duration // STORE_RETRY_BACKOFF
	SessionIdleTimeout time.Duration // SESSION_IDLE_TIMEOUT
	ClientOrigin       string        // CLIENT_ORIGIN
}

// Load reads Config from the environment.
func Load() (Config, error) {
	c := Config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBPath:       os.Getenv("DB_PATH"),
		WordsFile:    os.Getenv("WORDS_FILE"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
	}

	var err error
	if c.StrictTurns, err = getBool("STRICT_TURNS", true); err != nil {
		return Config{}, err
	}
	if c.StoreRetries, err = getInt("STORE_RETRIES", 3); err != nil {
		return Config{}, err
	}
	if c.StoreRetries < 1 {
		return Config{}, fmt.Errorf("STORE_RETRIES must be at least 1, got %d", c.StoreRetries)
	}
	if c.StoreRetryBackoff, err = getDuration("STORE_RETRY_BACKOFF", 50*time.Millisecond); err != nil {
		return Config{}, err
	}
	if c.SessionIdleTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", k, v)
	}
	return d, nil
}
