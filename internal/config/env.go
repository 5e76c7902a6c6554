package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvConfigPath = "TRACKVIEW_CONFIG"
	EnvLogLevel   = "TRACKVIEW_LOG_LEVEL"
)

// LoadEnv reads an optional dotenv file into the process environment.
// Variables already set are left untouched.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ConfigPath returns the config file location honoring TRACKVIEW_CONFIG.
func ConfigPath() string {
	return getEnv(EnvConfigPath, DefaultConfigPath)
}

// ApplyEnv overrides fields that have an environment variable.
func (c *Config) ApplyEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
}
