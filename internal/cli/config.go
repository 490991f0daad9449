package cli

import (
	"errors"
	"os"
	"time"
)

// Config holds CLI configuration
type Config struct {
	Addr       string
	AdminURL   string
	AdminToken string
	Username   string
	Password   string
	Timeout    time.Duration
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Addr:       getEnvOrDefault("BSCTL_ADDR", "localhost:8888"),
		AdminURL:   getEnvOrDefault("BSCTL_ADMIN_URL", "http://localhost:8080"),
		AdminToken: os.Getenv("BSCTL_ADMIN_TOKEN"),
		Username:   os.Getenv("BSCTL_USER"),
		Password:   os.Getenv("BSCTL_PASS"),
		Timeout:    10 * time.Second,
		Output:     "text",
		Verbose:    false,
	}
}

// RequireCredentials checks that a username and password were supplied.
// Sessions end with the connection, so every command logs in afresh.
func (c *Config) RequireCredentials() error {
	if c.Username == "" || c.Password == "" {
		return errors.New("--user and --pass (or BSCTL_USER and BSCTL_PASS) are required")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
