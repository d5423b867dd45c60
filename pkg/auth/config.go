package auth

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the API token settings. An empty JwtSecret disables authentication.
type Config struct {
	JwtSecret       []byte
	TokenExpiration time.Duration
}

// Enabled reports whether requests must carry a bearer token.
func (c *Config) Enabled() bool { return len(c.JwtSecret) > 0 }

// NewConfig initializes the authentication configuration from environment variables.
func NewConfig() (*Config, error) {
	authConfig := &Config{
		JwtSecret: []byte(getEnv("API_JWT_SECRET", "")),
	}

	expiration, err := parseDurationString(getEnv("API_TOKEN_EXPIRATION", "hours=24"))
	if err != nil {
		return nil, fmt.Errorf("error parsing API_TOKEN_EXPIRATION: %w", err)
	}
	authConfig.TokenExpiration = expiration

	return authConfig, nil
}

// getEnv retrieves the value of the environment variable named by the key.
// It returns the value, or the defaultValue if the variable is not present.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// parseDurationString parses a duration string formatted as "minutes=1, hours=2, days=3, seconds=30"
func parseDurationString(s string) (time.Duration, error) {
	parts := strings.Split(s, ",")
	var totalDuration time.Duration

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyValue := strings.SplitN(part, "=", 2)
		if len(keyValue) != 2 {
			return 0, fmt.Errorf("invalid format for part: '%s'", part)
		}
		key := strings.ToLower(strings.TrimSpace(keyValue[0]))
		valueStr := strings.TrimSpace(keyValue[1])
		value, err := strconv.Atoi(valueStr)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: '%s'", key, valueStr)
		}

		switch key {
		case "minutes":
			totalDuration += time.Duration(value) * time.Minute
		case "hours":
			totalDuration += time.Duration(value) * time.Hour
		case "days":
			totalDuration += time.Duration(value) * 24 * time.Hour
		case "seconds":
			totalDuration += time.Duration(value) * time.Second
		default:
			return 0, fmt.Errorf("unknown time unit: '%s'", key)
		}
	}

	return totalDuration, nil
}
