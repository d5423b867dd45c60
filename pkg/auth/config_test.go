package auth

import (
	"testing"
	"time"
)

func TestNewConfigDisabledByDefault(t *testing.T) {
	t.Setenv("API_JWT_SECRET", "")
	t.Setenv("API_TOKEN_EXPIRATION", "hours=24")

	config, err := NewConfig()
	if err != nil {
		t.Fatalf("failed to create config: %v", err)
	}
	if config.Enabled() {
		t.Errorf("expected auth disabled without API_JWT_SECRET")
	}
	if config.TokenExpiration != 24*time.Hour {
		t.Errorf("expected 24h expiration, got %v", config.TokenExpiration)
	}
}

func TestNewConfigWithSecret(t *testing.T) {
	t.Setenv("API_JWT_SECRET", "mysecret")
	t.Setenv("API_TOKEN_EXPIRATION", "minutes=30")

	config, err := NewConfig()
	if err != nil {
		t.Fatalf("failed to create config: %v", err)
	}
	if !config.Enabled() || string(config.JwtSecret) != "mysecret" {
		t.Errorf("JwtSecret mismatch")
	}
	if config.TokenExpiration != 30*time.Minute {
		t.Errorf("expected 30m expiration, got %v", config.TokenExpiration)
	}
}

func TestNewConfigBadExpiration(t *testing.T) {
	t.Setenv("API_TOKEN_EXPIRATION", "weeks=2")
	if _, err := NewConfig(); err == nil {
		t.Errorf("expected error for unknown time unit")
	}
}

func TestParseDurationString(t *testing.T) {
	duration, err := parseDurationString("minutes=15")
	if err != nil {
		t.Errorf("failed to parse duration: %v", err)
	}
	if duration != 15*time.Minute {
		t.Errorf("expected 15 minutes, got %v", duration)
	}

	duration, err = parseDurationString("hours=1, minutes=30")
	if err != nil {
		t.Errorf("failed to parse duration: %v", err)
	}
	if duration != 90*time.Minute {
		t.Errorf("expected 90 minutes, got %v", duration)
	}

	if _, err := parseDurationString("hours"); err == nil {
		t.Errorf("expected error for missing value")
	}
}
