package webserver

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// WebserverConfig holds the configuration for the webserver.
type WebserverConfig struct {
	ListenTo           string
	CorsAllowedOrigins []string
	RateLimit          rate.Limit // Requests per second per client
	RateBurst          int
	// TrustProxy keys rate limiting on X-Forwarded-For instead of the peer address.
	TrustProxy bool
}

// NewWebserverConfig initializes the webserver configuration from environment variables.
func NewWebserverConfig() (*WebserverConfig, error) {
	config := &WebserverConfig{}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	config.ListenTo = ":" + port

	corsAllowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsAllowedOrigins != "" {
		config.CorsAllowedOrigins = strings.Split(corsAllowedOrigins, ",")
	}

	rateValue, err := strconv.ParseFloat(os.Getenv("API_RATE_LIMIT"), 64)
	if err != nil || rateValue <= 0 {
		rateValue = 10
		logrus.Infof("Invalid or missing API_RATE_LIMIT. Defaulting to %.0f requests/s.", rateValue)
	}
	config.RateLimit = rate.Limit(rateValue)

	burst, err := strconv.Atoi(os.Getenv("API_RATE_BURST"))
	if err != nil || burst <= 0 {
		burst = 20
		logrus.Infof("Invalid or missing API_RATE_BURST. Defaulting to %d.", burst)
	}
	config.RateBurst = burst

	trustProxy := os.Getenv("API_TRUST_PROXY")
	if trustProxy != "" {
		config.TrustProxy, err = strconv.ParseBool(trustProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid API_TRUST_PROXY value: %v", err)
		}
	}

	return config, nil
}
