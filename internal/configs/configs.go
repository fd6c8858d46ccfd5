/*
Package configs is responsible for loading and parsing the application's configuration settings.

Server parameters are read from operating system environment variables:
the running environment, listen port, and CORS allowed origins.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// Environment selects development or production behavior (logging format,
	// origin checks). Defaults to "development".
	Environment string

	// Port is the HTTP listen port.
	Port int

	// AllowedOrigins lists the origins accepted for CORS and WebSocket
	// upgrades outside development.
	AllowedOrigins []string
}

// LoadConfig reads and parses the application configuration from environment
// variables, applying development defaults and validating values.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	return cfg, nil
}
