// Package config holds this CLI's own environment-derived settings, as
// distinct from internal/pkgmgrconfig, which reads and writes the package
// manager's own INI file inside a resource directory.
package config

import (
	"fmt"
	"os"
	"time"
)

const (
	// EnvAPITimeout is the environment variable to configure API request timeout.
	EnvAPITimeout = "DAWKIT_API_TIMEOUT"

	// DefaultAPITimeout is the default timeout for API requests (30 seconds).
	DefaultAPITimeout = 30 * time.Second
)

// GetAPITimeout returns the configured API timeout from the DAWKIT_API_TIMEOUT
// environment variable. If not set or invalid, returns DefaultAPITimeout.
// Accepts duration strings like "30s", "1m", "2m30s".
func GetAPITimeout() time.Duration {
	envValue := os.Getenv(EnvAPITimeout)
	if envValue == "" {
		return DefaultAPITimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvAPITimeout, envValue, DefaultAPITimeout)
		return DefaultAPITimeout
	}

	if duration < 1*time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n",
			EnvAPITimeout, duration)
		return 1 * time.Second
	}
	if duration > 10*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 10m\n",
			EnvAPITimeout, duration)
		return 10 * time.Minute
	}

	return duration
}
