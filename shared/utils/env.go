package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnvOrDefault returns the value of the environment variable or the default.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBoolOrDefault returns the environment variable parsed as a boolean,
// or the default when unset or unparsable.
func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetEnvIntOrDefault returns the environment variable parsed as an int,
// or the default when unset or unparsable.
func GetEnvIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
