package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Get resolves a secret from the environment. When a KEY_FILE variant is set
// the value is read from that file (Docker secrets mount), otherwise the
// plain env var is used, then the default.
func Get(envKey string, defaultValue string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptionalSecret resolves a secret, falling back to the default on any error
func GetOptionalSecret(envKey string, defaultValue string) string {
	value, err := Get(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}
