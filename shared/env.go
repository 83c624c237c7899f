package shared

import (
	"fmt"
	"os"
)

// Getenv returns the value of key, or fallback when the variable is unset or
// empty.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequireEnv returns the value of key, erroring when unset or empty.
func RequireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s environment variable not set", key)
	}
	return v, nil
}
