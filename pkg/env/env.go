package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
// Only platform-injected variables outside the ACADEMIA_ prefix read through here;
// everything else goes through config.Load.
func Get(key, fallback string) string {
	return FirstOf(fallback, key)
}

// FirstOf returns the first non-blank value among keys, or fallback.
func FirstOf(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
