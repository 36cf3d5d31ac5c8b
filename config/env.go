package config

import (
	"os"
	"strings"
)

// ExpandEnvWithDefaults replaces ${VAR}, $VAR and ${VAR:-default} in s
// with values from the environment. Unset variables without a default
// expand to the empty string.
func ExpandEnvWithDefaults(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}
