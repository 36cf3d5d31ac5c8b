package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpandEnvWithDefaults verifies that environment variable expansion
// properly handles ${VAR:-default} syntax.
func TestExpandEnvWithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		env      map[string]string
		expected string
	}{
		{
			name:     "default used when var unset",
			input:    `${NEPTUNE_HOST:-localhost}:8182`,
			env:      map[string]string{},
			expected: `localhost:8182`,
		},
		{
			name:     "env value used when set",
			input:    `${NEPTUNE_HOST:-localhost}:8182`,
			env:      map[string]string{"NEPTUNE_HOST": "db.prod"},
			expected: `db.prod:8182`,
		},
		{
			name:     "multiple vars with defaults",
			input:    `nats://${NATS_HOST:-localhost}:${NATS_PORT:-4222}`,
			env:      map[string]string{},
			expected: `nats://localhost:4222`,
		},
		{
			name:     "partial env set",
			input:    `nats://${NATS_HOST:-localhost}:${NATS_PORT:-4222}`,
			env:      map[string]string{"NATS_HOST": "nats.prod"},
			expected: `nats://nats.prod:4222`,
		},
		{
			name:     "empty default",
			input:    `prefix${OPTIONAL:-}suffix`,
			env:      map[string]string{},
			expected: `prefixsuffix`,
		},
		{
			name:     "simple var without default",
			input:    `${SIMPLE_VAR}`,
			env:      map[string]string{"SIMPLE_VAR": "value"},
			expected: `value`,
		},
		{
			name:     "simple var unset without default",
			input:    `${SIMPLE_VAR}`,
			env:      map[string]string{},
			expected: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range []string{"NEPTUNE_HOST", "NATS_HOST", "NATS_PORT", "OPTIONAL", "SIMPLE_VAR"} {
				t.Setenv(v, "")
				require.NoError(t, os.Unsetenv(v))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnvWithDefaults(tt.input)

			assert.Equal(t, tt.expected, result, "expansion mismatch for input: %s", tt.input)
		})
	}
}

func TestLoadFromFileExpandsEnv(t *testing.T) {
	t.Setenv("RDF_EXPORT_ENDPOINT", "db.env.local")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "connection:\n  endpoints:\n    - ${RDF_EXPORT_ENDPOINT}\n  port: ${RDF_EXPORT_PORT:-8190}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"db.env.local"}, cfg.Connection.Endpoints)
	assert.Equal(t, 8190, cfg.Connection.Port)
}
