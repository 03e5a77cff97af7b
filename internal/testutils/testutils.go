package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nfrund/campus/internal/config"
)

// ConfigForTests loads .env.test from the module root into the test's
// environment and returns the resulting configuration. Tests are skipped when
// no database is configured.
func ConfigForTests(t *testing.T) config.Provider {
	t.Helper()

	if root, ok := moduleRoot(); ok {
		if env, err := godotenv.Read(filepath.Join(root, ".env.test")); err == nil {
			for key, value := range env {
				t.Setenv(key, value)
			}
		}
	}

	cfg, err := config.FromEnv()
	if err != nil {
		t.Skipf("database not configured: %v", err)
	}
	return cfg
}

// UniqueID returns a prefixed identifier that will not collide across test runs.
func UniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func moduleRoot() (string, bool) {
	path, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path, true
		}
		if path == filepath.Dir(path) {
			return "", false
		}
		path = filepath.Dir(path)
	}
}
