package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "recite"

// ResolvePath returns explicit when set, else config.jsonc under the XDG
// config home.
func ResolvePath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	return xdgFile("XDG_CONFIG_HOME", []string{".config"}, "config.jsonc")
}

// DefaultSQLitePath returns progress.db under the XDG data home.
func DefaultSQLitePath() (string, error) {
	return xdgFile("XDG_DATA_HOME", []string{".local", "share"}, "progress.db")
}

// xdgFile resolves $env/recite/name, falling back to ~/<homeRel...>/recite/name.
func xdgFile(env string, homeRel []string, name string) (string, error) {
	if base := strings.TrimSpace(os.Getenv(env)); base != "" {
		return filepath.Join(base, appDir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve %s fallback: %w", env, err)
	}
	parts := append([]string{home}, homeRel...)
	return filepath.Join(append(parts, appDir, name)...), nil
}
