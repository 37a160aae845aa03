// Package config loads and validates runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user configuration and data directories.
const AppName = "transcat"

// ExpandPath resolves a leading ~ to the home directory, then expands
// $VAR references.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + strings.TrimPrefix(path, "~")
		}
	}
	return os.ExpandEnv(path)
}

// Dir returns $HOME/.config/transcat.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}
