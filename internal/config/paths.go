package config

import (
	"os"
	"path/filepath"
)

// UserConfigDir returns ~/.deskmonkey, creating nothing itself.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deskmonkey"), nil
}

// EnsureUserConfigDir creates UserConfigDir if it doesn't already exist.
func EnsureUserConfigDir() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
