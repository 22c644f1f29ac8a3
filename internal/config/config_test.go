package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("got LogLevel %q, want info", cfg.LogLevel)
	}
	if cfg.HistoryDB == "" {
		t.Fatal("expected a default HistoryDB path")
	}
}

func TestSaveThenLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		UserApp:           "/usr/bin/target-app",
		UserAppArgs:       []string{"--headless"},
		ExitOnScriptError: true,
		LogLevel:          "debug",
		ObserverAddr:      ":9631",
	}
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.UserApp != cfg.UserApp || got.ExitOnScriptError != true || got.ObserverAddr != ":9631" {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
	if len(got.UserAppArgs) != 1 || got.UserAppArgs[0] != "--headless" {
		t.Fatalf("got args %+v", got.UserAppArgs)
	}
}

func TestLoadAppliesDefaultsOnPartialFile(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &Config{UserApp: "/bin/x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LogLevel != "info" {
		t.Fatalf("got LogLevel %q, want info", got.LogLevel)
	}
}

func TestSaveCreatesDirIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	if err := Save(dir, &Config{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
