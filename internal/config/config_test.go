// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	SetConfigDirOverride(t.TempDir())
	t.Cleanup(Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Repository.Name != "" || cfg.Repository.URL != "" {
		t.Errorf("defaults = %+v, want empty repository", cfg.Repository)
	}
	if cfg.Verbose {
		t.Error("Verbose default = true, want false")
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `verbose = true

[repository]
name = "internal"
url = "https://nexus.example.com/repository/pypi-internal/"
username = "admin"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Repository.Name != "internal" {
		t.Errorf("Repository.Name = %q, want internal", cfg.Repository.Name)
	}
	if cfg.Repository.URL != "https://nexus.example.com/repository/pypi-internal/" {
		t.Errorf("Repository.URL = %q", cfg.Repository.URL)
	}
	if cfg.Repository.Username != "admin" {
		t.Errorf("Repository.Username = %q, want admin", cfg.Repository.Username)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0o644); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if _, err := Load(); err == nil {
		t.Error("Load() with invalid TOML succeeded, want error")
	}
}
