// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/config"
	"pkgdeploy-cli/internal/manifest"
	"pkgdeploy-cli/internal/pypirc"
	"pkgdeploy-cli/internal/semver"
)

// resetDeployFlags restores the package-level flag state after a test.
func resetDeployFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		deployPackageName = ""
		deployBump = "patch"
		deployCython = false
		deployRepoName = ""
		deployRepoURL = ""
		deployUsername = ""
		deployPassword = ""
		deployInteractive = false
		deployDryRun = false
		projectDir = "."
		toolConfig = &config.Config{}
	})
}

func TestAssembleReleaseConfig_FlagsWinOverConfig(t *testing.T) {
	resetDeployFlags(t)
	t.Setenv("TWINE_USERNAME", "")
	t.Setenv("TWINE_PASSWORD", "")

	toolConfig = &config.Config{}
	toolConfig.Repository.URL = "https://config.example.com/pypi/"
	toolConfig.Repository.Username = "config-user"

	deployRepoURL = "https://flag.example.com/pypi/"
	deployUsername = "flag-user"
	deployPassword = "flag-pass"
	deployCython = true
	projectDir = "/tmp/project"

	cfg, err := assembleReleaseConfig(semver.BumpMinor)
	if err != nil {
		t.Fatalf("assembleReleaseConfig() error = %v", err)
	}

	if cfg.RepositoryURL != "https://flag.example.com/pypi/" {
		t.Errorf("RepositoryURL = %q, want flag value", cfg.RepositoryURL)
	}
	if cfg.Username != "flag-user" || cfg.Password != "flag-pass" {
		t.Errorf("credentials = %q/%q, want flag values", cfg.Username, cfg.Password)
	}
	if cfg.Variant != buildtool.VariantCython {
		t.Errorf("Variant = %q, want cython", cfg.Variant)
	}
	if cfg.Bump != semver.BumpMinor {
		t.Errorf("Bump = %q, want minor", cfg.Bump)
	}
	if cfg.ManifestPath != filepath.Join("/tmp/project", "pyproject.toml") {
		t.Errorf("ManifestPath = %q", cfg.ManifestPath)
	}
}

func TestAssembleReleaseConfig_ConfigFileFallback(t *testing.T) {
	resetDeployFlags(t)
	t.Setenv("TWINE_USERNAME", "")
	t.Setenv("TWINE_PASSWORD", "")

	toolConfig = &config.Config{}
	toolConfig.Repository.URL = "https://config.example.com/pypi/"
	toolConfig.Repository.Username = "config-user"
	deployDryRun = true

	cfg, err := assembleReleaseConfig(semver.BumpPatch)
	if err != nil {
		t.Fatalf("assembleReleaseConfig() error = %v", err)
	}

	if cfg.RepositoryURL != "https://config.example.com/pypi/" {
		t.Errorf("RepositoryURL = %q, want config value", cfg.RepositoryURL)
	}
	if cfg.Username != "config-user" {
		t.Errorf("Username = %q, want config value", cfg.Username)
	}
}

func TestAssembleReleaseConfig_MissingURLFailsFast(t *testing.T) {
	resetDeployFlags(t)
	toolConfig = &config.Config{}

	_, err := assembleReleaseConfig(semver.BumpPatch)
	if err == nil {
		t.Fatal("assembleReleaseConfig() error = nil, want missing repository URL error")
	}
	if !strings.Contains(err.Error(), "no repository URL") {
		t.Errorf("error = %v, want mention of missing repository URL", err)
	}
}

func TestAssembleReleaseConfig_DryRunNeedsNoTarget(t *testing.T) {
	resetDeployFlags(t)
	t.Setenv("TWINE_USERNAME", "")
	t.Setenv("TWINE_PASSWORD", "")

	toolConfig = &config.Config{}
	deployDryRun = true

	cfg, err := assembleReleaseConfig(semver.BumpPatch)
	if err != nil {
		t.Fatalf("assembleReleaseConfig() error = %v", err)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true")
	}
	if cfg.RepositoryURL != "" {
		t.Errorf("RepositoryURL = %q, want empty", cfg.RepositoryURL)
	}
}

func TestAssembleReleaseConfig_PypircFillsMissingFields(t *testing.T) {
	resetDeployFlags(t)
	t.Setenv("TWINE_USERNAME", "")
	t.Setenv("TWINE_PASSWORD", "")

	home := t.TempDir()
	t.Setenv("HOME", home)
	pypircContent := `[distutils]
index-servers =
    internal

[internal]
repository = https://nexus.example.com/repository/pypi-internal/
username = nexus-user
password = nexus-pass
`
	if err := os.WriteFile(filepath.Join(home, ".pypirc"), []byte(pypircContent), 0o600); err != nil {
		t.Fatal(err)
	}

	toolConfig = &config.Config{}
	deployRepoName = "internal"

	cfg, err := assembleReleaseConfig(semver.BumpPatch)
	if err != nil {
		t.Fatalf("assembleReleaseConfig() error = %v", err)
	}

	if cfg.RepositoryName != "internal" {
		t.Errorf("RepositoryName = %q, want internal", cfg.RepositoryName)
	}
	if cfg.RepositoryURL != "https://nexus.example.com/repository/pypi-internal/" {
		t.Errorf("RepositoryURL = %q, want .pypirc value", cfg.RepositoryURL)
	}
	if cfg.Username != "nexus-user" || cfg.Password != "nexus-pass" {
		t.Errorf("credentials = %q/%q, want .pypirc values", cfg.Username, cfg.Password)
	}
}

func TestResolveNamedRepository_UnknownSection(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, ".pypirc"), []byte("[other]\nrepository = https://example.com/\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := resolveNamedRepository("internal")
	if !errors.Is(err, pypirc.ErrRepositoryNameUnresolved) {
		t.Errorf("resolveNamedRepository() error = %v, want ErrRepositoryNameUnresolved", err)
	}
}

func TestResolveNamedRepository_MissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := resolveNamedRepository("internal")
	if !errors.Is(err, pypirc.ErrPypircNotFound) {
		t.Errorf("resolveNamedRepository() error = %v, want ErrPypircNotFound", err)
	}
}

func TestStarterPyproject_IsLoadableManifest(t *testing.T) {
	t.Parallel()

	doc, err := manifest.ParseBytes([]byte(starterPyproject("my-pkg")), "pyproject.toml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if got := doc.Name(); got != "my-pkg" {
		t.Errorf("Name() = %q, want my-pkg", got)
	}
	if got := doc.Version(); got != "0.1.0" {
		t.Errorf("Version() = %q, want 0.1.0", got)
	}
	if got := doc.BuildBackend(); got != "setuptools.build_meta" {
		t.Errorf("BuildBackend() = %q, want setuptools.build_meta", got)
	}
}
