// SPDX-License-Identifier: MPL-2.0

// Package uploader publishes built artifacts with the external twine
// client. Dry-run requests run twine's local integrity check instead of a
// network upload; real uploads pass --skip-existing so re-publishing an
// already-present version is treated as success.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"pkgdeploy-cli/internal/manifest"
	"pkgdeploy-cli/internal/subproc"
)

var (
	// ErrMissingRepositoryURL reports an upload without a resolved target.
	ErrMissingRepositoryURL = errors.New("repository URL is required for upload")

	// ErrAmbiguousArtifact reports that strict selection did not find
	// exactly one matching wheel.
	ErrAmbiguousArtifact = errors.New("ambiguous artifact selection")
)

// UploadError reports a non-zero exit from the upload client.
type UploadError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("upload failed with exit status %d", e.ExitCode)
	if detail := strings.TrimSpace(e.Stderr); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Request describes one upload of the artifacts in DistDir.
type Request struct {
	DistDir       string
	RepositoryURL string
	Username      string
	Password      string
	// PackageName enables strict selection: only the single wheel whose
	// filename contains the normalized package name is uploaded. Empty
	// selects every file in DistDir.
	PackageName string
	// DryRun runs a local integrity check instead of uploading.
	DryRun bool
}

// Uploader publishes artifacts to a package repository.
type Uploader interface {
	Upload(ctx context.Context, req Request) error
}

// Twine invokes `python -m twine`.
type Twine struct {
	Runner subproc.Runner
	Logger *log.Logger
	Python string
}

// Upload selects the artifacts and runs twine. A non-dry-run upload
// requires a repository URL.
func (t *Twine) Upload(ctx context.Context, req Request) error {
	artifacts, err := SelectArtifacts(req.DistDir, req.PackageName)
	if err != nil {
		return err
	}

	var args []string
	if req.DryRun {
		args = append([]string{"-m", "twine", "check"}, artifacts...)
	} else {
		if req.RepositoryURL == "" {
			return ErrMissingRepositoryURL
		}
		args = append([]string{"-m", "twine", "upload",
			"--repository-url", req.RepositoryURL,
			"--disable-progress-bar",
			"--skip-existing",
		}, artifacts...)
		if req.Username != "" {
			args = append(args, "--username", req.Username)
		}
		if req.Password != "" {
			args = append(args, "--password", req.Password)
		}
	}

	spec := subproc.Spec{Name: t.Python, Args: args}
	t.Logger.Info("running upload client", "command", redactPassword(subproc.CommandLine(spec), req.Password))

	result, err := t.Runner.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to invoke upload client: %w", err)
	}
	if result.ExitCode != 0 {
		return &UploadError{ExitCode: result.ExitCode, Stdout: result.Stdout, Stderr: result.Stderr}
	}

	if req.DryRun {
		t.Logger.Info("dry run: artifacts checked, nothing uploaded", "count", len(artifacts))
	} else {
		t.Logger.Info("artifacts uploaded", "count", len(artifacts), "repository", req.RepositoryURL)
	}
	return nil
}

// SelectArtifacts returns the artifact paths to publish. With a package
// name the selection is strict: exactly one wheel whose filename contains
// the underscore-normalized name must exist, otherwise the selection is
// ambiguous. Without a name every regular file in distDir is selected.
func SelectArtifacts(distDir, packageName string) ([]string, error) {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dist directory %s: %w", distDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(distDir, e.Name()))
		}
	}
	sort.Strings(files)

	if packageName == "" {
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: no artifacts in %s", ErrAmbiguousArtifact, distDir)
		}
		return files, nil
	}

	normalized := manifest.NormalizeName(packageName)
	var wheels []string
	for _, f := range files {
		name := filepath.Base(f)
		if strings.HasSuffix(name, ".whl") && strings.Contains(name, normalized) {
			wheels = append(wheels, f)
		}
	}

	if len(wheels) != 1 {
		return nil, fmt.Errorf("%w: %d wheels match package %q in %s",
			ErrAmbiguousArtifact, len(wheels), packageName, distDir)
	}
	return wheels, nil
}

// redactPassword masks the credential in logged command lines.
func redactPassword(cmdline, password string) string {
	if password == "" {
		return cmdline
	}
	return strings.ReplaceAll(cmdline, password, "********")
}
