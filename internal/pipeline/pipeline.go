// SPDX-License-Identifier: MPL-2.0

// Package pipeline coordinates the release flow: optional package rename,
// version bump, build, upload, tag push, and best-effort cleanup. Stages
// run strictly in order, each gated on the previous stage's success;
// cleanup runs regardless of outcome.
package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/gitops"
	"pkgdeploy-cli/internal/manifest"
	"pkgdeploy-cli/internal/semver"
	"pkgdeploy-cli/internal/subproc"
	"pkgdeploy-cli/internal/uploader"
)

type (
	// ReleaseConfig is the immutable per-run configuration, assembled once
	// by the CLI boundary and never mutated afterwards.
	ReleaseConfig struct {
		// PackageName renames the package when it differs from the
		// manifest, and enables strict single-wheel artifact selection.
		// Empty leaves the name alone and uploads every artifact.
		PackageName string
		// ProjectDir is the project root containing the manifest.
		ProjectDir string
		// ManifestPath is the pyproject.toml location.
		ManifestPath string
		// Bump selects the version transition.
		Bump semver.BumpKind
		// Variant selects the build strategy.
		Variant buildtool.Variant
		// RepositoryName is the .pypirc section the target was resolved
		// from, if any (informational; the URL below is authoritative).
		RepositoryName string
		// RepositoryURL is the upload target.
		RepositoryURL string
		// Username and Password are the resolved credentials.
		Username string
		Password string
		// DryRun checks artifacts locally instead of uploading.
		DryRun bool
	}

	// RunContext carries the per-run cross-cutting state through the
	// pipeline instead of process-wide globals.
	RunContext struct {
		Logger  *log.Logger
		DryRun  bool
		Verbose bool
	}

	// GitPusher pushes release tags after a successful upload.
	GitPusher interface {
		PushTags(ctx context.Context) error
	}

	// Dependencies defines the injection points for building a
	// Coordinator. Nil fields are replaced with production defaults by
	// New; tests supply fakes.
	Dependencies struct {
		Runner   subproc.Runner
		Uploader uploader.Uploader
		Git      GitPusher
		// Python is the interpreter path; empty resolves from PATH.
		Python string
	}

	// Coordinator drives the release pipeline for one run.
	Coordinator struct {
		cfg  ReleaseConfig
		run  *RunContext
		deps Dependencies
		doc  *manifest.Document
		// hadSetupPy records whether the project carried its own setup.py
		// before the run, so cleanup only deletes a generated one.
		hadSetupPy bool
	}
)

// New loads the manifest and wires the coordinator's collaborators.
func New(cfg ReleaseConfig, run *RunContext, deps Dependencies) (*Coordinator, error) {
	doc, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	if deps.Runner == nil {
		deps.Runner = subproc.ExecRunner{}
	}
	if deps.Python == "" {
		python, err := buildtool.FindPython()
		if err != nil {
			return nil, err
		}
		deps.Python = python
	}
	if deps.Uploader == nil {
		deps.Uploader = &uploader.Twine{
			Runner: deps.Runner,
			Logger: run.Logger,
			Python: deps.Python,
		}
	}
	if deps.Git == nil {
		deps.Git = &gitops.Client{
			Runner: deps.Runner,
			Logger: run.Logger,
			Dir:    cfg.ProjectDir,
		}
	}

	_, statErr := os.Stat(filepath.Join(cfg.ProjectDir, "setup.py"))

	return &Coordinator{
		cfg:        cfg,
		run:        run,
		deps:       deps,
		doc:        doc,
		hadSetupPy: statErr == nil,
	}, nil
}

// Manifest exposes the loaded manifest (for the CLI's read-only commands).
func (c *Coordinator) Manifest() *manifest.Document {
	return c.doc
}
