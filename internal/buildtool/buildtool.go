// SPDX-License-Identifier: MPL-2.0

// Package buildtool invokes the external build frontend (`python -m build`)
// to produce distributable artifacts under <project>/dist. Two strategies
// exist: the standard wheel-only build, and a Cython build that prepares
// the manifest and a generated setup.py before compiling every source file
// into a native extension.
package buildtool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"pkgdeploy-cli/internal/manifest"
	"pkgdeploy-cli/internal/subproc"
)

// Variant selects a build strategy.
type Variant string

// Build variants.
const (
	VariantStandard Variant = "standard"
	VariantCython   Variant = "cython"
)

// BuildError reports a non-zero exit from the build frontend, carrying the
// captured diagnostic output.
type BuildError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build failed with exit status %d", e.ExitCode)
	if detail := strings.TrimSpace(e.Stderr); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Strategy builds distribution artifacts for a project.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Build runs the build frontend in projectDir. Artifacts land in
	// projectDir/dist. A non-zero tool exit surfaces as *BuildError.
	Build(ctx context.Context, projectDir string) error
}

// Options carries the shared dependencies of all strategies.
type Options struct {
	Runner subproc.Runner
	Logger *log.Logger
	// Python is the interpreter used to invoke the build module.
	Python string
	// Manifest is the project manifest; the Cython strategy mutates it.
	Manifest *manifest.Document
}

// Select returns the strategy for the configured variant.
func Select(variant Variant, opts Options) (Strategy, error) {
	switch variant {
	case VariantStandard:
		return &Standard{opts: opts}, nil
	case VariantCython:
		return &Cython{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown build variant: %q", variant)
	}
}

// FindPython locates the interpreter, preferring python3.
func FindPython() (string, error) {
	if path, err := exec.LookPath("python3"); err == nil {
		return path, nil
	}
	if path, err := exec.LookPath("python"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("no python interpreter found on PATH")
}

// runBuild invokes `python -m build` with the given extra arguments and
// environment and maps a non-zero exit to *BuildError.
func runBuild(ctx context.Context, opts Options, projectDir string, extraArgs []string, env map[string]string) error {
	spec := subproc.Spec{
		Name: opts.Python,
		Args: append([]string{"-m", "build"}, extraArgs...),
		Dir:  projectDir,
		Env:  env,
	}

	opts.Logger.Info("running build", "command", subproc.CommandLine(spec))

	result, err := opts.Runner.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to invoke build frontend: %w", err)
	}
	if result.ExitCode != 0 {
		return &BuildError{ExitCode: result.ExitCode, Stdout: result.Stdout, Stderr: result.Stderr}
	}
	return nil
}
