// SPDX-License-Identifier: MPL-2.0

// Package subproc runs external tools with captured output. All pipeline
// stages that shell out (build frontend, twine, git) go through the Runner
// interface so tests can substitute a fake.
package subproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Spec describes a single external tool invocation.
type Spec struct {
	// Name is the executable to run (resolved via PATH when relative).
	Name string
	// Args are the arguments passed to the executable.
	Args []string
	// Dir is the working directory; empty means the caller's cwd.
	Dir string
	// Env is overlaid onto the current process environment.
	Env map[string]string
}

// Result carries the outcome of a finished invocation. A non-zero ExitCode
// is not an error at this layer; callers decide what it means.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a Spec and waits for completion.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// Run executes the spec, blocking until the process exits. The returned
// error is non-nil only when the process could not be started at all; a
// process that ran and exited non-zero yields a Result with that code.
func (ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)

	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	cmd.Env = MergeEnv(os.Environ(), spec.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", spec.Name, err)
	}

	return result, nil
}

// MergeEnv overlays the given variables onto a base environment, replacing
// existing entries with the same key. Overlay keys are applied in sorted
// order so the result is deterministic.
func MergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}

	merged := make([]string, 0, len(base)+len(overlay))
	for _, entry := range base {
		key, _, ok := strings.Cut(entry, "=")
		if ok {
			if _, replaced := overlay[key]; replaced {
				continue
			}
		}
		merged = append(merged, entry)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged = append(merged, k+"="+overlay[k])
	}

	return merged
}

// CommandLine renders a spec for log output.
func CommandLine(spec Spec) string {
	return strings.Join(append([]string{spec.Name}, spec.Args...), " ")
}
