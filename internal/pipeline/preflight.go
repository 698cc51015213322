// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/issue"
	"pkgdeploy-cli/internal/subproc"
)

// Preflight verifies the external tools the pipeline will invoke before
// any side effect happens: the build frontend, the upload client, and the
// Cython compiler when the compiled-extension variant is selected.
func (c *Coordinator) Preflight(ctx context.Context) error {
	checks := []struct {
		name string
		args []string
	}{
		{"build", []string{"-m", "build", "--version"}},
		{"twine", []string{"-m", "twine", "--version"}},
	}
	if c.cfg.Variant == buildtool.VariantCython {
		checks = append(checks, struct {
			name string
			args []string
		}{"Cython", []string{"-c", "import Cython"}})
	}

	var missing []string
	for _, check := range checks {
		result, err := c.deps.Runner.Run(ctx, subproc.Spec{Name: c.deps.Python, Args: check.args})
		if err != nil || result.ExitCode != 0 {
			missing = append(missing, check.name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return issue.NewErrorContext().
		WithOperation("verify required tools").
		WithSuggestion(fmt.Sprintf("Install them with: pip install %s", strings.Join(missing, " "))).
		Wrap(fmt.Errorf("missing required packages: %s", strings.Join(missing, ", "))).
		BuildError()
}
