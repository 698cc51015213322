// SPDX-License-Identifier: MPL-2.0

// Package gitops pushes the release tags after a successful publish. It
// shells out to the user's git so their remotes and credential helpers
// apply unchanged.
package gitops

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"pkgdeploy-cli/internal/subproc"
)

// Client runs git in a project directory.
type Client struct {
	Runner subproc.Runner
	Logger *log.Logger
	Dir    string
}

// PushTags synchronizes the remote and pushes tags: `git pull`, `git push
// --tags --force`, then `git push`. The first failing step aborts the
// sequence; the caller decides whether that is fatal (the pipeline treats
// it as a warning because the artifact is already published).
func (c *Client) PushTags(ctx context.Context) error {
	steps := [][]string{
		{"pull"},
		{"push", "--tags", "--force"},
		{"push"},
	}

	for _, args := range steps {
		spec := subproc.Spec{Name: "git", Args: args, Dir: c.Dir}
		c.Logger.Debug("running git", "command", subproc.CommandLine(spec))

		result, err := c.Runner.Run(ctx, spec)
		if err != nil {
			return fmt.Errorf("failed to invoke git %s: %w", strings.Join(args, " "), err)
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("git %s exited with status %d: %s",
				strings.Join(args, " "), result.ExitCode, strings.TrimSpace(result.Stderr))
		}
	}

	c.Logger.Info("pushed release tags")
	return nil
}
