// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkgdeploy-cli/internal/manifest"
	"pkgdeploy-cli/internal/semver"
)

// bumpCmd rewrites the project version in pyproject.toml without
// running the rest of the release pipeline.
var bumpCmd = &cobra.Command{
	Use:   "bump <kind>",
	Short: "Bump the project version in pyproject.toml",
	Long: `Bump the project version in pyproject.toml and save the file.

The kind is one of: patch, minor, major, alpha, beta, rc.
Only the version line changes; formatting and comments are preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: runBump,
}

func runBump(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	kind, err := semver.ParseBumpKind(args[0])
	if err != nil {
		return deployFailure(err)
	}

	doc, err := manifest.Load(filepath.Join(projectDir, "pyproject.toml"))
	if err != nil {
		return deployFailure(err)
	}

	current, err := semver.Parse(doc.Version())
	if err != nil {
		return deployFailure(err)
	}

	next, err := semver.Bump(current, kind)
	if err != nil {
		return deployFailure(err)
	}

	if err := doc.SetVersion(next.String()); err != nil {
		return deployFailure(err)
	}
	if err := doc.Save(); err != nil {
		return deployFailure(err)
	}

	fmt.Fprintf(os.Stdout, "%s %s: %s -> %s\n",
		SuccessStyle.Render("✓"), doc.Name(), current.String(), next.String())
	return nil
}
