// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkgdeploy-cli/internal/manifest"
)

// versionCmd prints the project version from pyproject.toml. The tool's
// own version lives on the root --version flag.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the project version from pyproject.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true

		doc, err := manifest.Load(filepath.Join(projectDir, "pyproject.toml"))
		if err != nil {
			return deployFailure(err)
		}

		fmt.Println(doc.Version())
		return nil
	},
}
