// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initForce bool
	initName  string

	// initCmd creates a starter pyproject.toml
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a starter pyproject.toml in the project directory",
		Long: `Create a starter pyproject.toml in the project directory with the
fields the release pipeline needs: a project name, an initial version,
and a setuptools build backend.`,
		Args: cobra.NoArgs,
		RunE: runProjectInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing pyproject.toml")
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "project name (defaults to the directory name)")
}

func runProjectInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(projectDir, "pyproject.toml")

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("file '%s' already exists. Use --force to overwrite", path)
	}

	name := initName
	if name == "" {
		abs, err := filepath.Abs(projectDir)
		if err != nil {
			return fmt.Errorf("failed to resolve project directory: %w", err)
		}
		name = filepath.Base(abs)
	}

	if err := os.WriteFile(path, []byte(starterPyproject(name)), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	absPath, _ := filepath.Abs(path)
	fmt.Printf("%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Println("  1. Edit pyproject.toml to describe your package")
	fmt.Println("  2. Put your sources under src/" + name + "/")
	fmt.Println("  3. Run 'pkgdeploy deploy -t patch --dry-run' to try a release")

	return nil
}

// starterPyproject renders the generated manifest content.
func starterPyproject(name string) string {
	return fmt.Sprintf(`[build-system]
requires = ["setuptools>=61.0", "wheel"]
build-backend = "setuptools.build_meta"

[project]
name = %q
version = "0.1.0"
description = "Add your description here"
requires-python = ">=3.9"
dependencies = []

[tool.setuptools.packages.find]
where = ["src"]
`, name)
}
