// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pkgdeploy.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pkgdeploy-cli/internal/config"
	"pkgdeploy-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging
	verbose bool
	// projectDir is the project root; defaults to the current directory
	projectDir string

	// toolConfig holds the loaded tool-level defaults
	toolConfig *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pkgdeploy",
		Short: "Release packaging and publishing for Python projects",
		Long: TitleStyle.Render("pkgdeploy") + SubtitleStyle.Render(" - release packaging and publishing") + `

pkgdeploy automates the release flow for pyproject.toml based projects:
it bumps the semantic version, builds a wheel (optionally as Cython
compiled extensions), uploads it with twine to a package repository,
and pushes the git tags.

` + SubtitleStyle.Render("Examples:") + `
  pkgdeploy deploy -t patch --repository-name internal
  pkgdeploy deploy -t minor --cython --repository-url https://nexus.example.com/repository/pypi-internal/
  pkgdeploy deploy -t patch --dry-run
  pkgdeploy bump rc
  pkgdeploy version`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", ".", "project directory")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(bumpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig loads the tool-level config file defaults.
func initRootConfig() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	toolConfig = cfg

	if !verbose {
		verbose = cfg.Verbose
	}
}

// newLogger builds the per-run logger carried through the pipeline.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "pkgdeploy",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
