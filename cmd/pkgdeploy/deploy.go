// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/creds"
	"pkgdeploy-cli/internal/issue"
	"pkgdeploy-cli/internal/pipeline"
	"pkgdeploy-cli/internal/pypirc"
	"pkgdeploy-cli/internal/semver"
)

var (
	deployPackageName string
	deployBump        string
	deployCython      bool
	deployRepoName    string
	deployRepoURL     string
	deployUsername    string
	deployPassword    string
	deployInteractive bool
	deployDryRun      bool

	// deployCmd runs the full release pipeline.
	deployCmd = &cobra.Command{
		Use:   "deploy",
		Short: "Bump, build, upload and tag a release",
		Long: `Run the release pipeline for the project in the current directory
(or --project-dir): bump the version in pyproject.toml, build a wheel,
upload it with twine, and push the git tags. Cleanup of build artifacts
runs regardless of the outcome.

The upload target is resolved from --repository-url, or from the named
~/.pypirc section given with --repository-name. Credentials come from
flags, the TWINE_USERNAME/TWINE_PASSWORD environment variables, the
.pypirc entry, or an interactive prompt, in that order.

With --dry-run no upload or tag push happens; the built artifacts are
validated locally with 'twine check' instead.`,
		Args: cobra.NoArgs,
		RunE: runDeploy,
	}
)

func init() {
	deployCmd.Flags().StringVarP(&deployPackageName, "package-name", "n", "", "rename the package before releasing")
	deployCmd.Flags().StringVarP(&deployBump, "bump", "t", "patch", "version bump kind (patch, minor, major, alpha, beta, rc)")
	deployCmd.Flags().BoolVarP(&deployCython, "cython", "c", false, "build compiled extensions with Cython")
	deployCmd.Flags().StringVar(&deployRepoName, "repository-name", "", "repository section name in ~/.pypirc")
	deployCmd.Flags().StringVar(&deployRepoURL, "repository-url", "", "repository upload URL")
	deployCmd.Flags().StringVarP(&deployUsername, "username", "u", "", "repository username")
	deployCmd.Flags().StringVarP(&deployPassword, "password", "p", "", "repository password or token")
	deployCmd.Flags().BoolVarP(&deployInteractive, "interactive", "i", false, "always prompt for credentials")
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "build and check locally, skip upload and tag push")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	logger := newLogger()

	bump, err := semver.ParseBumpKind(deployBump)
	if err != nil {
		return deployFailure(err)
	}

	cfg, err := assembleReleaseConfig(bump)
	if err != nil {
		return deployFailure(err)
	}

	runCtx := &pipeline.RunContext{
		Logger:  logger,
		DryRun:  deployDryRun,
		Verbose: verbose,
	}

	coord, err := pipeline.New(cfg, runCtx, pipeline.Dependencies{})
	if err != nil {
		return deployFailure(err)
	}

	if err := coord.Preflight(cmd.Context()); err != nil {
		return deployFailure(err)
	}

	if err := coord.Run(cmd.Context()); err != nil {
		return deployFailure(err)
	}

	name := cfg.PackageName
	if name == "" {
		name = coord.Manifest().Name()
	}
	if deployDryRun {
		fmt.Printf("%s Dry run for %s completed\n", SuccessStyle.Render("✓"), name)
	} else {
		fmt.Printf("%s Released %s %s\n", SuccessStyle.Render("✓"), name, coord.Manifest().Version())
	}
	return nil
}

// assembleReleaseConfig merges flags, the tool config file, and ~/.pypirc
// into the immutable per-run configuration. Flags win over the config
// file; a .pypirc entry fills in whatever is still missing.
func assembleReleaseConfig(bump semver.BumpKind) (pipeline.ReleaseConfig, error) {
	repoName := deployRepoName
	if repoName == "" {
		repoName = toolConfig.Repository.Name
	}
	repoURL := deployRepoURL
	if repoURL == "" {
		repoURL = toolConfig.Repository.URL
	}
	username := deployUsername
	if username == "" {
		username = toolConfig.Repository.Username
	}
	password := deployPassword

	if repoName != "" && (repoURL == "" || username == "" || password == "") {
		repo, err := resolveNamedRepository(repoName)
		if err != nil {
			return pipeline.ReleaseConfig{}, err
		}
		if repoURL == "" {
			repoURL = repo.URL
		}
		if username == "" {
			username = repo.Username
		}
		if password == "" {
			password = repo.Password
		}
	}

	if repoURL == "" && !deployDryRun {
		return pipeline.ReleaseConfig{}, issue.NewErrorContext().
			WithOperation("resolve upload target").
			WithSuggestion("Pass --repository-url, or --repository-name matching a ~/.pypirc section").
			WithSuggestion("Use --dry-run to build and check without uploading").
			Wrap(errors.New("no repository URL configured")).
			BuildError()
	}

	resolver := &creds.Resolver{
		Prompter: &creds.TerminalPrompter{In: os.Stdin, Out: os.Stderr},
		Logger:   newLogger(),
	}
	resolved, err := resolver.Resolve(creds.Request{
		Username:       username,
		Password:       password,
		RepositoryName: repoName,
		RepositoryURL:  repoURL,
		Interactive:    deployInteractive,
		DryRun:         deployDryRun,
	})
	if err != nil {
		return pipeline.ReleaseConfig{}, err
	}

	variant := buildtool.VariantStandard
	if deployCython {
		variant = buildtool.VariantCython
	}

	return pipeline.ReleaseConfig{
		PackageName:    deployPackageName,
		ProjectDir:     projectDir,
		ManifestPath:   filepath.Join(projectDir, "pyproject.toml"),
		Bump:           bump,
		Variant:        variant,
		RepositoryName: repoName,
		RepositoryURL:  repoURL,
		Username:       resolved.Username,
		Password:       resolved.Password,
		DryRun:         deployDryRun,
	}, nil
}

// resolveNamedRepository looks a repository section up in ~/.pypirc.
func resolveNamedRepository(name string) (pypirc.Repository, error) {
	path, err := pypirc.DefaultPath()
	if err != nil {
		return pypirc.Repository{}, err
	}

	file, err := pypirc.Load(path)
	if err != nil {
		if errors.Is(err, pypirc.ErrPypircNotFound) {
			return pypirc.Repository{}, issue.NewErrorContext().
				WithOperation("resolve repository " + name).
				WithResource(path).
				WithSuggestion("Create ~/.pypirc with a [" + name + "] section, or pass --repository-url instead").
				Wrap(err).
				BuildError()
		}
		return pypirc.Repository{}, err
	}

	repo, err := file.Lookup(name)
	if err != nil {
		return pypirc.Repository{}, issue.NewErrorContext().
			WithOperation("resolve repository " + name).
			WithResource(path).
			WithSuggestion("Add a [" + name + "] section to ~/.pypirc, or pass --repository-url instead").
			Wrap(err).
			BuildError()
	}
	return repo, nil
}

// deployFailure renders the error for the user and converts it into a
// non-zero exit without cobra re-printing it.
func deployFailure(err error) error {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: 1}
}
