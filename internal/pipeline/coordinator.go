// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"path/filepath"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/issue"
	"pkgdeploy-cli/internal/semver"
	"pkgdeploy-cli/internal/uploader"
)

// Run executes the full release pipeline. Build and upload failures
// short-circuit the remaining stages; cleanup always runs. A tag-push
// failure is logged as a warning and not escalated because the artifact
// is already published at that point.
func (c *Coordinator) Run(ctx context.Context) error {
	logger := c.run.Logger
	logger.Info("starting deployment", "package", c.displayName(), "dry_run", c.cfg.DryRun)

	defer c.cleanup()

	if err := c.renamePackage(); err != nil {
		return err
	}

	newVersion, err := c.bumpVersion()
	if err != nil {
		return err
	}
	logger.Info("version bumped", "version", newVersion.String())

	if err := c.build(ctx); err != nil {
		return err
	}

	if err := c.upload(ctx); err != nil {
		return err
	}

	if !c.cfg.DryRun {
		if err := c.deps.Git.PushTags(ctx); err != nil {
			// The package is already published; a failed push is the
			// user's to reconcile, not a pipeline failure.
			logger.Warn("failed to push release tags, merge and push manually", "error", err)
		}
	}

	logger.Info("deployment complete", "package", c.displayName(), "version", newVersion.String())
	return nil
}

// renamePackage persists a new package name before the version bump. It is
// skipped when no rename was requested or the manifest already carries the
// requested name.
func (c *Coordinator) renamePackage() error {
	if c.cfg.PackageName == "" || c.cfg.PackageName == c.doc.Name() {
		return nil
	}

	c.run.Logger.Info("renaming package", "from", c.doc.Name(), "to", c.cfg.PackageName)
	if err := c.doc.SetName(c.cfg.PackageName); err != nil {
		return issue.NewErrorContext().
			WithOperation("rename package").
			WithResource(c.doc.Path()).
			Wrap(err).
			BuildError()
	}
	return c.doc.Save()
}

// bumpVersion applies the configured transition to the manifest version
// and persists it.
func (c *Coordinator) bumpVersion() (semver.Version, error) {
	current, err := semver.Parse(c.doc.Version())
	if err != nil {
		return semver.Version{}, issue.NewErrorContext().
			WithOperation("parse current version").
			WithResource(c.doc.Path()).
			WithSuggestion("Fix project.version to match MAJOR.MINOR.PATCH with an optional a/b/rc suffix").
			Wrap(err).
			BuildError()
	}

	next, err := semver.Bump(current, c.cfg.Bump)
	if err != nil {
		return semver.Version{}, err
	}

	if err := c.doc.SetVersion(next.String()); err != nil {
		return semver.Version{}, err
	}
	if err := c.doc.Save(); err != nil {
		return semver.Version{}, err
	}

	c.run.Logger.Debug("version transition", "from", current.String(), "to", next.String())
	return next, nil
}

// build selects the configured strategy and runs it.
func (c *Coordinator) build(ctx context.Context) error {
	strategy, err := buildtool.Select(c.cfg.Variant, buildtool.Options{
		Runner:   c.deps.Runner,
		Logger:   c.run.Logger,
		Python:   c.deps.Python,
		Manifest: c.doc,
	})
	if err != nil {
		return err
	}

	c.run.Logger.Info("building distribution", "strategy", strategy.Name())
	if err := strategy.Build(ctx, c.cfg.ProjectDir); err != nil {
		return issue.NewErrorContext().
			WithOperation("build distribution").
			WithResource(c.cfg.ProjectDir).
			WithSuggestion("Run with --verbose to see the captured build output").
			Wrap(err).
			BuildError()
	}
	return nil
}

// upload publishes the built artifacts (or checks them on dry-run).
func (c *Coordinator) upload(ctx context.Context) error {
	req := uploader.Request{
		DistDir:       filepath.Join(c.cfg.ProjectDir, "dist"),
		RepositoryURL: c.cfg.RepositoryURL,
		Username:      c.cfg.Username,
		Password:      c.cfg.Password,
		PackageName:   c.cfg.PackageName,
		DryRun:        c.cfg.DryRun,
	}

	if err := c.deps.Uploader.Upload(ctx, req); err != nil {
		return issue.NewErrorContext().
			WithOperation("upload distribution").
			WithResource(req.DistDir).
			WithSuggestion("Verify the repository URL and credentials").
			Wrap(err).
			BuildError()
	}
	return nil
}

// displayName is the package name for log output.
func (c *Coordinator) displayName() string {
	if c.cfg.PackageName != "" {
		return c.cfg.PackageName
	}
	return c.doc.Name()
}
