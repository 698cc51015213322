// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/semver"
	"pkgdeploy-cli/internal/subproc"
	"pkgdeploy-cli/internal/uploader"
)

// events records the order of collaborator calls across fakes.
type events struct {
	log []string
}

func (e *events) add(name string) { e.log = append(e.log, name) }

type fakeRunner struct {
	events   *events
	exitCode int
	stderr   string
}

func (f *fakeRunner) Run(_ context.Context, spec subproc.Spec) (*subproc.Result, error) {
	f.events.add("run:" + subproc.CommandLine(spec))
	return &subproc.Result{ExitCode: f.exitCode, Stderr: f.stderr}, nil
}

type fakeUploader struct {
	events *events
	err    error
	req    uploader.Request
	called bool
}

func (f *fakeUploader) Upload(_ context.Context, req uploader.Request) error {
	f.events.add("upload")
	f.called = true
	f.req = req
	return f.err
}

type fakeGit struct {
	events *events
	err    error
	called bool
}

func (f *fakeGit) PushTags(context.Context) error {
	f.events.add("push-tags")
	f.called = true
	return f.err
}

// testProject creates a project directory with a manifest and pre-seeded
// dist/build output, returning the directory.
func testProject(t *testing.T, version string) string {
	t.Helper()
	dir := t.TempDir()

	content := `[project]
name = "my-package"
version = "` + version + `"
`
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	for _, sub := range []string{"dist", "build"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", sub, err)
		}
	}
	return dir
}

type fixture struct {
	dir      string
	events   *events
	runner   *fakeRunner
	uploader *fakeUploader
	git      *fakeGit
	coord    *Coordinator
}

func newFixture(t *testing.T, cfg ReleaseConfig) *fixture {
	t.Helper()

	ev := &events{}
	f := &fixture{
		dir:      cfg.ProjectDir,
		events:   ev,
		runner:   &fakeRunner{events: ev},
		uploader: &fakeUploader{events: ev},
		git:      &fakeGit{events: ev},
	}

	run := &RunContext{Logger: log.New(io.Discard), DryRun: cfg.DryRun}
	coord, err := New(cfg, run, Dependencies{
		Runner:   f.runner,
		Uploader: f.uploader,
		Git:      f.git,
		Python:   "python3",
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	f.coord = coord
	return f
}

func baseConfig(dir string) ReleaseConfig {
	return ReleaseConfig{
		ProjectDir:    dir,
		ManifestPath:  filepath.Join(dir, "pyproject.toml"),
		Bump:          semver.BumpPatch,
		Variant:       buildtool.VariantStandard,
		RepositoryURL: "https://nexus.example.com/repository/pypi-internal/",
		Username:      "admin",
		Password:      "secret",
	}
}

func manifestVersion(t *testing.T, dir string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "version = ") {
			return strings.Trim(strings.TrimPrefix(line, "version = "), `"`)
		}
	}
	t.Fatal("no version line in manifest")
	return ""
}

func TestRun_HappyPath(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.2.3")
	f := newFixture(t, baseConfig(dir))

	if err := f.coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if got := manifestVersion(t, dir); got != "1.2.4" {
		t.Errorf("manifest version = %q, want 1.2.4", got)
	}

	// Build runs before upload, upload before tag push.
	var buildIdx, uploadIdx, pushIdx int = -1, -1, -1
	for i, e := range f.events.log {
		switch {
		case strings.Contains(e, "-m build"):
			buildIdx = i
		case e == "upload":
			uploadIdx = i
		case e == "push-tags":
			pushIdx = i
		}
	}
	if buildIdx == -1 || uploadIdx == -1 || pushIdx == -1 {
		t.Fatalf("missing stages in %v", f.events.log)
	}
	if !(buildIdx < uploadIdx && uploadIdx < pushIdx) {
		t.Errorf("stage order wrong: %v", f.events.log)
	}

	// Upload request carries the resolved target and dist dir.
	if f.uploader.req.DistDir != filepath.Join(dir, "dist") {
		t.Errorf("DistDir = %q", f.uploader.req.DistDir)
	}
	if f.uploader.req.RepositoryURL == "" || f.uploader.req.Password != "secret" {
		t.Errorf("upload request missing target/credentials: %+v", f.uploader.req)
	}

	// Cleanup removed the output directories.
	for _, sub := range []string{"dist", "build"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); !os.IsNotExist(err) {
			t.Errorf("%s directory survived cleanup", sub)
		}
	}
}

func TestRun_BuildFailureShortCircuits(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.2.3")
	f := newFixture(t, baseConfig(dir))
	f.runner.exitCode = 1
	f.runner.stderr = "compilation error"

	err := f.coord.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded, want build error")
	}

	var buildErr *buildtool.BuildError
	if !errors.As(err, &buildErr) {
		t.Errorf("error chain missing *BuildError: %v", err)
	}

	// The bump happens before the build, so the version must already be
	// persisted even though the build failed.
	if got := manifestVersion(t, dir); got != "1.2.4" {
		t.Errorf("manifest version = %q, want 1.2.4 (bump precedes build)", got)
	}

	if f.uploader.called {
		t.Error("uploader called despite build failure")
	}
	if f.git.called {
		t.Error("tags pushed despite build failure")
	}

	// Cleanup still removed the partial output.
	for _, sub := range []string{"dist", "build"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); !os.IsNotExist(err) {
			t.Errorf("%s directory survived cleanup after failure", sub)
		}
	}
}

func TestRun_UploadFailureSkipsTagPush(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.2.3")
	f := newFixture(t, baseConfig(dir))
	f.uploader.err = &uploader.UploadError{ExitCode: 1, Stderr: "403"}

	if err := f.coord.Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded, want upload error")
	}

	if f.git.called {
		t.Error("tags pushed despite upload failure")
	}
}

func TestRun_TagPushFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.2.3")
	f := newFixture(t, baseConfig(dir))
	f.git.err = errors.New("merge conflict")

	if err := f.coord.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v, want nil (tag push failures are warnings)", err)
	}
	if !f.git.called {
		t.Error("tag push never attempted")
	}
}

func TestRun_DryRunSkipsTagPush(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.2.3")
	cfg := baseConfig(dir)
	cfg.DryRun = true
	f := newFixture(t, cfg)

	if err := f.coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if f.git.called {
		t.Error("tags pushed during dry run")
	}
	if !f.uploader.req.DryRun {
		t.Error("upload request not marked dry-run")
	}
}

func TestRun_RenamePersistsBeforeBump(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "0.3.0")
	cfg := baseConfig(dir)
	cfg.PackageName = "renamed-package"
	cfg.Bump = semver.BumpMinor
	f := newFixture(t, cfg)

	if err := f.coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if !strings.Contains(string(raw), `name = "renamed-package"`) {
		t.Errorf("manifest not renamed:\n%s", raw)
	}
	if got := manifestVersion(t, dir); got != "0.4.0" {
		t.Errorf("manifest version = %q, want 0.4.0", got)
	}
	if f.uploader.req.PackageName != "renamed-package" {
		t.Errorf("upload selection uses %q, want renamed-package", f.uploader.req.PackageName)
	}
}

func TestRun_InvalidManifestVersionFailsBeforeBuild(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "not-a-version")
	f := newFixture(t, baseConfig(dir))

	err := f.coord.Run(context.Background())
	if !errors.Is(err, semver.ErrInvalidVersionFormat) {
		t.Fatalf("Run() error = %v, want ErrInvalidVersionFormat", err)
	}

	for _, e := range f.events.log {
		if strings.Contains(e, "-m build") {
			t.Error("build invoked despite invalid version")
		}
	}
}

func TestRun_CythonCleanupRemovesGeneratedFiles(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.0.0")
	// Simulate generated compile output next to the package sources.
	pkgDir := filepath.Join(dir, "src", "my_package")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatalf("failed to create package dir: %v", err)
	}
	for _, name := range []string{"core.c", "util.c", "keepme.py"} {
		if err := os.WriteFile(filepath.Join(pkgDir, name), []byte("//"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	cfg := baseConfig(dir)
	cfg.Variant = buildtool.VariantCython
	f := newFixture(t, cfg)

	if err := f.coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	// The generated setup.py is gone (the project had none before).
	if _, err := os.Stat(filepath.Join(dir, "setup.py")); !os.IsNotExist(err) {
		t.Error("generated setup.py survived cleanup")
	}
	// Compiled sources removed, python sources kept.
	if _, err := os.Stat(filepath.Join(pkgDir, "core.c")); !os.IsNotExist(err) {
		t.Error("generated core.c survived cleanup")
	}
	if _, err := os.Stat(filepath.Join(pkgDir, "keepme.py")); err != nil {
		t.Error("keepme.py deleted by cleanup")
	}
}

func TestRun_PreexistingSetupPyKept(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.0.0")
	if err := os.WriteFile(filepath.Join(dir, "setup.py"), []byte("# mine"), 0o644); err != nil {
		t.Fatalf("failed to write setup.py: %v", err)
	}

	cfg := baseConfig(dir)
	cfg.Variant = buildtool.VariantCython
	f := newFixture(t, cfg)

	if err := f.coord.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "setup.py")); err != nil {
		t.Error("pre-existing setup.py deleted by cleanup")
	}
}

func TestPreflight_MissingTools(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.0.0")
	f := newFixture(t, baseConfig(dir))
	f.runner.exitCode = 1

	err := f.coord.Preflight(context.Background())
	if err == nil {
		t.Fatal("Preflight() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "missing required packages") {
		t.Errorf("Preflight() error = %q", err)
	}
}

func TestPreflight_AllToolsPresent(t *testing.T) {
	t.Parallel()

	dir := testProject(t, "1.0.0")
	f := newFixture(t, baseConfig(dir))

	if err := f.coord.Preflight(context.Background()); err != nil {
		t.Errorf("Preflight() unexpected error: %v", err)
	}
}
