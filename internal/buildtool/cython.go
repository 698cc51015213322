// SPDX-License-Identifier: MPL-2.0

package buildtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// cythonRequirements are the build-system dependencies the compiled-
// extension path needs in the manifest.
var cythonRequirements = []string{"setuptools", "wheel", "Cython"}

// setuptoolsBackend is declared when the manifest has no build backend.
const setuptoolsBackend = "setuptools.build_meta"

// cythonSetupPy is the generated build descriptor: it compiles every
// project source file except package initializers into native extensions.
const cythonSetupPy = `import glob

from setuptools import setup, find_packages
from Cython.Build import cythonize

py_files = [
    f for f in glob.glob("src/**/*.py", recursive=True)
    if not f.endswith("__init__.py")
]

setup(
    packages=find_packages(where="src"),
    package_dir={"": "src"},
    ext_modules=cythonize(
        py_files,
        compiler_directives={"language_level": "3"},
    ),
    zip_safe=False,
)
`

// Cython builds native-extension wheels. Before invoking the build
// frontend it injects the compiler toolchain into the manifest's
// build-system table and writes the setup.py descriptor, then signals
// extension compilation through the CYTHONIZE environment flag.
type Cython struct {
	opts Options
}

// Name returns the strategy name.
func (c *Cython) Name() string { return string(VariantCython) }

// Build prepares the project for extension compilation and runs the build.
func (c *Cython) Build(ctx context.Context, projectDir string) error {
	if err := c.prepareManifest(); err != nil {
		return err
	}
	if err := c.writeSetupDescriptor(projectDir); err != nil {
		return err
	}

	env := UVCompatEnv(c.opts.Logger)
	if env == nil {
		env = make(map[string]string, 1)
	}
	env["CYTHONIZE"] = "1"

	if err := runBuild(ctx, c.opts, projectDir, nil, env); err != nil {
		return err
	}
	c.opts.Logger.Info("cython build completed")
	return nil
}

// prepareManifest ensures the build-system table can drive a Cython build.
// The requirement append is idempotent: entries whose name already appears
// (pinned or not) are left alone.
func (c *Cython) prepareManifest() error {
	m := c.opts.Manifest

	reqChanged, err := m.EnsureRequirements(cythonRequirements...)
	if err != nil {
		return fmt.Errorf("failed to inject cython build requirements: %w", err)
	}
	backendChanged, err := m.EnsureBuildBackend(setuptoolsBackend)
	if err != nil {
		return fmt.Errorf("failed to declare build backend: %w", err)
	}

	if reqChanged || backendChanged {
		c.opts.Logger.Debug("updated build-system table for cython", "manifest", m.Path())
		if err := m.Save(); err != nil {
			return err
		}
	}
	return nil
}

// writeSetupDescriptor writes the generated setup.py into the project root.
func (c *Cython) writeSetupDescriptor(projectDir string) error {
	path := filepath.Join(projectDir, "setup.py")
	if err := os.WriteFile(path, []byte(cythonSetupPy), 0o644); err != nil {
		return fmt.Errorf("failed to write setup.py descriptor: %w", err)
	}
	c.opts.Logger.Debug("wrote cython build descriptor", "path", path)
	return nil
}
