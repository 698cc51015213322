// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pkgdeploy-cli/internal/buildtool"
	"pkgdeploy-cli/internal/manifest"
)

// cleanup restores the project tree to its pre-run state, except for the
// manifest's new version and name: build output directories, egg-info
// metadata, the generated Cython descriptor, and compiled C sources all
// go. Deletion errors are ignored; cleanup is best effort.
func (c *Coordinator) cleanup() {
	logger := c.run.Logger
	logger.Info("cleaning up build artifacts")

	project := c.cfg.ProjectDir

	for _, dir := range []string{"dist", "build"} {
		os.RemoveAll(filepath.Join(project, dir))
	}

	// Both the hyphenated and underscore forms of the egg-info directory
	// can exist depending on the setuptools version.
	for _, name := range c.eggInfoNames() {
		os.RemoveAll(filepath.Join(project, "src", name+".egg-info"))
	}

	if c.cfg.Variant == buildtool.VariantCython {
		if !c.hadSetupPy {
			os.Remove(filepath.Join(project, "setup.py"))
		}
		c.removeCompiledSources()
	}
}

// eggInfoNames collects the candidate egg-info base names for the current
// and configured package names.
func (c *Coordinator) eggInfoNames() []string {
	seen := make(map[string]struct{})
	var names []string

	for _, name := range []string{c.cfg.PackageName, c.doc.Name()} {
		if name == "" {
			continue
		}
		for _, form := range []string{name, manifest.NormalizeName(name)} {
			if _, dup := seen[form]; !dup {
				seen[form] = struct{}{}
				names = append(names, form)
			}
		}
	}
	return names
}

// removeCompiledSources deletes the *.c files Cython generated next to the
// package sources.
func (c *Coordinator) removeCompiledSources() {
	root := filepath.Join(c.cfg.ProjectDir, "src", manifest.NormalizeName(c.displayName()))

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".c") {
			os.Remove(path)
		}
		return nil
	})
}
