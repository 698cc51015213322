// SPDX-License-Identifier: MPL-2.0

package buildtool

import (
	"context"
)

// Standard builds a wheel with the plain build frontend. The manifest is
// never touched.
type Standard struct {
	opts Options
}

// Name returns the strategy name.
func (s *Standard) Name() string { return string(VariantStandard) }

// Build runs `python -m build --wheel` in the project directory.
func (s *Standard) Build(ctx context.Context, projectDir string) error {
	env := UVCompatEnv(s.opts.Logger)
	if err := runBuild(ctx, s.opts, projectDir, []string{"--wheel"}, env); err != nil {
		return err
	}
	s.opts.Logger.Info("standard build completed")
	return nil
}
