// SPDX-License-Identifier: MPL-2.0

package buildtool

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// IsUVVenv reports whether the virtual environment rooted at prefix was
// created by uv, detected via the "uv = <version>" marker in pyvenv.cfg.
func IsUVVenv(prefix string) bool {
	if prefix == "" {
		return false
	}

	f, err := os.Open(filepath.Join(prefix, "pyvenv.cfg"))
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if strings.HasPrefix(line, "uv =") || strings.HasPrefix(line, "uv=") {
			return true
		}
	}
	return false
}

// UVCompatEnv returns the extra build environment needed when running
// inside a uv-managed virtualenv: uv omits pip, so the build frontend must
// be told to use the virtualenv's installer.
func UVCompatEnv(logger *log.Logger) map[string]string {
	if !IsUVVenv(os.Getenv("VIRTUAL_ENV")) {
		return nil
	}
	logger.Debug("detected uv-managed virtualenv, setting PIP_USE_VIRTUALENV=1")
	return map[string]string{"PIP_USE_VIRTUALENV": "1"}
}
