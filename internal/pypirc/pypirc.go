// SPDX-License-Identifier: MPL-2.0

// Package pypirc reads the user-level repository credentials file
// (~/.pypirc). The file is INI formatted: an optional [distutils] section
// with an index-servers list, and one section per repository carrying
// repository/username/password keys.
package pypirc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

var (
	// ErrPypircNotFound reports a missing credentials file.
	ErrPypircNotFound = errors.New(".pypirc not found")

	// ErrRepositoryNameUnresolved reports a repository name with no matching
	// section in the credentials file.
	ErrRepositoryNameUnresolved = errors.New("repository name not found in .pypirc")
)

// Repository is one configured upload target.
type Repository struct {
	Name     string
	URL      string
	Username string
	Password string
}

// File is the parsed credentials file.
type File struct {
	IndexServers []string
	Repositories map[string]Repository
}

// DefaultPath returns ~/.pypirc.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".pypirc"), nil
}

// Load parses the credentials file at path.
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPypircNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	f := &File{Repositories: make(map[string]Repository)}

	if sec := cfg.Section("distutils"); sec.HasKey("index-servers") {
		f.IndexServers = strings.Fields(sec.Key("index-servers").String())
	}

	for _, sec := range cfg.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection || name == "distutils" {
			continue
		}
		f.Repositories[name] = Repository{
			Name:     name,
			URL:      sec.Key("repository").String(),
			Username: sec.Key("username").String(),
			Password: sec.Key("password").String(),
		}
	}

	return f, nil
}

// Lookup resolves a named repository.
func (f *File) Lookup(name string) (Repository, error) {
	repo, ok := f.Repositories[name]
	if !ok {
		return Repository{}, fmt.Errorf("%w: %q", ErrRepositoryNameUnresolved, name)
	}
	return repo, nil
}
