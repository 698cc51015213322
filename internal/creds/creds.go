// SPDX-License-Identifier: MPL-2.0

// Package creds resolves repository credentials by precedence: explicit
// flags, then TWINE_USERNAME/TWINE_PASSWORD environment variables, then
// values from ~/.pypirc (supplied by the caller), and finally an
// interactive prompt with a bounded number of attempts.
package creds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// ErrMissingCredentials reports that no usable password or token could be
// resolved from any source.
var ErrMissingCredentials = errors.New("missing credentials")

// defaultMaxAttempts bounds the interactive prompt loop.
const defaultMaxAttempts = 3

// Credentials is a resolved username/password (or token) pair.
type Credentials struct {
	Username string
	Password string
}

// Request carries the inputs for a resolution. Username and Password hold
// whatever the CLI layer already has (explicit flags or a .pypirc entry).
type Request struct {
	Username       string
	Password       string
	RepositoryName string
	RepositoryURL  string
	// Interactive forces the prompt even when other sources resolved.
	Interactive bool
	// DryRun skips prompting entirely: a local check needs no credentials.
	DryRun bool
}

// Prompter reads interactive input. Tests substitute a scripted fake.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
}

// TerminalPrompter reads from a terminal, with no-echo password input.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// ReadLine prints the prompt and reads one line.
func (p *TerminalPrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret prints the prompt and reads a line without echoing it.
func (p *TerminalPrompter) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	secret, err := term.ReadPassword(int(p.In.Fd()))
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// Resolver resolves credentials for an upload.
type Resolver struct {
	Prompter Prompter
	Logger   *log.Logger
	// MaxAttempts bounds the prompt loop; zero means the default of 3.
	MaxAttempts int
}

// Resolve applies the precedence chain and returns the credentials to use.
// Dry-run requests resolve to whatever is already known without prompting.
func (r *Resolver) Resolve(req Request) (Credentials, error) {
	creds := Credentials{Username: req.Username, Password: req.Password}

	if creds.Username == "" {
		creds.Username = os.Getenv("TWINE_USERNAME")
	}
	if creds.Password == "" {
		creds.Password = os.Getenv("TWINE_PASSWORD")
	}

	needPrompt := req.Interactive || (creds.Username == "" && creds.Password == "")
	if req.DryRun || !needPrompt {
		return creds, nil
	}

	return r.prompt(req, creds)
}

// prompt runs the bounded interactive loop. An empty password counts as a
// failed attempt; exhausting the attempts yields ErrMissingCredentials.
func (r *Resolver) prompt(req Request, creds Credentials) (Credentials, error) {
	isPyPI := strings.Contains(strings.ToLower(req.RepositoryName), "pypi") ||
		strings.Contains(strings.ToLower(req.RepositoryURL), "pypi.org")

	r.Logger.Info("repository authentication required")
	if isPyPI {
		r.Logger.Info("detected PyPI repository, API tokens are recommended", "username", "__token__")
	} else if req.RepositoryURL != "" {
		r.Logger.Info("authenticating", "repository", req.RepositoryURL)
	}

	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		defaultUser := "admin"
		if isPyPI {
			defaultUser = "__token__"
		}

		username, err := r.Prompter.ReadLine(fmt.Sprintf("Username (default: %s): ", defaultUser))
		if err != nil {
			return Credentials{}, err
		}
		if username == "" {
			username = defaultUser
		}

		secretPrompt := "Password: "
		if username == "__token__" {
			secretPrompt = "API Token (pypi-...): "
		}
		password, err := r.Prompter.ReadSecret(secretPrompt)
		if err != nil {
			return Credentials{}, err
		}

		if password != "" {
			return Credentials{Username: username, Password: password}, nil
		}
		r.Logger.Warn("password/token cannot be empty", "attempt", attempt, "max", attempts)
	}

	return Credentials{}, fmt.Errorf("%w: no password provided after %d attempts", ErrMissingCredentials, attempts)
}
