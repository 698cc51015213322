// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and rewrites the project's pyproject.toml.
//
// Reads go through go-toml into a typed view. Writes are surgical edits on
// the raw bytes: only the targeted key changes, so comments and formatting
// of everything else survive a rewrite. Every mutation re-parses the result
// to guarantee the document is still valid TOML, and Save writes a temp
// file and renames it over the original so a crash never leaves a
// half-written manifest behind.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrManifestNotFound reports a missing pyproject.toml.
var ErrManifestNotFound = errors.New("manifest not found")

// ErrKeyNotFound reports a key the document is expected to carry.
var ErrKeyNotFound = errors.New("manifest key not found")

// tableHeaderPattern matches a bare table header line like "[project]" or
// "[build-system]", with an optional trailing comment. Quoted or dotted
// content inside value arrays never matches it.
var tableHeaderPattern = regexp.MustCompile(`^\[([A-Za-z0-9_.\-]+)\]\s*(?:#.*)?$`)

type (
	// Document is an in-memory pyproject.toml with its raw bytes and a
	// parsed view of the keys the pipeline cares about.
	Document struct {
		path string
		raw  []byte
		data documentData
	}

	documentData struct {
		Project     projectTable     `toml:"project"`
		BuildSystem buildSystemTable `toml:"build-system"`
	}

	projectTable struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	}

	buildSystemTable struct {
		Requires     []string `toml:"requires"`
		BuildBackend string   `toml:"build-backend"`
	}
)

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseBytes(raw, path)
}

// ParseBytes parses raw manifest content. The path is retained for Save.
func ParseBytes(raw []byte, path string) (*Document, error) {
	d := &Document{path: path, raw: raw}
	if err := d.reparse(); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the on-disk location of the manifest.
func (d *Document) Path() string { return d.path }

// Name returns project.name.
func (d *Document) Name() string { return d.data.Project.Name }

// Version returns project.version.
func (d *Document) Version() string { return d.data.Project.Version }

// Requires returns build-system.requires.
func (d *Document) Requires() []string { return d.data.BuildSystem.Requires }

// BuildBackend returns build-system.build-backend.
func (d *Document) BuildBackend() string { return d.data.BuildSystem.BuildBackend }

// Bytes returns the current document content.
func (d *Document) Bytes() []byte { return d.raw }

// SetVersion rewrites project.version in place.
func (d *Document) SetVersion(version string) error {
	return d.setString("project", "version", version)
}

// SetName rewrites project.name in place.
func (d *Document) SetName(name string) error {
	return d.setString("project", "name", name)
}

// EnsureRequirements appends each dependency to build-system.requires
// unless an existing entry already starts with its name (so pinned forms
// like "setuptools>=45" are left alone). Reports whether the document
// changed.
func (d *Document) EnsureRequirements(deps ...string) (bool, error) {
	var missing []string
	for _, dep := range deps {
		found := false
		for _, req := range d.data.BuildSystem.Requires {
			if strings.HasPrefix(req, dep) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, dep)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	if err := d.appendRequirements(missing); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureBuildBackend declares build-system.build-backend when absent.
// Reports whether the document changed.
func (d *Document) EnsureBuildBackend(backend string) (bool, error) {
	if d.data.BuildSystem.BuildBackend != "" {
		return false, nil
	}
	if err := d.setString("build-system", "build-backend", backend); err != nil {
		return false, err
	}
	return true, nil
}

// Save atomically writes the document back to its path: the content goes to
// a temp file in the same directory which is then renamed over the original.
func (d *Document) Save() error {
	dir := filepath.Dir(d.path)

	tmp, err := os.CreateTemp(dir, ".pyproject-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(d.raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}

	// Keep the original file mode when the manifest already exists.
	if info, err := os.Stat(d.path); err == nil {
		if err := os.Chmod(tmpPath, info.Mode()); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set manifest mode: %w", err)
		}
	}

	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// NormalizeName converts a distribution name to the filename form used in
// wheel names and egg-info directories (hyphens become underscores).
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// reparse refreshes the typed view from the raw bytes.
func (d *Document) reparse() error {
	var data documentData
	if err := toml.Unmarshal(d.raw, &data); err != nil {
		return fmt.Errorf("failed to parse manifest %s: %w", d.path, err)
	}
	d.data = data
	return nil
}

// lines splits the raw content for editing. The final element may be empty
// when the file ends with a newline; Join restores it untouched.
func (d *Document) lines() []string {
	return strings.Split(string(d.raw), "\n")
}

func (d *Document) setLines(lines []string) error {
	d.raw = []byte(strings.Join(lines, "\n"))
	return d.reparse()
}

// tableRange locates the body of a table: the half-open line range after
// its header up to the next table header or EOF. ok is false when the
// table does not exist.
func tableRange(lines []string, table string) (start, end int, ok bool) {
	start = -1
	for i, line := range lines {
		m := tableHeaderPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if start >= 0 {
			return start, i, true
		}
		if m[1] == table {
			start = i + 1
		}
	}
	if start >= 0 {
		return start, len(lines), true
	}
	return 0, 0, false
}

// keyLinePattern matches an assignment of the given bare key, capturing the
// prefix through the equals sign, the quoted value, and any trailer.
func keyLinePattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`^(\s*` + regexp.QuoteMeta(key) + `\s*=\s*)("[^"]*"|'[^']*')(.*)$`)
}

// setString replaces a string value within a table, creating the key (and
// the table) when absent.
func (d *Document) setString(table, key, value string) error {
	lines := d.lines()
	quoted := `"` + value + `"`

	start, end, ok := tableRange(lines, table)
	if !ok {
		// Append the table with its single key at the end of the file.
		out := trimTrailingEmpty(lines)
		out = append(out, "", "["+table+"]", key+" = "+quoted, "")
		return d.setLines(out)
	}

	pattern := keyLinePattern(key)
	for i := start; i < end; i++ {
		if m := pattern.FindStringSubmatch(lines[i]); m != nil {
			lines[i] = m[1] + quoted + m[3]
			return d.setLines(lines)
		}
	}

	// Key missing: insert at the end of the table body, before any blank
	// separator lines that lead into the next table.
	insert := end
	for insert > start && strings.TrimSpace(lines[insert-1]) == "" {
		insert--
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insert]...)
	out = append(out, key+" = "+quoted)
	out = append(out, lines[insert:]...)
	return d.setLines(out)
}

// appendRequirements adds entries to build-system.requires, creating the
// key or the whole table when absent.
func (d *Document) appendRequirements(deps []string) error {
	lines := d.lines()

	quoted := make([]string, len(deps))
	for i, dep := range deps {
		quoted[i] = `"` + dep + `"`
	}

	start, end, ok := tableRange(lines, "build-system")
	if !ok {
		out := trimTrailingEmpty(lines)
		out = append(out, "", "[build-system]", "requires = ["+strings.Join(quoted, ", ")+"]", "")
		return d.setLines(out)
	}

	keyIdx := -1
	keyStart := regexp.MustCompile(`^\s*requires\s*=\s*\[`)
	for i := start; i < end; i++ {
		if keyStart.MatchString(lines[i]) {
			keyIdx = i
			break
		}
	}

	if keyIdx < 0 {
		insert := end
		for insert > start && strings.TrimSpace(lines[insert-1]) == "" {
			insert--
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:insert]...)
		out = append(out, "requires = ["+strings.Join(quoted, ", ")+"]")
		out = append(out, lines[insert:]...)
		return d.setLines(out)
	}

	// Single-line array: splice the new entries before the closing bracket.
	if close := strings.LastIndex(lines[keyIdx], "]"); close >= 0 {
		head := strings.TrimRight(lines[keyIdx][:close], " \t")
		sep := ", "
		if strings.HasSuffix(head, "[") {
			sep = ""
		}
		lines[keyIdx] = head + sep + strings.Join(quoted, ", ") + lines[keyIdx][close:]
		return d.setLines(lines)
	}

	// Multi-line array: find the closing bracket line and insert new
	// entries before it, matching the indentation of the last entry.
	closeIdx := -1
	for i := keyIdx + 1; i < end; i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "]") {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return fmt.Errorf("%w: unterminated build-system.requires array", ErrKeyNotFound)
	}

	indent := "    "
	if closeIdx > keyIdx+1 {
		prev := lines[closeIdx-1]
		indent = prev[:len(prev)-len(strings.TrimLeft(prev, " \t"))]
		if !strings.HasSuffix(strings.TrimRight(strings.TrimSpace(prev), " \t"), ",") {
			lines[closeIdx-1] = strings.TrimRight(prev, " \t") + ","
		}
	}

	entries := make([]string, len(quoted))
	for i, q := range quoted {
		entries[i] = indent + q + ","
	}

	out := make([]string, 0, len(lines)+len(entries))
	out = append(out, lines[:closeIdx]...)
	out = append(out, entries...)
	out = append(out, lines[closeIdx:]...)
	return d.setLines(out)
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
