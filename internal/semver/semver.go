// SPDX-License-Identifier: MPL-2.0

// Package semver models the project version grammar used by Python-style
// manifests: MAJOR.MINOR.PATCH with an optional a/b/rc prerelease suffix
// (e.g. "1.2.3", "1.2.3a1", "1.2.3rc2"). It deliberately does not implement
// full SemVer precedence; the only operations are parsing, canonical
// rendering, and bump transitions.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// PreKind identifies the prerelease track of a version.
type PreKind string

// Prerelease tracks, ordered alpha → beta → rc → final.
const (
	PreNone  PreKind = ""
	PreAlpha PreKind = "a"
	PreBeta  PreKind = "b"
	PreRC    PreKind = "rc"
)

// BumpKind selects a version transition.
type BumpKind string

// Supported bump kinds.
const (
	BumpPatch BumpKind = "patch"
	BumpMinor BumpKind = "minor"
	BumpMajor BumpKind = "major"
	BumpAlpha BumpKind = "alpha"
	BumpBeta  BumpKind = "beta"
	BumpRC    BumpKind = "rc"
)

var (
	// ErrInvalidVersionFormat reports a version string outside the grammar.
	ErrInvalidVersionFormat = errors.New("invalid version format")

	// ErrInvalidBumpKind reports a bump kind outside the enumerated set.
	ErrInvalidBumpKind = errors.New("invalid bump kind")
)

// versionPattern accepts MAJOR.MINOR.PATCH with an optional prerelease tag.
// Only the tags a, b and rc are valid; trailing digits are optional.
var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:(a|b|rc)(\d*))?$`)

// Version is an immutable parsed version value.
type Version struct {
	Major int
	Minor int
	Patch int
	// Pre is the prerelease track, PreNone for a final release.
	Pre PreKind
	// PreNum is the prerelease iteration; meaningful only when Pre != PreNone.
	PreNum int
}

// Parse parses a version string into a Version. A prerelease tag without
// digits defaults to iteration 1 ("1.2.3a" parses as "1.2.3a1").
func Parse(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, s)
	}

	// The pattern guarantees digit-only groups, so Atoi cannot fail here.
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	v := Version{Major: major, Minor: minor, Patch: patch}

	if m[4] != "" {
		v.Pre = PreKind(m[4])
		v.PreNum = 1
		if m[5] != "" {
			n, _ := strconv.Atoi(m[5])
			v.PreNum = n
		}
	}

	return v, nil
}

// String renders the canonical form: "1.2.3" or "1.2.3a1".
func (v Version) String() string {
	if v.Pre == PreNone {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d%s%d", v.Major, v.Minor, v.Patch, v.Pre, v.PreNum)
}

// HasPre reports whether the version is on a prerelease track.
func (v Version) HasPre() bool {
	return v.Pre != PreNone
}

// Bump computes the next version for the given bump kind. It is a pure
// transition function; v is never mutated.
//
// Rules:
//   - patch on a prerelease drops the prerelease and keeps the patch number
//     (the current track is released as final); otherwise patch increments.
//   - minor/major advance their component, zero the lower ones, and clear
//     any prerelease.
//   - alpha/beta/rc re-enter or advance the prerelease track for the same
//     major.minor.patch: a repeated kind increments the iteration, a
//     different kind resets the iteration to 1.
func Bump(v Version, kind BumpKind) (Version, error) {
	next := v

	switch kind {
	case BumpPatch:
		if v.HasPre() {
			next.Pre = PreNone
			next.PreNum = 0
		} else {
			next.Patch++
		}
	case BumpMinor:
		next.Minor++
		next.Patch = 0
		next.Pre = PreNone
		next.PreNum = 0
	case BumpMajor:
		next.Major++
		next.Minor = 0
		next.Patch = 0
		next.Pre = PreNone
		next.PreNum = 0
	case BumpAlpha:
		if v.Pre == PreAlpha {
			next.PreNum++
		} else {
			next.Pre = PreAlpha
			next.PreNum = 1
		}
	case BumpBeta:
		if v.Pre == PreBeta {
			next.PreNum++
		} else {
			next.Pre = PreBeta
			next.PreNum = 1
		}
	case BumpRC:
		if v.Pre == PreRC {
			next.PreNum++
		} else {
			next.Pre = PreRC
			next.PreNum = 1
		}
	default:
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidBumpKind, kind)
	}

	return next, nil
}

// ParseBumpKind validates a user-supplied bump kind selector.
func ParseBumpKind(s string) (BumpKind, error) {
	switch BumpKind(s) {
	case BumpPatch, BumpMinor, BumpMajor, BumpAlpha, BumpBeta, BumpRC:
		return BumpKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected patch, minor, major, alpha, beta or rc)", ErrInvalidBumpKind, s)
	}
}
