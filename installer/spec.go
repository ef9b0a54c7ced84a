// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// SpecType classifies how a package was requested.
type SpecType string

const (
	TypeVersion SpecType = "version"
	TypeRange   SpecType = "range"
	TypeTag     SpecType = "tag"
	TypeLocal   SpecType = "local"
	TypeRemote  SpecType = "remote"
	TypeGit     SpecType = "git"
	TypeHosted  SpecType = "hosted"
)

// Requested describes the descriptor a package was requested by. Spec is
// the current effective constraint; Constraints accumulates every spec
// that was merged into it when a single placement came to satisfy more
// than one requirement.
type Requested struct {
	Raw         string
	Spec        string
	Type        SpecType
	Constraints []string
}

// Spec is a parsed user-supplied or dependency-declared identifier.
type Spec struct {
	Raw  string
	Name string
	// Fetch is the constraint portion handed to the fetcher: a range,
	// tag, path, URL or hosted shorthand depending on Type.
	Fetch string
	Type  SpecType
}

// Requested converts s into the requested descriptor recorded on a
// resolved package.
func (s Spec) Requested() Requested {
	return Requested{Raw: s.Raw, Spec: s.Fetch, Type: s.Type}
}

// ParseSpec classifies a raw spec string into one of the recognized
// variants: name@range, name@version, name@tag, local folder or tarball
// path, tarball URL, git URL, or owner/repo hosted shorthand.
func ParseSpec(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{}, &ResolveError{Spec: raw, Err: errors.New("empty package spec")}
	}

	if strings.Contains(raw, "://") {
		if strings.HasPrefix(raw, "git+") || strings.HasPrefix(raw, "git://") || strings.HasSuffix(raw, ".git") {
			return Spec{Raw: raw, Fetch: raw, Type: TypeGit}, nil
		}
		return Spec{Raw: raw, Fetch: raw, Type: TypeRemote}, nil
	}

	if isLocalPath(raw) {
		return Spec{Raw: raw, Fetch: raw, Type: TypeLocal}, nil
	}

	name, constraint := splitNameConstraint(raw)
	if name == "" {
		return Spec{}, &ResolveError{Spec: raw, Err: errors.New("spec has no package name")}
	}

	// owner/repo shorthand; scoped names (@scope/pkg) are registry names.
	if strings.Contains(name, "/") {
		scoped := strings.HasPrefix(name, "@") && strings.Count(name, "/") == 1
		if !scoped {
			if strings.Count(name, "/") == 1 {
				return Spec{Raw: raw, Name: name, Fetch: constraint, Type: TypeHosted}, nil
			}
			return Spec{}, &ResolveError{Spec: raw, Err: errors.New("invalid package name")}
		}
	}

	if constraint == "" {
		return Spec{Raw: raw, Name: name, Fetch: "latest", Type: TypeTag}, nil
	}
	if _, err := semver.StrictNewVersion(strings.TrimPrefix(constraint, "=")); err == nil {
		return Spec{Raw: raw, Name: name, Fetch: constraint, Type: TypeVersion}, nil
	}
	if _, err := semver.NewConstraint(constraint); err == nil {
		return Spec{Raw: raw, Name: name, Fetch: constraint, Type: TypeRange}, nil
	}
	if isValidTag(constraint) {
		return Spec{Raw: raw, Name: name, Fetch: constraint, Type: TypeTag}, nil
	}
	return Spec{}, &ResolveError{Spec: raw, Err: errors.Errorf("unparseable constraint %q", constraint)}
}

func isLocalPath(raw string) bool {
	if strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") ||
		strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "~/") {
		return true
	}
	return strings.HasSuffix(raw, ".tgz") || strings.HasSuffix(raw, ".tar.gz") || strings.HasSuffix(raw, ".tar")
}

// splitNameConstraint splits name@constraint on the last @, preserving
// the leading @ of scoped names.
func splitNameConstraint(raw string) (name, constraint string) {
	at := strings.LastIndex(raw, "@")
	if at <= 0 {
		return raw, ""
	}
	return raw[:at], raw[at+1:]
}

func isValidTag(tag string) bool {
	if tag == "" {
		return false
	}
	return !strings.ContainsAny(tag, " \t@")
}

// satisfies reports whether a concrete version meets the requested
// descriptor. Non-range descriptors only match the exact version they
// resolved to.
func satisfies(req Requested, version string) bool {
	switch req.Type {
	case TypeVersion, TypeRange:
		return rangeSatisfied(req.Spec, version)
	default:
		return req.Spec == version
	}
}

// rangeSatisfied checks version against rng. An empty range, "*" and
// "latest" match any version; any other non-semver range or version is
// compared as an exact string match.
func rangeSatisfied(rng, version string) bool {
	if rng == "" || rng == "*" || rng == "latest" {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return rng == version
	}
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return rng == version
	}
	return c.Check(v)
}
