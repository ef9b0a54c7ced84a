// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import "fmt"

// ResolveError means a spec could not be parsed, the registry could not
// be reached, or no version satisfies the constraint.
type ResolveError struct {
	Spec string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Spec, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ManifestMissingError means no package.json exists at a required
// location. At the project root this is downgraded to an empty manifest.
type ManifestMissingError struct {
	Dir string
}

func (e *ManifestMissingError) Error() string {
	return fmt.Sprintf("no package.json found in %s", e.Dir)
}

// ValidationError reports the first broken invariant found on an ideal
// tree. It is fatal before any on-disk mutation.
type ValidationError struct {
	Node    *Node
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid dependency tree at %s: %s", e.Node.DepChain(), e.Problem)
}

// LockError means the exclusive install lock could not be acquired.
type LockError struct {
	Path string
	Name string
	Err  error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("cannot acquire install lock for %s on %s: %v", e.Name, e.Path, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// FetchError wraps a failure from the metadata or tarball fetcher.
type FetchError struct {
	Name string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError wraps a failure from the tarball extractor.
type ExtractError struct {
	Name string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Name, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// LifecycleError means a lifecycle script exited non-zero.
type LifecycleError struct {
	Phase   string
	Package string
	Err     error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle script %q failed for %s: %v", e.Phase, e.Package, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }
