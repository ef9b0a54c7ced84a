// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"log"
)

// Fetcher is the external collaborator that talks to the registry. The
// returned record carries the normalized requested descriptor along with
// the distribution reference FetchTarball consumes.
type Fetcher interface {
	// FetchMetadata resolves spec into a concrete package record. dir is
	// the directory local specs are resolved relative to.
	FetchMetadata(ctx context.Context, spec Spec, dir string, lg *log.Logger) (*Package, error)

	// FetchTarball materializes the package's distribution at dest.
	FetchTarball(ctx context.Context, pkg *Package, dest string) error
}

// Extractor unpacks a fetched tarball into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, tarball, dest string) error
}

// ScriptRunner executes one lifecycle script of a package in place.
// Running a phase the package declares no script for is a no-op.
type ScriptRunner interface {
	RunLifecycle(ctx context.Context, phase string, pkg *Package, realpath string) error
}
