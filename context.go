// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package npm holds the project-facing layer of the installer: the
// execution context commands run under and the configuration that is
// threaded, explicitly, through the install pipeline.
package npm

import (
	"log"
	"path/filepath"

	"github.com/mikeaddison93/npm/installer"
	"github.com/mikeaddison93/npm/internal/logging"
	"github.com/mikeaddison93/npm/lifecycle"
	"github.com/mikeaddison93/npm/registry"
)

// Ctx defines the supporting context of a command run.
type Ctx struct {
	WorkingDir     string
	Out, Err       *log.Logger // Required loggers.
	Verbose        bool        // Enables more detailed logging.
	DisableLocking bool        // When true, no lock file will be created to protect the install location.
	Cachedir       string      // Cache and log directory loaded from environment.
}

// SetPaths sets the working directory, resolving it to an absolute path.
func (c *Ctx) SetPaths(wd string) error {
	abs, err := filepath.Abs(wd)
	if err != nil {
		return err
	}
	c.WorkingDir = abs
	return nil
}

// NewInstallDriver wires the default collaborators — registry fetcher,
// tarball extractor and shell script runner — into an install driver
// configured by cfg.
func (c *Ctx) NewInstallDriver(cfg Config) *installer.Driver {
	debug := logging.Debug()
	return &installer.Driver{
		Fetcher:   registry.NewClient(cfg.Registry, debug),
		Extractor: registry.Extractor{},
		Runner:    &lifecycle.Runner{Out: c.Out, Debug: debug},
		Opts: installer.Options{
			Global:         cfg.Global,
			Dev:            cfg.Dev,
			Production:     cfg.Production,
			Unicode:        cfg.Unicode,
			Npat:           cfg.Npat,
			Concurrency:    cfg.Concurrency,
			DisableLocking: c.DisableLocking,
		},
		Out:   c.Out,
		Debug: debug,
	}
}
