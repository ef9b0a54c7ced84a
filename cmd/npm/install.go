// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"

	npm "github.com/mikeaddison93/npm"
	"github.com/pkg/errors"
)

const installShortHelp = `Install packages into the project's dependency tree`
const installLongHelp = `
Install computes the ideal dependency tree for the project in the current
directory and applies the difference against what is already on disk.

With no arguments, the dependencies declared in package.json are
installed. When an npm-shrinkwrap.json lockfile is present, or the
manifest embeds one, the pinned graph it describes is honored instead of
resolving version ranges.

With arguments, only the named packages and their transitive requirements
are installed; nothing else in the tree is touched. Each argument is a
package spec: name, name@range, name@tag, or a local folder. Tarball,
git and owner/repo specs are recognized but not fetched by the default
registry client.

Lifecycle scripts declared by each installed package run in phase order:
preinstall and build against the staged copy, install and postinstall in
place. The root package's own hooks run after the tree settles.
`

func (cmd *installCommand) Name() string      { return "install" }
func (cmd *installCommand) Args() string      { return "[<spec>...]" }
func (cmd *installCommand) ShortHelp() string { return installShortHelp }
func (cmd *installCommand) LongHelp() string  { return installLongHelp }
func (cmd *installCommand) Hidden() bool      { return false }

func (cmd *installCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.global, "global", false, "install into the global location instead of the project")
	fs.BoolVar(&cmd.dev, "dev", false, "install the project's devDependencies even with -production")
	fs.BoolVar(&cmd.production, "production", false, "skip devDependencies and prepublish")
	fs.BoolVar(&cmd.unicode, "unicode", false, "allow unicode in progress output")
	fs.BoolVar(&cmd.npat, "npat", false, "run each installed package's test script")
	fs.StringVar(&cmd.registry, "registry", "", "registry base URL")
}

type installCommand struct {
	global     bool
	dev        bool
	production bool
	unicode    bool
	npat       bool
	registry   string
}

func (cmd *installCommand) Run(ctx *npm.Ctx, args []string) error {
	cfg, err := npm.LoadConfig(ctx.WorkingDir, os.Environ())
	if err != nil {
		return err
	}
	if cmd.global {
		cfg.Global = true
	}
	if cmd.dev {
		cfg.Dev = true
	}
	if cmd.production {
		cfg.Production = true
	}
	if cmd.unicode {
		cfg.Unicode = true
	}
	if cmd.npat {
		cfg.Npat = true
	}
	if cmd.registry != "" {
		cfg.Registry = cmd.registry
	}

	driver := ctx.NewInstallDriver(cfg)
	if err := driver.Install(context.Background(), ctx.WorkingDir, args); err != nil {
		return errors.Wrap(err, "install failed")
	}
	return nil
}
