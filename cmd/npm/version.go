// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"runtime"

	npm "github.com/mikeaddison93/npm"
)

// Version is overridden at build time via -ldflags.
var Version = "devel"

func (cmd *versionCommand) Name() string      { return "version" }
func (cmd *versionCommand) Args() string      { return "" }
func (cmd *versionCommand) ShortHelp() string { return "Show the npm version information" }
func (cmd *versionCommand) LongHelp() string  { return "Show the npm version information" }
func (cmd *versionCommand) Hidden() bool      { return false }

func (cmd *versionCommand) Register(fs *flag.FlagSet) {}

type versionCommand struct{}

func (cmd *versionCommand) Run(ctx *npm.Ctx, args []string) error {
	ctx.Out.Printf("npm:\n version     : %s\n build date  : unknown\n go version  : %s\n go compiler : %s\n platform    : %s/%s\n",
		Version, runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
	return nil
}
