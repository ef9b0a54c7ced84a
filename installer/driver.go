// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options is the explicit configuration threaded through the driver and
// its collaborators.
type Options struct {
	Global     bool
	Dev        bool
	Production bool
	Unicode    bool

	// Npat enables the test phase for every installed package.
	Npat bool

	Concurrency    int
	DisableLocking bool
}

// Driver composes the full install pipeline: lock, read the current
// tree, compute the ideal tree, validate, diff, decompose, schedule.
type Driver struct {
	Fetcher   Fetcher
	Extractor Extractor
	Runner    ScriptRunner

	Opts  Options
	Out   *log.Logger
	Debug logrus.FieldLogger
}

// Install installs into the default location: args into wd's
// node_modules, or the manifest's dependencies when args is empty. Any
// arg that resolves to the target directory itself is discarded so a
// project never installs into itself.
func (d *Driver) Install(ctx context.Context, wd string, args []string) error {
	if !d.Opts.Global {
		args = filterSelfArgs(wd, args)
	}
	return d.install(ctx, wd, args, true)
}

// InstallTo installs into an explicit location. This is the internal
// form the driver uses when recursing for a nested install; it skips
// the self-install filtering and top-level lifecycle hooks.
func (d *Driver) InstallTo(ctx context.Context, where string, args []string) error {
	return d.install(ctx, where, args, false)
}

func (d *Driver) install(ctx context.Context, where string, args []string, topLevel bool) (err error) {
	where, aerr := filepath.Abs(where)
	if aerr != nil {
		return errors.Wrap(aerr, "cannot resolve install location")
	}
	nodeModules := filepath.Join(where, "node_modules")

	if !d.Opts.DisableLocking {
		lock, lerr := Lock(ctx, nodeModules, ".staging")
		if lerr != nil {
			return lerr
		}
		defer func() {
			if uerr := lock.Unlock(); uerr != nil {
				if err == nil {
					err = uerr
				} else {
					d.debug().WithError(uerr).Warn("unlock failed after install error")
				}
			}
		}()
	}

	rootPkg, merr := ReadManifest(where)
	if merr != nil {
		var missing *ManifestMissingError
		if !errors.As(merr, &missing) {
			return merr
		}
		// an absent manifest is an empty manifest, at the root only
		rootPkg = &Package{}
	}

	current, err := readCurrentTree(where, rootPkg)
	if err != nil {
		return err
	}
	ideal := current.Clone()

	loader := NewLoader(NewResolver(d.Fetcher, d.Out), d.Out, d.debug())

	shrinkwrap := rootPkg.Shrinkwrap
	if len(shrinkwrap) == 0 {
		if shrinkwrap, err = ReadShrinkwrap(where); err != nil {
			return err
		}
	}
	if len(shrinkwrap) > 0 {
		if err := loader.Inflate(ctx, ideal, shrinkwrap); err != nil {
			return err
		}
	}

	switch {
	case len(args) > 0:
		// explicit targets: nothing beyond their transitive requirements
		// is touched
		if err := loader.LoadArgs(ctx, args, ideal); err != nil {
			return err
		}
	default:
		ideal.Loaded = true
		if err := loader.LoadDeps(ctx, ideal); err != nil {
			return err
		}
		if d.Opts.Dev || !d.Opts.Production {
			if err := loader.LoadDevDeps(ctx, ideal); err != nil {
				return err
			}
		}
	}

	if err := Validate(ideal); err != nil {
		return err
	}

	actions := DiffTrees(current, ideal)
	plan := Decompose(actions, d.Opts.Npat)
	d.debug().WithField("actions", len(actions)).Info("computed install plan")

	sched := &Scheduler{
		Fetcher:     d.Fetcher,
		Extractor:   d.Extractor,
		Runner:      d.Runner,
		Staging:     filepath.Join(nodeModules, ".staging"),
		Concurrency: d.Opts.Concurrency,
		Out:         d.Out,
		Debug:       d.debug(),
	}
	if err := sched.Run(ctx, plan); err != nil {
		return err
	}

	if topLevel && len(args) == 0 {
		return d.runRootLifecycles(ctx, rootPkg, where)
	}
	return nil
}

// runRootLifecycles runs the top-level hooks against the root package
// after the main pipeline, independent of the staged tree.
func (d *Driver) runRootLifecycles(ctx context.Context, pkg *Package, where string) error {
	phases := []string{"preinstall", "build", "postinstall"}
	if d.Opts.Npat {
		phases = append(phases, "test")
	}
	if !d.Opts.Production {
		phases = append(phases, "prepublish")
	}
	for _, phase := range phases {
		if err := d.Runner.RunLifecycle(ctx, phase, pkg, where); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) debug() logrus.FieldLogger {
	if d.Debug == nil {
		d.Debug = discardLogger()
	}
	return d.Debug
}

// filterSelfArgs drops local-path args that point at the install target
// itself.
func filterSelfArgs(where string, args []string) []string {
	abs, err := filepath.Abs(where)
	if err != nil {
		return args
	}
	kept := args[:0:0]
	for _, arg := range args {
		spec, err := ParseSpec(arg)
		if err == nil && spec.Type == TypeLocal {
			target := spec.Fetch
			if !filepath.IsAbs(target) {
				target = filepath.Join(abs, target)
			}
			if filepath.Clean(target) == abs {
				continue
			}
		}
		kept = append(kept, arg)
	}
	return kept
}

// readCurrentTree reconstructs the tree found on disk by walking
// node_modules and reading each installed package's manifest. Children
// come out sorted by name so the tree shape is deterministic.
func readCurrentTree(where string, rootPkg *Package) (*Node, error) {
	root := NewRootNode(rootPkg.clone(), where)
	if realpath, err := filepath.EvalSymlinks(where); err == nil {
		root.Realpath = realpath
	}
	if err := readChildren(root); err != nil {
		return nil, err
	}
	return root, nil
}

func readChildren(parent *Node) error {
	nm := filepath.Join(parent.Realpath, "node_modules")
	entries, err := os.ReadDir(nm)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", nm)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name[0] == '.' {
			continue
		}
		pkg, err := ReadManifest(filepath.Join(nm, name))
		if err != nil {
			var missing *ManifestMissingError
			if errors.As(err, &missing) {
				// not an installed package, just a stray directory
				continue
			}
			return err
		}
		child := &Node{Package: pkg}
		parent.AttachChild(child)
		// the on-disk placement edge stands in for the requirement edge
		// until the loader revisits the node
		child.AddRequiredBy(parent)
		if err := readChildren(child); err != nil {
			return err
		}
	}
	return nil
}
