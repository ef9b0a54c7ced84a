// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mikeaddison93/npm/internal/fs"
)

// defaultConcurrency bounds the number of outstanding tasks inside one
// parallel phase.
const defaultConcurrency = 10

// Scheduler executes a decomposed action plan against a staging
// directory that lives as a sibling of the target node_modules. All
// entries of one phase complete before the next phase starts; parallel
// phases run under bounded concurrency, serial phases one at a time in
// the order the differ emitted.
type Scheduler struct {
	Fetcher   Fetcher
	Extractor Extractor
	Runner    ScriptRunner

	// Staging is the scratch directory, conventionally
	// node_modules/.staging. It is recreated at the start of a run and
	// removed again afterward, best-effort on failure.
	Staging string

	Concurrency int
	Out         *log.Logger
	Debug       logrus.FieldLogger
}

func (s *Scheduler) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return defaultConcurrency
}

func (s *Scheduler) debug() logrus.FieldLogger {
	if s.Debug == nil {
		s.Debug = discardLogger()
	}
	return s.Debug
}

// Run drives the plan through every phase in order. On any phase
// failure the remaining phases are aborted, staging cleanup is
// attempted, and the original error surfaces. Serial phases that
// already completed are not rolled back.
func (s *Scheduler) Run(ctx context.Context, plan *Plan) (err error) {
	if plan.Empty() {
		return nil
	}

	if err := os.RemoveAll(s.Staging); err != nil {
		return errors.Wrapf(err, "cannot clear staging directory %s", s.Staging)
	}
	if err := fs.EnsureDir(s.Staging, 0755); err != nil {
		return errors.Wrap(err, "cannot create staging directory")
	}
	defer func() {
		if cerr := os.RemoveAll(s.Staging); cerr != nil {
			if err == nil {
				err = errors.Wrapf(cerr, "cannot remove staging directory %s", s.Staging)
			} else {
				// the primary error wins; cleanup failure is only logged
				s.debug().WithError(cerr).Warn("staging cleanup failed")
			}
		}
	}()

	for _, po := range phaseOrder {
		entries := plan.Entries(po.phase)
		if len(entries) == 0 {
			continue
		}
		s.debug().WithFields(logrus.Fields{
			"phase":   po.phase,
			"entries": len(entries),
		}).Debug("running phase")

		if po.parallel {
			err = s.runParallel(ctx, po.phase, entries)
		} else {
			err = s.runSerial(ctx, po.phase, entries)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runParallel(ctx context.Context, phase Phase, entries []Action) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for _, a := range entries {
		a := a
		g.Go(func() error {
			return s.exec(gctx, phase, a)
		})
	}
	return g.Wait()
}

func (s *Scheduler) runSerial(ctx context.Context, phase Phase, entries []Action) error {
	for _, a := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.exec(ctx, phase, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) exec(ctx context.Context, phase Phase, a Action) error {
	pkg := a.Node.Package
	switch phase {
	case PhaseFetch:
		dir := s.stageDir(a.Node)
		if err := fs.EnsureDir(dir, 0755); err != nil {
			return err
		}
		if err := s.Fetcher.FetchTarball(ctx, pkg, s.stageTarball(a.Node)); err != nil {
			return &FetchError{Name: pkg.Name, Err: err}
		}
		return nil

	case PhaseExtract:
		if err := s.Extractor.Extract(ctx, s.stageTarball(a.Node), s.stagePackage(a.Node)); err != nil {
			return &ExtractError{Name: pkg.Name, Err: err}
		}
		return nil

	case PhasePreinstall, PhaseBuild:
		// runs against the staged copy, before anything lands in place
		return s.Runner.RunLifecycle(ctx, string(phase), pkg, s.stagePackage(a.Node))

	case PhaseRemove:
		target := a.Node.Realpath
		if a.From != nil {
			target = a.From.Realpath
		}
		return errors.Wrapf(os.RemoveAll(target), "cannot remove %s", target)

	case PhaseFinalize:
		return s.finalize(a)

	case PhaseInstall, PhasePostinstall, PhaseTest:
		return s.Runner.RunLifecycle(ctx, string(phase), pkg, a.Node.Realpath)
	}
	return errors.Errorf("unknown phase %q", phase)
}

// finalize moves a staged package, or an already-installed one for move
// actions, into its final position under node_modules.
func (s *Scheduler) finalize(a Action) error {
	dest := a.Node.Realpath
	if err := fs.EnsureDir(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	src := s.stagePackage(a.Node)
	if a.Kind == ActionMove {
		src = a.From.Realpath
	}
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrapf(err, "cannot clear %s", dest)
	}
	if err := fs.RenameWithFallback(src, dest); err != nil {
		return errors.Wrapf(err, "cannot finalize %s", a.Node.Name())
	}
	if s.Out != nil {
		s.Out.Printf("%s %s@%s", a.Kind, a.Node.Name(), a.Node.Package.Version)
	}
	return nil
}

// stageDir is the staging subdirectory owned by one node; distinct nodes
// never share one, which is what lets parallel phases run unlocked.
func (s *Scheduler) stageDir(n *Node) string {
	rel := strings.TrimPrefix(n.Path, n.Root().Path)
	rel = strings.Trim(rel, "/\\")
	slug := strings.NewReplacer("/", "_", "\\", "_").Replace(rel)
	return filepath.Join(s.Staging, slug)
}

func (s *Scheduler) stageTarball(n *Node) string {
	return filepath.Join(s.stageDir(n), "package.tgz")
}

func (s *Scheduler) stagePackage(n *Node) string {
	return filepath.Join(s.stageDir(n), "package")
}
