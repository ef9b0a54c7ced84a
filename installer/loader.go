// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"log"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Loader expands an ideal tree by resolving and placing declared
// dependencies. Placement hoists each dependency to the highest ancestor
// where no conflicting copy exists; the first version to claim a slot at
// a given ancestor wins and later incompatible versions install deeper.
type Loader struct {
	Resolver *Resolver
	Out      *log.Logger
	Debug    logrus.FieldLogger
}

// NewLoader returns a loader resolving through r.
func NewLoader(r *Resolver, out *log.Logger, debug logrus.FieldLogger) *Loader {
	if debug == nil {
		debug = discardLogger()
	}
	return &Loader{Resolver: r, Out: out, Debug: debug}
}

func discardLogger() logrus.FieldLogger {
	lg := logrus.New()
	lg.SetOutput(nopWriter{})
	return lg
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// LoadArgs places each user-supplied spec at the root as a top-level
// dependency, then recursively loads their dependencies. Every arg is
// placed before any subtree is expanded, so the args claim their root
// slots in declaration order.
func (ld *Loader) LoadArgs(ctx context.Context, args []string, tree *Node) error {
	var expand []*Node
	for _, raw := range args {
		child, err := ld.addChild(ctx, raw, tree)
		if err != nil {
			return errors.Wrapf(err, "while installing %s", raw)
		}
		if child != nil {
			expand = append(expand, child)
		}
	}
	for _, child := range expand {
		if err := ld.LoadDeps(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// LoadDeps places every declared runtime dependency of the node's
// package, then expands the subtrees of the fresh placements. Placement
// runs ahead of expansion so the node's own dependencies claim their
// slots before any transitive dependency tries to hoist into them. A
// failure under a dependency that is also declared optional is
// downgraded to a warning and the subtree skipped.
func (ld *Loader) LoadDeps(ctx context.Context, node *Node) error {
	deps := node.Package.Dependencies

	type pending struct {
		name  string
		child *Node
	}
	var expand []pending
	for _, name := range sortedKeys(deps) {
		child, err := ld.addChild(ctx, name+"@"+deps[name], node)
		if err != nil {
			if _, optional := node.Package.OptionalDependencies[name]; optional {
				ld.warnOptional(node, name, err)
				continue
			}
			return errors.Wrapf(err, "required by %s", node.DepChain())
		}
		if child != nil {
			expand = append(expand, pending{name, child})
		}
	}

	for _, p := range expand {
		if err := ld.LoadDeps(ctx, p.child); err != nil {
			if _, optional := node.Package.OptionalDependencies[p.name]; optional {
				if p.child.Parent != nil {
					p.child.Parent.DetachChild(p.child)
				}
				ld.warnOptional(node, p.name, err)
				continue
			}
			return err
		}
	}
	return nil
}

// LoadDevDeps places the root's dev dependencies that do not overlap its
// runtime dependencies. Each dev dependency's own subtree is loaded with
// the parent link detached so that dev-only transitives never influence
// placement of runtime code; the link is restored afterward.
func (ld *Loader) LoadDevDeps(ctx context.Context, root *Node) error {
	dev := root.Package.DevDependencies

	var expand []*Node
	for _, name := range sortedKeys(dev) {
		if _, shadowed := root.Package.Dependencies[name]; shadowed {
			continue
		}
		child, err := ld.addChild(ctx, name+"@"+dev[name], root)
		if err != nil {
			return errors.Wrapf(err, "required by %s (dev)", root.DepChain())
		}
		if child != nil {
			expand = append(expand, child)
		}
	}

	for _, child := range expand {
		parent := child.Parent
		child.Parent = nil
		err := ld.LoadDeps(ctx, child)
		child.Parent = parent
		if err != nil {
			return err
		}
	}
	return nil
}

// addChild resolves a spec and places it relative to target. It returns
// a non-nil node only when that node's own dependencies still need to be
// expanded by the caller.
func (ld *Loader) addChild(ctx context.Context, raw string, target *Node) (*Node, error) {
	pkg, err := ld.Resolver.Resolve(ctx, raw, target.Root().Realpath)
	if err != nil {
		return nil, err
	}

	if existing := findRequirement(target, pkg.Name, pkg.Requested); existing != nil {
		existing.AddRequiredBy(target)
		mergeRequested(existing.Package, pkg.Requested)
		if existing.Loaded {
			return nil, nil
		}
		existing.Loaded = true
		if len(existing.Package.Shrinkwrap) > 0 {
			return nil, ld.Inflate(ctx, existing, existing.Package.Shrinkwrap)
		}
		return existing, nil
	}

	parent := earliestInstallable(target, pkg.Name)
	if parent == nil {
		// target's own child conflicts; the fresh version replaces it in
		// the ideal tree and the differ turns the pair into an update
		parent = target
		if stale := target.ChildByName(pkg.Name); stale != nil {
			target.DetachChild(stale)
		}
	}

	node := &Node{Package: pkg, Loaded: true}
	parent.AttachChild(node)
	node.AddRequiredBy(target)
	ld.Debug.WithFields(logrus.Fields{
		"package": pkg.Name,
		"version": pkg.Version,
		"path":    node.Path,
	}).Debug("placed dependency")

	if len(pkg.Shrinkwrap) > 0 {
		return nil, ld.Inflate(ctx, node, pkg.Shrinkwrap)
	}
	return node, nil
}

func (ld *Loader) warnOptional(node *Node, name string, err error) {
	if ld.Out != nil {
		ld.Out.Printf("WARNING: skipping optional dependency %s of %s: %v", name, node.DepChain(), err)
	}
	ld.Debug.WithError(err).WithField("package", name).Warn("optional dependency skipped")
}

// findRequirement walks from target upward looking for a placement that
// already satisfies name at the requested descriptor. A same-name node
// along the chain that does not satisfy cuts the search off: a new copy
// has to live above or below the conflicting one.
func findRequirement(target *Node, name string, req Requested) *Node {
	if target.Name() == name {
		if satisfies(req, target.Package.Version) {
			return target
		}
		return nil
	}
	if match := target.ChildByName(name); match != nil {
		if satisfies(req, match.Package.Version) {
			return match
		}
		return nil
	}
	if target.Parent == nil {
		return nil
	}
	return findRequirement(target.Parent, name, req)
}

// earliestInstallable returns the highest ancestor of target that can
// hold a new copy of name: the walk stops below the first ancestor that
// already has a child of that name. An ancestor that itself is name is
// returned directly, since the new copy must nest under it. A nil return
// means target's own children conflict.
func earliestInstallable(target *Node, name string) *Node {
	if target.Name() == name {
		return target
	}
	if target.ChildByName(name) != nil {
		return nil
	}
	if target.Parent == nil {
		return target
	}
	if p := earliestInstallable(target.Parent, name); p != nil {
		return p
	}
	return target
}

// mergeRequested folds an additional requested descriptor into the
// package of an existing placement that now satisfies it too.
func mergeRequested(pkg *Package, incoming Requested) {
	switch {
	case pkg.Requested.Type == "":
		if satisfies(incoming, pkg.Version) {
			pkg.Requested = incoming
		} else {
			pkg.Requested = Requested{Raw: pkg.Version, Spec: pkg.Version, Type: TypeVersion}
		}
	case pkg.Requested.Spec != incoming.Spec:
		pkg.Requested.Constraints = append(pkg.Requested.Constraints, incoming.Spec)
		pkg.Requested.Spec = pkg.Requested.Spec + " " + incoming.Spec
		pkg.Requested.Type = TypeRange
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
