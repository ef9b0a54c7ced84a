// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Inflate builds the subtree below node directly from a pinned dependency
// map, bypassing range resolution. The lockfile is authoritative about
// tree shape: every entry attaches as a direct child of node and no
// ancestor-based deduplication is performed.
func (ld *Loader) Inflate(ctx context.Context, node *Node, deps map[string]*LockedDep) error {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := deps[name]
		pkg, err := ld.Resolver.ResolveExact(ctx, name, entry.Version, node.Root().Realpath)
		if err != nil {
			if _, optional := node.Package.OptionalDependencies[name]; optional {
				ld.warnOptional(node, name, err)
				continue
			}
			return errors.Wrapf(err, "while inflating lockfile entry for %s", node.DepChain())
		}

		if stale := node.ChildByName(name); stale != nil {
			node.DetachChild(stale)
		}
		child := &Node{Package: pkg, Loaded: true}
		node.AttachChild(child)
		child.AddRequiredBy(node)

		sub := entry.Dependencies
		if len(sub) == 0 {
			sub = pkg.Shrinkwrap
		}
		if len(sub) > 0 {
			if err := ld.Inflate(ctx, child, sub); err != nil {
				return err
			}
		}
	}
	return nil
}
