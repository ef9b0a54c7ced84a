// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package installer computes and applies changes to a nested package tree
// rooted at a project's node_modules directory. It resolves an ideal tree
// from a manifest, explicit install targets and an optional shrinkwrap,
// diffs it against the tree found on disk, and executes the resulting
// action plan through a staged, phase-ordered scheduler.
package installer

import (
	"path/filepath"
	"sort"
	"strings"
)

// Package is the resolved record for one package: a canonical name, a
// concrete version, and the descriptor it was requested by. Dependency
// maps come from the package's own manifest.
type Package struct {
	Name      string
	Version   string
	Requested Requested

	Dependencies         map[string]string
	DevDependencies      map[string]string
	OptionalDependencies map[string]string
	Scripts              map[string]string

	// Shrinkwrap holds the package's embedded pinned dependency graph,
	// if it carries one. When present it is authoritative about the
	// shape of the subtree below this package.
	Shrinkwrap map[string]*LockedDep

	// Tarball is the distribution reference handed back to the fetcher.
	// For registry packages it is a URL; for local folders it is a path.
	Tarball string
}

// LockedDep is one entry of a pinned dependency graph. Sub-dependencies
// are structurally identical.
type LockedDep struct {
	Version      string                `json:"version"`
	Dependencies map[string]*LockedDep `json:"dependencies,omitempty"`
}

// clone returns a copy of p sharing no mutable state with the original.
func (p *Package) clone() *Package {
	if p == nil {
		return nil
	}
	c := *p
	c.Dependencies = copyStringMap(p.Dependencies)
	c.DevDependencies = copyStringMap(p.DevDependencies)
	c.OptionalDependencies = copyStringMap(p.OptionalDependencies)
	c.Scripts = copyStringMap(p.Scripts)
	c.Shrinkwrap = copyLockedDeps(p.Shrinkwrap)
	c.Requested.Constraints = append([]string(nil), p.Requested.Constraints...)
	return &c
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copyLockedDeps(m map[string]*LockedDep) map[string]*LockedDep {
	if m == nil {
		return nil
	}
	c := make(map[string]*LockedDep, len(m))
	for k, v := range m {
		c[k] = &LockedDep{
			Version:      v.Version,
			Dependencies: copyLockedDeps(v.Dependencies),
		}
	}
	return c
}

// Node is one position in a package tree. Children is the sole ownership
// edge; Parent and RequiredBy are back-references used for lookup only.
type Node struct {
	Package  *Package
	Path     string
	Realpath string

	Parent   *Node
	Children []*Node

	// RequiredBy records every node whose declared dependencies this
	// node satisfies. It accumulates across revisits and never implies
	// ownership.
	RequiredBy []*Node

	// Loaded is set once the node's own dependencies have been expanded.
	Loaded bool
}

// NewRootNode returns the root of a fresh tree anchored at dir. pkg may
// describe an unpackaged root, in which case it is empty but non-nil.
func NewRootNode(pkg *Package, dir string) *Node {
	if pkg == nil {
		pkg = &Package{}
	}
	return &Node{Package: pkg, Path: dir, Realpath: dir}
}

// IsRoot reports whether n is the root of its tree.
func (n *Node) IsRoot() bool { return n.Parent == nil }

// Root walks parent links to the root of n's tree.
func (n *Node) Root() *Node {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// Name returns the package name, or "" for an unpackaged root.
func (n *Node) Name() string {
	if n.Package == nil {
		return ""
	}
	return n.Package.Name
}

// ChildByName returns the child named name, or nil.
func (n *Node) ChildByName(name string) *Node {
	for _, c := range n.Children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// AttachChild appends c to n's children and recomputes the logical and
// physical paths of c and everything below it. The caller is responsible
// for name uniqueness among n's children.
func (n *Node) AttachChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
	c.recomputePaths()
}

// DetachChild removes c from n's children and clears its parent link.
// It reports whether c was actually a child of n.
func (n *Node) DetachChild(c *Node) bool {
	for i, have := range n.Children {
		if have == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			c.Parent = nil
			return true
		}
	}
	return false
}

func (n *Node) recomputePaths() {
	if n.Parent != nil {
		n.Path = filepath.Join(n.Parent.Path, "node_modules", n.Name())
		n.Realpath = filepath.Join(n.Parent.Realpath, "node_modules", n.Name())
	}
	for _, c := range n.Children {
		c.recomputePaths()
	}
}

// AddRequiredBy unions by into n's RequiredBy set, deduplicating by
// identity.
func (n *Node) AddRequiredBy(by *Node) {
	for _, have := range n.RequiredBy {
		if have == by {
			return
		}
	}
	n.RequiredBy = append(n.RequiredBy, by)
}

// WalkAncestors visits n and each of its ancestors in order, stopping
// early if fn returns false.
func (n *Node) WalkAncestors(fn func(*Node) bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		if !fn(cur) {
			return
		}
	}
}

// Walk visits n and every node below it, depth first, children in order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// SortChildren orders n's children by name. Tree construction appends in
// declaration order; readers of on-disk trees sort for determinism.
func (n *Node) SortChildren() {
	sort.Slice(n.Children, func(i, j int) bool {
		return n.Children[i].Name() < n.Children[j].Name()
	})
}

// Clone produces an independent structural copy of the tree rooted at n.
// The copy shares no mutable state with the original: packages are copied
// and all parent and required-by links are remapped into the new tree.
// Required-by references to nodes outside the cloned subtree are dropped.
func (n *Node) Clone() *Node {
	remap := make(map[*Node]*Node)
	clone := n.cloneStructure(remap)
	for orig, copied := range remap {
		for _, by := range orig.RequiredBy {
			if mapped, ok := remap[by]; ok {
				copied.RequiredBy = append(copied.RequiredBy, mapped)
			}
		}
	}
	return clone
}

func (n *Node) cloneStructure(remap map[*Node]*Node) *Node {
	c := &Node{
		Package:  n.Package.clone(),
		Path:     n.Path,
		Realpath: n.Realpath,
		Loaded:   n.Loaded,
	}
	remap[n] = c
	for _, child := range n.Children {
		cc := child.cloneStructure(remap)
		cc.Parent = c
		c.Children = append(c.Children, cc)
	}
	return c
}

// DepChain renders the chain of package names from the root down to n,
// for diagnostics.
func (n *Node) DepChain() string {
	var names []string
	n.WalkAncestors(func(a *Node) bool {
		name := a.Name()
		if name == "" {
			name = "(root)"
		}
		names = append(names, name)
		return true
	})
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " > ")
}
