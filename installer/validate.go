// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

// Validate asserts the structural invariants an ideal tree must satisfy
// before it may be handed to the differ:
//
//  1. every non-root node's path is parent.path/node_modules/name
//  2. names are unique within one parent's children
//  3. every declared runtime dependency is satisfied by an ancestor or
//     a sibling of an ancestor, with no conflicting copy in between
//  4. every non-root node is required by at least one node
//  5. the tree contains no cycles
//
// It returns a ValidationError naming the first offending node.
func Validate(root *Node) error {
	seen := make(map[*Node]bool)
	return validateNode(root, seen)
}

func validateNode(n *Node, seen map[*Node]bool) error {
	if seen[n] {
		return &ValidationError{Node: n, Problem: "tree contains a cycle"}
	}
	seen[n] = true

	if n.Parent != nil {
		want := filepath.Join(n.Parent.Path, "node_modules", n.Name())
		if n.Path != want {
			return &ValidationError{Node: n, Problem: fmt.Sprintf("path %q, want %q", n.Path, want)}
		}
		if len(n.RequiredBy) == 0 {
			return &ValidationError{Node: n, Problem: "node is not required by anything"}
		}
	}

	names := make(map[string]bool, len(n.Children))
	for _, c := range n.Children {
		if names[c.Name()] {
			return &ValidationError{Node: n, Problem: fmt.Sprintf("duplicate child %q", c.Name())}
		}
		names[c.Name()] = true
		if c.Parent != n {
			return &ValidationError{Node: c, Problem: "child's parent link does not point at its owner"}
		}
	}

	if !n.Loaded {
		// an unexpanded node (an explicit-args install leaves the root
		// alone) makes no satisfaction promises
		for _, c := range n.Children {
			if err := validateNode(c, seen); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range sortedKeys(n.Package.Dependencies) {
		rng := n.Package.Dependencies[name]
		if _, err := semver.NewConstraint(rng); err != nil {
			// only semver ranges are judged here; git/tag/path constraints
			// are the resolver's problem
			continue
		}
		req := Requested{Spec: rng, Type: TypeRange}
		if findRequirement(n, name, req) != nil {
			continue
		}
		if _, optional := n.Package.OptionalDependencies[name]; optional {
			// a skipped optional subtree is legitimately absent
			continue
		}
		return &ValidationError{
			Node:    n,
			Problem: fmt.Sprintf("dependency %s@%s is not satisfied by any ancestor or sibling", name, rng),
		}
	}

	for _, c := range n.Children {
		if err := validateNode(c, seen); err != nil {
			return err
		}
	}
	return nil
}
