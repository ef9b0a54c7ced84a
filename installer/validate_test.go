// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTree() *Node {
	root := NewRootNode(&Package{Name: "app", Dependencies: map[string]string{"a": "^1.0.0"}}, "/proj")
	a := &Node{Package: pkg("a", "1.2.0", map[string]string{"b": "^1.0.0"}), Loaded: true}
	root.AttachChild(a)
	a.AddRequiredBy(root)
	b := &Node{Package: pkg("b", "1.0.0", nil), Loaded: true}
	a.AttachChild(b)
	b.AddRequiredBy(a)
	return root
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	require.NoError(t, Validate(validTree()))
}

func TestValidateRejectsBadPath(t *testing.T) {
	root := validTree()
	a := root.ChildByName("a")
	a.Path = "/somewhere/else"

	err := Validate(root)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Same(t, a, ve.Node)
}

func TestValidateRejectsDuplicateChildren(t *testing.T) {
	root := validTree()
	dup := &Node{Package: pkg("a", "9.0.0", nil), Loaded: true}
	root.AttachChild(dup)
	dup.AddRequiredBy(root)

	err := Validate(root)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problem, "duplicate child")
}

func TestValidateRejectsOrphanedNode(t *testing.T) {
	root := validTree()
	orphan := &Node{Package: pkg("z", "1.0.0", nil), Loaded: true}
	root.AttachChild(orphan)

	err := Validate(root)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problem, "not required")
}

func TestValidateRejectsUnsatisfiedDependency(t *testing.T) {
	root := validTree()
	a := root.ChildByName("a")
	require.True(t, a.DetachChild(a.ChildByName("b")))

	err := Validate(root)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problem, "not satisfied")
}

func TestValidateAllowsAbsentOptional(t *testing.T) {
	root := validTree()
	a := root.ChildByName("a")
	a.Package.OptionalDependencies = map[string]string{"b": "^1.0.0"}
	require.True(t, a.DetachChild(a.ChildByName("b")))

	require.NoError(t, Validate(root))
}

func TestValidateRejectsCycle(t *testing.T) {
	root := validTree()
	a := root.ChildByName("a")
	b := a.ChildByName("b")
	// deliberately corrupt the ownership edge
	b.Children = append(b.Children, a)

	err := Validate(root)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestValidateSatisfactionViaAncestorSibling(t *testing.T) {
	// b is hoisted to the root, a deep dependent still counts as satisfied
	root := NewRootNode(&Package{Name: "app", Dependencies: map[string]string{"a": "^1.0.0", "b": "^1.0.0"}}, "/proj")
	a := &Node{Package: pkg("a", "1.0.0", map[string]string{"b": "^1.0.0"}), Loaded: true}
	b := &Node{Package: pkg("b", "1.3.0", nil), Loaded: true}
	root.AttachChild(a)
	root.AttachChild(b)
	a.AddRequiredBy(root)
	b.AddRequiredBy(root)
	b.AddRequiredBy(a)

	require.NoError(t, Validate(root))
}
