// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachChildComputesPaths(t *testing.T) {
	root := NewRootNode(&Package{Name: "app"}, "/proj")
	a := &Node{Package: pkg("a", "1.0.0", nil)}
	root.AttachChild(a)
	b := &Node{Package: pkg("b", "1.0.0", nil)}
	a.AttachChild(b)

	assert.Equal(t, filepath.Join("/proj", "node_modules", "a"), a.Path)
	assert.Equal(t, filepath.Join("/proj", "node_modules", "a", "node_modules", "b"), b.Path)
	assert.Same(t, root, b.Root())
}

func TestDetachChild(t *testing.T) {
	root := NewRootNode(nil, "/proj")
	a := &Node{Package: pkg("a", "1.0.0", nil)}
	root.AttachChild(a)

	require.True(t, root.DetachChild(a))
	assert.Nil(t, a.Parent)
	assert.Nil(t, root.ChildByName("a"))
	assert.False(t, root.DetachChild(a), "detaching twice should report false")
}

func TestAddRequiredByDedupsByIdentity(t *testing.T) {
	root := NewRootNode(nil, "/proj")
	a := &Node{Package: pkg("a", "1.0.0", nil)}
	root.AttachChild(a)

	a.AddRequiredBy(root)
	a.AddRequiredBy(root)
	assert.Len(t, a.RequiredBy, 1)
}

func TestCloneIsIndependent(t *testing.T) {
	root := NewRootNode(&Package{Name: "app", Dependencies: map[string]string{"a": "^1.0.0"}}, "/proj")
	a := &Node{Package: pkg("a", "1.0.0", map[string]string{"b": "^1.0.0"})}
	root.AttachChild(a)
	b := &Node{Package: pkg("b", "1.2.0", nil)}
	a.AttachChild(b)
	a.AddRequiredBy(root)
	b.AddRequiredBy(a)

	clone := root.Clone()

	// same shape
	ca := clone.ChildByName("a")
	require.NotNil(t, ca)
	cb := ca.ChildByName("b")
	require.NotNil(t, cb)
	assert.Equal(t, a.Path, ca.Path)

	// back-references were remapped into the new tree
	require.Len(t, cb.RequiredBy, 1)
	assert.Same(t, ca, cb.RequiredBy[0])

	// no shared mutable state
	ca.Package.Dependencies["c"] = "^2.0.0"
	assert.NotContains(t, a.Package.Dependencies, "c")
	ca.Package.Requested.Spec = "mutated"
	assert.NotEqual(t, "mutated", a.Package.Requested.Spec)
}

func TestDepChain(t *testing.T) {
	root := NewRootNode(&Package{}, "/proj")
	a := &Node{Package: pkg("a", "1.0.0", nil)}
	root.AttachChild(a)
	b := &Node{Package: pkg("b", "1.0.0", nil)}
	a.AttachChild(b)

	assert.Equal(t, "(root) > a > b", b.DepChain())
}
