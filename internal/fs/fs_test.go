// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir, 0755))
	assert.True(t, IsDir(dir))
	require.NoError(t, EnsureDir(dir, 0755), "ensuring an existing directory is fine")

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.Error(t, EnsureDir(file, 0755))
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep.txt"), []byte("deep"), 0644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))

	fi, err := os.Stat(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm(), "modes survive the copy")
}

func TestRenameWithFallback(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))

	dst := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, RenameWithFallback(src, dst))

	_, err := os.Stat(filepath.Join(dst, "f"))
	require.NoError(t, err)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestRenameWithFallbackMissingSource(t *testing.T) {
	err := RenameWithFallback(filepath.Join(t.TempDir(), "ghost"), filepath.Join(t.TempDir(), "dst"))
	require.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0640))

	dst := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}
