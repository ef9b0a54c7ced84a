// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ManifestName, `{
		"name": "app",
		"version": "1.0.0",
		"dependencies": {"a": "^1.0.0"},
		"devDependencies": {"d": "^2.0.0"},
		"optionalDependencies": {"opt": "^3.0.0"},
		"scripts": {"postinstall": "echo done"}
	}`)

	pkg, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "app", pkg.Name)
	assert.Equal(t, "1.0.0", pkg.Version)
	assert.Equal(t, "^1.0.0", pkg.Dependencies["a"])
	assert.Equal(t, "^3.0.0", pkg.Dependencies["opt"], "optional deps fold into the runtime map")
	assert.Equal(t, "^3.0.0", pkg.OptionalDependencies["opt"])
	assert.Equal(t, "^2.0.0", pkg.DevDependencies["d"])
	assert.Equal(t, "echo done", pkg.Scripts["postinstall"])
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	var missing *ManifestMissingError
	require.ErrorAs(t, err, &missing)
}

func TestReadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ManifestName, `{"name": `)
	_, err := ReadManifest(dir)
	require.Error(t, err)
	var missing *ManifestMissingError
	assert.False(t, errors.As(err, &missing), "a corrupt manifest is not a missing one")
}

func TestReadManifestEmbeddedShrinkwrap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ManifestName, `{
		"name": "app",
		"version": "1.0.0",
		"_shrinkwrap": {
			"a": {"version": "1.0.0", "dependencies": {"b": {"version": "2.0.0"}}}
		}
	}`)

	pkg, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Contains(t, pkg.Shrinkwrap, "a")
	assert.Equal(t, "1.0.0", pkg.Shrinkwrap["a"].Version)
	require.Contains(t, pkg.Shrinkwrap["a"].Dependencies, "b")
	assert.Equal(t, "2.0.0", pkg.Shrinkwrap["a"].Dependencies["b"].Version)
}

func TestReadShrinkwrapFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ShrinkwrapName, `{
		"name": "app",
		"version": "1.0.0",
		"dependencies": {"a": {"version": "1.2.3"}}
	}`)

	deps, err := ReadShrinkwrap(dir)
	require.NoError(t, err)
	require.Contains(t, deps, "a")
	assert.Equal(t, "1.2.3", deps["a"].Version)
}

func TestReadShrinkwrapAbsent(t *testing.T) {
	deps, err := ReadShrinkwrap(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, deps)
}
