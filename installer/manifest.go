// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ManifestName is the manifest file name read at every package root.
const ManifestName = "package.json"

// ShrinkwrapName is the standalone lockfile read at the project root.
const ShrinkwrapName = "npm-shrinkwrap.json"

// packageJSON is the wire form of a manifest.
type packageJSON struct {
	Name                 string                `json:"name"`
	Version              string                `json:"version"`
	Dependencies         map[string]string     `json:"dependencies"`
	DevDependencies      map[string]string     `json:"devDependencies"`
	OptionalDependencies map[string]string     `json:"optionalDependencies"`
	Scripts              map[string]string     `json:"scripts"`
	Shrinkwrap           map[string]*LockedDep `json:"_shrinkwrap"`
}

// ReadManifest reads the package.json in dir into a package record. A
// missing manifest yields a ManifestMissingError; the driver downgrades
// that to an empty manifest at the project root only. Optional
// dependencies are folded into the runtime dependency map, the way the
// loader expects them.
func ReadManifest(dir string) (*Package, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return nil, &ManifestMissingError{Dir: dir}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read manifest in %s", dir)
	}

	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s in %s", ManifestName, dir)
	}

	pkg := &Package{
		Name:                 raw.Name,
		Version:              raw.Version,
		Dependencies:         raw.Dependencies,
		DevDependencies:      raw.DevDependencies,
		OptionalDependencies: raw.OptionalDependencies,
		Scripts:              raw.Scripts,
		Shrinkwrap:           raw.Shrinkwrap,
	}
	for name, rng := range raw.OptionalDependencies {
		if pkg.Dependencies == nil {
			pkg.Dependencies = make(map[string]string)
		}
		if _, declared := pkg.Dependencies[name]; !declared {
			pkg.Dependencies[name] = rng
		}
	}
	return pkg, nil
}

// shrinkwrapJSON is the wire form of a standalone lockfile.
type shrinkwrapJSON struct {
	Name         string                `json:"name"`
	Version      string                `json:"version"`
	Dependencies map[string]*LockedDep `json:"dependencies"`
}

// ReadShrinkwrap reads the npm-shrinkwrap.json in dir, returning nil
// with no error when the file does not exist.
func ReadShrinkwrap(dir string) (map[string]*LockedDep, error) {
	data, err := os.ReadFile(filepath.Join(dir, ShrinkwrapName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read lockfile in %s", dir)
	}

	var raw shrinkwrapJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s in %s", ShrinkwrapName, dir)
	}
	return raw.Dependencies, nil
}
