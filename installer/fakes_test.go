// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// fakeRegistry is an in-memory Fetcher. Tarballs are JSON-encoded
// manifests that fakeExtractor turns back into a package directory.
type fakeRegistry struct {
	mu       sync.Mutex
	versions map[string][]*Package
	tags     map[string]map[string]string

	metadataCalls []string
	tarballCalls  []string
}

func newFakeRegistry(pkgs ...*Package) *fakeRegistry {
	f := &fakeRegistry{
		versions: make(map[string][]*Package),
		tags:     make(map[string]map[string]string),
	}
	for _, p := range pkgs {
		f.publish(p)
	}
	return f
}

func (f *fakeRegistry) publish(p *Package) {
	f.versions[p.Name] = append(f.versions[p.Name], p)
}

func (f *fakeRegistry) tag(name, tag, version string) {
	if f.tags[name] == nil {
		f.tags[name] = make(map[string]string)
	}
	f.tags[name][tag] = version
}

func (f *fakeRegistry) FetchMetadata(ctx context.Context, spec Spec, dir string, lg *log.Logger) (*Package, error) {
	f.mu.Lock()
	f.metadataCalls = append(f.metadataCalls, spec.Raw)
	published := f.versions[spec.Name]
	f.mu.Unlock()

	if len(published) == 0 {
		return nil, errors.Errorf("package %s not found", spec.Name)
	}

	want := spec.Fetch
	if spec.Type == TypeTag {
		f.mu.Lock()
		tagged, ok := f.tags[spec.Name][spec.Fetch]
		f.mu.Unlock()
		if !ok {
			return nil, errors.Errorf("tag %q does not exist for %s", spec.Fetch, spec.Name)
		}
		want = tagged
	}

	var best *Package
	switch spec.Type {
	case TypeVersion, TypeTag:
		for _, p := range published {
			if p.Version == want {
				best = p
			}
		}
	case TypeRange:
		c, err := semver.NewConstraint(spec.Fetch)
		if err != nil {
			return nil, err
		}
		var bestV *semver.Version
		for _, p := range published {
			v, err := semver.NewVersion(p.Version)
			if err != nil {
				continue
			}
			if c.Check(v) && (bestV == nil || v.GreaterThan(bestV)) {
				best, bestV = p, v
			}
		}
	default:
		return nil, errors.Errorf("unsupported spec type %q", spec.Type)
	}
	if best == nil {
		return nil, errors.Errorf("no version of %s satisfies %s", spec.Name, spec.Fetch)
	}

	out := best.clone()
	out.Requested = spec.Requested()
	return out, nil
}

func (f *fakeRegistry) FetchTarball(ctx context.Context, pkg *Package, dest string) error {
	f.mu.Lock()
	f.tarballCalls = append(f.tarballCalls, pkg.Name+"@"+pkg.Version)
	f.mu.Unlock()

	manifest, err := json.Marshal(map[string]interface{}{
		"name":    pkg.Name,
		"version": pkg.Version,
		"scripts": pkg.Scripts,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(dest, manifest, 0644)
}

func (f *fakeRegistry) tarballCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tarballCalls)
}

// fakeExtractor materializes the manifest a fakeRegistry tarball holds.
type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, tarball, dest string) error {
	data, err := os.ReadFile(tarball)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	return os.WriteFile(dest+string(os.PathSeparator)+ManifestName, data, 0644)
}

// fakeRunner records lifecycle invocations in order.
type fakeRunner struct {
	mu     sync.Mutex
	events []string
	failOn string // "phase:name" that should error
}

func (r *fakeRunner) RunLifecycle(ctx context.Context, phase string, pkg *Package, realpath string) error {
	key := fmt.Sprintf("%s:%s", phase, pkg.Name)
	r.mu.Lock()
	r.events = append(r.events, key)
	r.mu.Unlock()
	if key == r.failOn {
		return &LifecycleError{Phase: phase, Package: pkg.Name, Err: errors.New("boom")}
	}
	return nil
}

func (r *fakeRunner) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func pkg(name, version string, deps map[string]string) *Package {
	return &Package{
		Name:         name,
		Version:      version,
		Dependencies: deps,
		Tarball:      fmt.Sprintf("fake://%s/%s", name, version),
	}
}

func discardLog() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestLoader(reg *fakeRegistry) *Loader {
	return NewLoader(NewResolver(reg, discardLog()), discardLog(), nil)
}
