// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"fmt"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const resolverCacheSize = 512

// Resolver is a thin wrapper over the fetcher that normalizes a raw spec
// into a resolved package record. Equivalent spec strings are memoized
// for the duration of a run.
type Resolver struct {
	fetcher Fetcher
	out     *log.Logger
	cache   *lru.Cache[string, *Package]
}

// NewResolver returns a resolver backed by f. out receives the log
// handle passed through to the fetcher.
func NewResolver(f Fetcher, out *log.Logger) *Resolver {
	cache, err := lru.New[string, *Package](resolverCacheSize)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &Resolver{fetcher: f, out: out, cache: cache}
}

// Resolve parses raw and fetches the matching package record. dir is the
// directory local specs resolve relative to.
func (r *Resolver) Resolve(ctx context.Context, raw, dir string) (*Package, error) {
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, spec, dir)
}

// ResolveExact fetches name at exactly version, bypassing range
// resolution. It is the entry point the shrinkwrap inflater uses.
func (r *Resolver) ResolveExact(ctx context.Context, name, version, dir string) (*Package, error) {
	spec := Spec{
		Raw:   name + "@" + version,
		Name:  name,
		Fetch: version,
		Type:  TypeVersion,
	}
	return r.resolve(ctx, spec, dir)
}

func (r *Resolver) resolve(ctx context.Context, spec Spec, dir string) (*Package, error) {
	key := fmt.Sprintf("%s\x00%s", spec.Raw, dir)
	if pkg, ok := r.cache.Get(key); ok {
		// each caller gets an independent copy; placement mutates the
		// requested descriptor in place
		return pkg.clone(), nil
	}

	pkg, err := r.fetcher.FetchMetadata(ctx, spec, dir, r.out)
	if err != nil {
		if _, ok := err.(*ResolveError); ok {
			return nil, err
		}
		return nil, &ResolveError{Spec: spec.Raw, Err: err}
	}
	if pkg.Name == "" || pkg.Version == "" {
		return nil, &ResolveError{Spec: spec.Raw, Err: errors.New("fetcher returned an incomplete record")}
	}
	if pkg.Requested.Type == "" {
		pkg.Requested = spec.Requested()
	}

	r.cache.Add(key, pkg.clone())
	return pkg, nil
}
