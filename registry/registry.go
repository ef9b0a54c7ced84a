// Package registry implements the fetcher the installer consumes,
// backed by an npm-style HTTP registry. Metadata comes from the
// package's packument; tarballs from its dist reference.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mikeaddison93/npm/installer"
	"github.com/mikeaddison93/npm/internal/fs"
)

// DefaultURL is the registry consulted when no other is configured.
const DefaultURL = "https://registry.npmjs.org"

// Client talks to one registry. It satisfies installer.Fetcher.
type Client struct {
	base  string
	http  *retryablehttp.Client
	debug logrus.FieldLogger
}

// NewClient returns a client for the registry at base, which defaults to
// DefaultURL when empty.
func NewClient(base string, debug logrus.FieldLogger) *Client {
	if base == "" {
		base = DefaultURL
	}
	hc := retryablehttp.NewClient()
	hc.RetryMax = 3
	hc.Logger = nil
	if debug == nil {
		lg := logrus.New()
		lg.SetOutput(io.Discard)
		debug = lg
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc, debug: debug}
}

// packument is the registry's full metadata document for one package.
type packument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]*packumentEntry `json:"versions"`
}

type packumentEntry struct {
	Name                 string                          `json:"name"`
	Version              string                          `json:"version"`
	Dependencies         map[string]string               `json:"dependencies"`
	OptionalDependencies map[string]string               `json:"optionalDependencies"`
	Scripts              map[string]string               `json:"scripts"`
	Shrinkwrap           map[string]*installer.LockedDep `json:"_shrinkwrap"`
	Deprecated           string                          `json:"deprecated"`
	Dist                 struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
}

// FetchMetadata resolves spec to a concrete package record. Registry
// specs go through packument version selection; local folder specs read
// the folder's own manifest. Git, hosted and remote-tarball specs are
// not served by this client.
func (c *Client) FetchMetadata(ctx context.Context, spec installer.Spec, dir string, lg *log.Logger) (*installer.Package, error) {
	switch spec.Type {
	case installer.TypeLocal:
		return c.localMetadata(spec, dir)
	case installer.TypeGit, installer.TypeHosted, installer.TypeRemote:
		return nil, errors.Errorf("spec type %q is not supported by the registry client", spec.Type)
	}

	doc, err := c.packument(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	entry, err := pickVersion(doc, spec)
	if err != nil {
		return nil, err
	}
	c.debug.WithFields(logrus.Fields{
		"package": entry.Name,
		"version": entry.Version,
	}).Debug("resolved registry metadata")

	return &installer.Package{
		Name:                 entry.Name,
		Version:              entry.Version,
		Requested:            spec.Requested(),
		Dependencies:         mergeOptional(entry.Dependencies, entry.OptionalDependencies),
		OptionalDependencies: entry.OptionalDependencies,
		Scripts:              entry.Scripts,
		Shrinkwrap:           entry.Shrinkwrap,
		Tarball:              entry.Dist.Tarball,
	}, nil
}

func mergeOptional(deps, optional map[string]string) map[string]string {
	if len(optional) == 0 {
		return deps
	}
	merged := make(map[string]string, len(deps)+len(optional))
	for k, v := range deps {
		merged[k] = v
	}
	for k, v := range optional {
		if _, declared := merged[k]; !declared {
			merged[k] = v
		}
	}
	return merged
}

func (c *Client) packument(ctx context.Context, name string) (*packument, error) {
	url := fmt.Sprintf("%s/%s", c.base, strings.Replace(name, "/", "%2f", 1))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build registry request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "registry request for %s failed", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Errorf("package %s not found in registry", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("registry returned %s for %s", resp.Status, name)
	}

	var doc packument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "cannot parse registry metadata for %s", name)
	}
	return &doc, nil
}

// pickVersion selects the packument entry matching the spec: the exact
// version, the dist-tag target, or the highest satisfying version of a
// range. Deprecated versions are passed over, and prereleases are
// admitted only when the range itself carries one.
func pickVersion(doc *packument, spec installer.Spec) (*packumentEntry, error) {
	switch spec.Type {
	case installer.TypeVersion:
		if entry, ok := doc.Versions[strings.TrimPrefix(spec.Fetch, "=")]; ok {
			return entry, nil
		}
		return nil, errors.Errorf("version %s of %s is not published", spec.Fetch, spec.Name)

	case installer.TypeTag:
		version, ok := doc.DistTags[spec.Fetch]
		if !ok {
			return nil, errors.Errorf("tag %q does not exist for %s", spec.Fetch, spec.Name)
		}
		if entry, ok := doc.Versions[version]; ok {
			return entry, nil
		}
		return nil, errors.Errorf("tag %q of %s points at unpublished version %s", spec.Fetch, spec.Name, version)
	}

	constraint, err := semver.NewConstraint(spec.Fetch)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid range %q for %s", spec.Fetch, spec.Name)
	}
	allowPrerelease := strings.Contains(spec.Fetch, "-")

	var candidates semver.Collection
	byVersion := make(map[string]*packumentEntry, len(doc.Versions))
	for raw, entry := range doc.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if entry.Deprecated != "" {
			continue
		}
		if v.Prerelease() != "" && !allowPrerelease {
			continue
		}
		if constraint.Check(v) {
			candidates = append(candidates, v)
			byVersion[v.Original()] = entry
		}
	}
	if len(candidates) == 0 {
		return nil, errors.Errorf("no published version of %s satisfies %s", spec.Name, spec.Fetch)
	}
	sort.Sort(candidates)
	return byVersion[candidates[len(candidates)-1].Original()], nil
}

func (c *Client) localMetadata(spec installer.Spec, dir string) (*installer.Package, error) {
	path := spec.Fetch
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if !fs.IsDir(path) {
		return nil, errors.Errorf("local spec %s is not a package folder", spec.Raw)
	}
	pkg, err := installer.ReadManifest(path)
	if err != nil {
		return nil, err
	}
	pkg.Requested = spec.Requested()
	pkg.Tarball = path
	return pkg, nil
}

// FetchTarball materializes the package distribution at dest: registry
// tarballs are downloaded, local folders staged by copy. The extractor
// recognizes a staged directory and copies it into place.
func (c *Client) FetchTarball(ctx context.Context, pkg *installer.Package, dest string) error {
	if pkg.Tarball == "" {
		return errors.Errorf("package %s has no distribution reference", pkg.Name)
	}
	if fs.IsDir(pkg.Tarball) {
		return fs.CopyDir(pkg.Tarball, dest)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pkg.Tarball, nil)
	if err != nil {
		return errors.Wrap(err, "cannot build tarball request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "tarball download for %s failed", pkg.Name)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("registry returned %s for %s tarball", resp.Status, pkg.Name)
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", dest)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return errors.Wrapf(err, "cannot write %s", dest)
	}
	return errors.Wrapf(out.Close(), "cannot close %s", dest)
}
