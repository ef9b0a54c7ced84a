package registry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mikeaddison93/npm/internal/fs"
)

// Extractor unpacks fetched package tarballs. It satisfies
// installer.Extractor.
type Extractor struct{}

// Extract unpacks the gzipped tarball at tarball into dest, stripping
// the single top-level directory npm tarballs carry (conventionally
// "package/"). A staged directory in place of a tarball, as produced
// for local folder specs, is copied instead.
func (Extractor) Extract(ctx context.Context, tarball, dest string) error {
	if fs.IsDir(tarball) {
		return fs.CopyDir(tarball, dest)
	}

	f, err := os.Open(tarball)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", tarball)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "%s is not a gzipped tarball", tarball)
	}
	defer gz.Close()

	if err := fs.EnsureDir(dest, 0755); err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "corrupt tarball %s", tarball)
		}

		name := stripRoot(hdr.Name)
		if name == "" {
			continue
		}
		target, err := securePath(dest, name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.EnsureDir(target, os.FileMode(hdr.Mode)|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := fs.EnsureDir(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return errors.Wrapf(err, "cannot create %s", target)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return errors.Wrapf(err, "cannot extract %s", name)
			}
			if err := out.Close(); err != nil {
				return errors.Wrapf(err, "cannot close %s", target)
			}
		case tar.TypeSymlink, tar.TypeLink:
			// package tarballs do not legitimately carry links
			continue
		}
	}
}

// stripRoot drops the first path element of an entry name.
func stripRoot(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// securePath joins name onto dest, rejecting entries that would escape
// the destination directory.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", errors.Errorf("tarball entry %q escapes the destination", name)
	}
	return target, nil
}
