// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fs provides filesystem helpers shared across the installer.
package fs

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// EnsureDir creates dir with the given permissions if it does not exist.
func EnsureDir(dir string, perm os.FileMode) error {
	fi, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return errors.Wrapf(os.MkdirAll(dir, perm), "failed to create directory %s", dir)
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// RenameWithFallback renames src to dst, falling back to a copy and
// remove when the rename crosses filesystems.
func RenameWithFallback(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !crossDeviceError(err) {
		return errors.Wrapf(err, "cannot rename %s to %s", src, dst)
	}

	if fi.IsDir() {
		if err := CopyDir(src, dst); err != nil {
			return err
		}
	} else {
		if err := CopyFile(src, dst); err != nil {
			return err
		}
	}
	return errors.Wrapf(os.RemoveAll(src), "cannot remove %s after copy", src)
}

func crossDeviceError(err error) bool {
	le, ok := err.(*os.LinkError)
	if !ok {
		return false
	}
	return le.Err == syscall.EXDEV
}

// CopyDir recursively copies the directory tree at src to dst,
// preserving file modes. dst must not already exist.
func CopyDir(src, dst string) error {
	src = filepath.Clean(src)
	dst = filepath.Clean(dst)

	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	if !fi.IsDir() {
		return errors.Errorf("source %s is not a directory", src)
	}
	if err := os.MkdirAll(dst, fi.Mode()); err != nil {
		return errors.Wrapf(err, "cannot create directory %s", dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "cannot read directory %s", src)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			target, err := os.Readlink(srcPath)
			if err != nil {
				return errors.Wrapf(err, "cannot read symlink %s", srcPath)
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return errors.Wrapf(err, "cannot create symlink %s", dstPath)
			}
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies the file at src to dst, preserving its mode.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "cannot copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %s", dst)
	}

	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	return errors.Wrapf(os.Chmod(dst, fi.Mode()), "cannot chmod %s", dst)
}
