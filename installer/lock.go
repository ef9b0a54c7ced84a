// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/mikeaddison93/npm/internal/fs"
)

// lockAcquireTimeout bounds how long an install waits for another
// process to release the target location.
const lockAcquireTimeout = 30 * time.Second

// FileLock is a process-coordinated exclusive advisory lock keyed by a
// directory and a name within it.
type FileLock struct {
	path string
	name string
	fl   *flock.Flock
}

// Lock acquires the exclusive lock keyed by (path, name), waiting up to
// lockAcquireTimeout for a holder to release it. It fails with a
// LockError when the lock cannot be taken.
func Lock(ctx context.Context, path, name string) (*FileLock, error) {
	if err := fs.EnsureDir(path, 0755); err != nil {
		return nil, &LockError{Path: path, Name: name, Err: err}
	}

	lockfile := filepath.Join(path, strings.TrimPrefix(name, ".")+".lock")
	fl := flock.New(lockfile)

	ctx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()
	ok, err := fl.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, &LockError{Path: path, Name: name, Err: err}
	}
	if !ok {
		return nil, &LockError{Path: path, Name: name, Err: errors.New("lock is held by another process")}
	}
	return &FileLock{path: path, name: name, fl: fl}, nil
}

// Unlock releases the lock. It is safe to call once per acquired lock on
// every exit path; a failure here must never mask a primary error.
func (l *FileLock) Unlock() error {
	return errors.Wrapf(l.fl.Unlock(), "failed to unlock %s for %s", l.path, l.name)
}
