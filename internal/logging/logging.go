// Package logging owns the run-stamped debug log every install writes.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// RunID uniquely identifies this process run; it is stamped into the
// debug log path and available for diagnostics.
var RunID = xid.New().String()

// LogPath is where the debug log landed; empty until Setup succeeds.
var LogPath string

var debug = newDiscard()

func newDiscard() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return lg
}

// Debug returns the process debug logger. Before Setup it discards
// everything.
func Debug() logrus.FieldLogger { return debug }

// Setup directs the debug logger at a run-stamped file below cachedir,
// or below the user cache directory when cachedir is empty. Failures
// leave the discard logger in place; a missing log file is never fatal.
func Setup(cachedir string, verbose bool) error {
	if cachedir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		cachedir = filepath.Join(home, ".npm-cache")
	}

	logPath := filepath.Join(cachedir, "logs",
		fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02-150405"), RunID))
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	LogPath = logPath

	lg := logrus.New()
	lg.SetOutput(f)
	lg.SetLevel(logrus.DebugLevel)
	lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		lg.SetOutput(io.MultiWriter(f, os.Stderr))
	}
	debug = lg
	return nil
}
