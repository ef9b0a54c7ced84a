// Package lifecycle runs the shell scripts packages associate with
// install phases. It is the default ScriptRunner the installer consumes.
package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mikeaddison93/npm/installer"
)

// DefaultTimeout bounds one lifecycle script invocation.
const DefaultTimeout = 10 * time.Minute

// Runner shells out package lifecycle scripts. The zero value is usable.
type Runner struct {
	Out     *log.Logger
	Debug   logrus.FieldLogger
	Timeout time.Duration

	// Env is appended to the process environment of every script.
	Env []string
}

// RunLifecycle executes the package's script for phase with realpath as
// the working directory. A package that declares no script for the
// phase is a no-op. A script exiting non-zero or overrunning the
// timeout yields a LifecycleError.
func (r *Runner) RunLifecycle(ctx context.Context, phase string, pkg *installer.Package, realpath string) error {
	script, ok := pkg.Scripts[phase]
	if !ok || script == "" {
		return nil
	}
	if r.Out != nil {
		r.Out.Printf("> %s@%s %s: %s", pkg.Name, pkg.Version, phase, script)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := exec.CommandContext(ctx, "sh", "-c", script)
	command.Dir = realpath
	command.Env = append(os.Environ(), r.scriptEnv(phase, pkg, realpath)...)
	// Scripts get their own process group so an interrupt aimed at the
	// installer does not tear them down mid-write.
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// On timeout the whole group is killed, so processes the shell forked
	// cannot hold the output pipes open past the deadline.
	command.Cancel = func() error {
		return syscall.Kill(-command.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if r.Debug != nil {
		r.Debug.WithFields(logrus.Fields{
			"phase":   phase,
			"package": pkg.Name,
			"err":     err,
		}).Debug(stdout.String())
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Errorf("script timed out after %s", timeout)
		} else if stderr.Len() > 0 {
			err = errors.Wrap(err, stderr.String())
		}
		return &installer.LifecycleError{Phase: phase, Package: pkg.Name, Err: err}
	}
	if r.Out != nil && stdout.Len() > 0 {
		r.Out.Print(stdout.String())
	}
	return nil
}

func (r *Runner) scriptEnv(phase string, pkg *installer.Package, realpath string) []string {
	env := []string{
		"npm_lifecycle_event=" + phase,
		"npm_package_name=" + pkg.Name,
		"npm_package_version=" + pkg.Version,
		fmt.Sprintf("PATH=%s%c%s", filepath.Join(realpath, "node_modules", ".bin"), os.PathListSeparator, os.Getenv("PATH")),
	}
	return append(env, r.Env...)
}
