// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"text/tabwriter"

	npm "github.com/mikeaddison93/npm"
	"github.com/mikeaddison93/npm/internal/fs"
	"github.com/mikeaddison93/npm/internal/logging"
)

var (
	successExitCode = 0
	errorExitCode   = 1
)

type command interface {
	Name() string           // "install"
	Args() string           // "[<spec>...]"
	ShortHelp() string      // "Install packages into the project"
	LongHelp() string       // "Install packages meeting the following conditions..."
	Register(*flag.FlagSet) // command-specific flags
	Hidden() bool           // indicates whether the command should be hidden from help output
	Run(*npm.Ctx, []string) error
}

func main() {
	p := &profile{}
	flag.StringVar(&p.cpuProfile, "cpuprofile", "", "Writes a CPU profile to the specified file before exiting.")
	flag.StringVar(&p.memProfile, "memprofile", "", "Writes a memory profile to the specified file before exiting.")
	flag.IntVar(&p.memProfileRate, "memprofilerate", 0, "Enable more precise memory profiles by setting runtime.MemProfileRate.")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory", err)
		os.Exit(1)
	}

	args := append([]string{os.Args[0]}, flag.Args()...)
	c := &Config{
		Args:       args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
		Env:        os.Environ(),
	}

	if err := p.start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to profile: %v\n", err)
		os.Exit(1)
	}
	exit := c.Run()
	if err := p.finish(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to finish the profile: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exit)
}

// A Config specifies a full configuration for an npm execution.
type Config struct {
	WorkingDir     string    // Where to execute
	Args           []string  // Command-line arguments, starting with the program name.
	Env            []string  // Environment variables
	Stdout, Stderr io.Writer // Log output
}

// Run executes a configuration and returns an exit code.
func (c *Config) Run() int {
	commands := [...]command{
		&installCommand{},
		&versionCommand{},
	}

	examples := [...][2]string{
		{
			"npm install",
			"install the project's dependencies",
		},
		{
			"npm install left-pad@^1.0.0",
			"add a dependency to the project",
		},
		{
			"npm install -production",
			"install without devDependencies",
		},
	}

	outLogger := log.New(c.Stdout, "", 0)
	errLogger := log.New(c.Stderr, "", 0)

	usage := func(w io.Writer) {
		fmt.Fprintln(w, "Npm installs packages into a project's dependency tree")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Usage: \"npm [command]\"")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands:")
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, cmd := range commands {
			if !cmd.Hidden() {
				fmt.Fprintf(tw, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
			}
		}
		tw.Flush()
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Examples:")
		for _, example := range examples {
			fmt.Fprintf(tw, "\t%s\t%s\n", example[0], example[1])
		}
		tw.Flush()
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Use \"npm help [command]\" for more information about a command.")
	}

	cmdName, printCommandHelp, exit := parseArgs(c.Args)
	if exit {
		usage(c.Stderr)
		return errorExitCode
	}

	for _, cmd := range commands {
		if cmd.Name() == cmdName {
			flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
			flags.SetOutput(c.Stderr)
			verbose := flags.Bool("v", false, "enable verbose logging")

			cmd.Register(flags)

			resetUsage(errLogger, flags, cmdName, cmd.Args(), cmd.LongHelp())

			if printCommandHelp {
				flags.Usage()
				return errorExitCode
			}

			if err := flags.Parse(c.Args[2:]); err != nil {
				return errorExitCode
			}

			// Cachedir is loaded from env if present; it also hosts the
			// run's debug log.
			cachedir := getEnv(c.Env, "NPMCACHEDIR")
			if cachedir != "" {
				if err := fs.EnsureDir(cachedir, 0777); err != nil {
					errLogger.Printf("npm: $NPMCACHEDIR set to an invalid or inaccessible path: %q\n", cachedir)
					errLogger.Printf("npm: failed to ensure cache directory: %v\n", err)
					return errorExitCode
				}
			}
			if err := logging.Setup(cachedir, *verbose); err != nil {
				errLogger.Printf("npm: debug logging unavailable: %v\n", err)
			}

			ctx := &npm.Ctx{
				Out:            outLogger,
				Err:            errLogger,
				Verbose:        *verbose,
				DisableLocking: getEnv(c.Env, "NPMNOLOCK") != "",
				Cachedir:       cachedir,
			}
			if err := ctx.SetPaths(c.WorkingDir); err != nil {
				errLogger.Printf("npm: %v\n", err)
				return errorExitCode
			}

			if err := cmd.Run(ctx, flags.Args()); err != nil {
				errLogger.Printf("%v\n", err)
				if logging.LogPath != "" {
					errLogger.Printf("A complete log of this run can be found in %s\n", logging.LogPath)
				}
				return errorExitCode
			}

			return successExitCode
		}
	}

	errLogger.Printf("npm: %s: no such command\n", cmdName)
	usage(c.Stderr)
	return errorExitCode
}

func resetUsage(logger *log.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		// Default-empty string vars should read "(default: <none>)"
		// rather than the comparatively ugly "(default: )".
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Printf("Usage: npm %s %s\n", name, args)
		logger.Println()
		logger.Println(strings.TrimSpace(longHelp))
		logger.Println()
		if hasFlags {
			logger.Println("Flags:")
			logger.Println()
			logger.Println(flagBlock.String())
		}
	}
}

// parseArgs determines the name of the npm command and whether the user
// asked for help to be printed.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func() bool {
		return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg() {
			exit = true
		} else {
			cmdName = args[1]
		}
	default:
		if isHelpArg() {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}

// getEnv returns the last instance of an environment variable.
func getEnv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		v := env[i]
		kv := strings.SplitN(v, "=", 2)
		if kv[0] == key {
			if len(kv) > 1 {
				return kv[1]
			}
			return ""
		}
	}
	return ""
}

type profile struct {
	cpuProfile string

	memProfile     string
	memProfileRate int

	f *os.File // file to write the profiling output to
}

func (p *profile) start() error {
	switch {
	case p.cpuProfile != "":
		if err := p.createOutput(p.cpuProfile); err != nil {
			return err
		}
		return pprof.StartCPUProfile(p.f)
	case p.memProfile != "":
		if p.memProfileRate > 0 {
			runtime.MemProfileRate = p.memProfileRate
		}
		return p.createOutput(p.memProfile)
	}
	return nil
}

func (p *profile) finish() error {
	if p.f == nil {
		return nil
	}
	switch {
	case p.cpuProfile != "":
		pprof.StopCPUProfile()
	case p.memProfile != "":
		if err := pprof.WriteHeapProfile(p.f); err != nil {
			return err
		}
	}
	return p.f.Close()
}

func (p *profile) createOutput(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	p.f = f
	return nil
}
