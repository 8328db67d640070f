// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package execx runs external commands on behalf of the deployment pipeline.
//
// The pipeline never captures or reformats tool output: everything the build
// tool, scp and ssh print goes verbatim to the invoking terminal. Stdin is
// connected too, so interactive remote sessions (ssh -t) work.
package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands.
type Runner interface {
	// Run executes a command in dir, blocking until it exits. A non-zero
	// exit is reported as an error.
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Exec is a Runner that actually executes commands, with the standard
// streams of the invoking process attached.
type Exec struct{}

// Run implements the Runner interface.
func (Exec) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// DryRun is a Runner that prints each command instead of executing it.
type DryRun struct {
	// W is where commands are printed. If nil, os.Stderr is used.
	W io.Writer
}

// Run implements the Runner interface.
func (d DryRun) Run(_ context.Context, _, name string, args ...string) error {
	w := d.W
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, "+ "+strings.Join(append([]string{name}, args...), " "))
	return nil
}

// ExitCode returns the exit code recorded in an error returned by a Runner:
// 0 for nil, the process exit code for a command that ran and failed, and -1
// for a command that failed to run at all.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
