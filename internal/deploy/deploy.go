// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package deploy implements the build, transfer and activate sequence.
//
// A deployment is three external commands run in strict order: the build
// tool compiles a release binary for the configured target triple, scp
// copies it to the remote host, and ssh moves it with elevated privileges
// into the service directory, replacing the previous binary. The first
// failing step aborts the run; nothing is retried or rolled back.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.astrophena.name/base/logger"

	"go.astrophena.name/shipit/internal/config"
	"go.astrophena.name/shipit/internal/execx"
	"go.astrophena.name/shipit/internal/hook"
)

// Possible errors, used in tests.
var (
	ErrBuildFailed    = errors.New("build failed")
	ErrNoArtifact     = errors.New("build produced no artifact")
	ErrTransferFailed = errors.New("transfer failed")
	ErrActivateFailed = errors.New("activation failed")
)

// Pipeline runs the deployment sequence.
type Pipeline struct {
	// Config is the deployment configuration. Required.
	Config *config.Config
	// Runner executes external commands. Required.
	Runner execx.Runner
	// Hooks are the optional Starlark deploy hooks. A nil Hooks skips
	// them.
	Hooks *hook.Set
	// Backup keeps a .bak copy of the previous remote binary before
	// activation overwrites it.
	Backup bool
	// SkipBuild transfers and activates an existing artifact without
	// rebuilding it.
	SkipBuild bool
	// DryRun suppresses checks that only make sense when commands
	// actually run, like the artifact existence check after the build.
	// The Runner should print commands instead of executing them.
	DryRun bool
}

// Run performs the deployment, aborting on the first failing step.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Hooks.Run("pre_deploy", p.hookEnv()); err != nil {
		return err
	}

	if !p.SkipBuild {
		if err := p.build(ctx); err != nil {
			return err
		}
	}
	if err := p.transfer(ctx); err != nil {
		return err
	}
	if err := p.activate(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "deployed",
		slog.String("host", p.Config.Remote.Host),
		slog.String("path", p.Config.Remote.ServicePath),
	)

	return p.Hooks.Run("post_deploy", p.hookEnv())
}

func (p *Pipeline) build(ctx context.Context) error {
	logger.Info(ctx, "building",
		slog.String("bin", p.Config.Build.Bin),
		slog.String("triple", p.Config.Build.Triple),
	)

	cmd := p.Config.Build.Command
	if err := p.Runner.Run(ctx, p.Config.Dir, cmd[0], cmd[1:]...); err != nil {
		return fmt.Errorf("%w (exit code %d): %v", ErrBuildFailed, execx.ExitCode(err), err)
	}

	if p.DryRun {
		return nil
	}
	// Never upload a stale artifact: a build that exited successfully but
	// left nothing at the artifact path is still a failed build.
	if _, err := os.Stat(p.Config.ArtifactPath()); err != nil {
		return fmt.Errorf("%w: %v", ErrNoArtifact, err)
	}
	return nil
}

func (p *Pipeline) transfer(ctx context.Context) error {
	logger.Info(ctx, "transferring",
		slog.String("artifact", p.Config.ArtifactPath()),
		slog.String("dest", p.Config.TransferDest()),
	)

	if err := p.Runner.Run(ctx, p.Config.Dir, "scp", p.Config.ArtifactPath(), p.Config.TransferDest()); err != nil {
		return fmt.Errorf("%w (exit code %d): %v", ErrTransferFailed, execx.ExitCode(err), err)
	}
	return nil
}

func (p *Pipeline) activate(ctx context.Context) error {
	logger.Info(ctx, "activating",
		slog.String("host", p.Config.Remote.Host),
		slog.String("path", p.Config.Remote.ServicePath),
	)

	if err := p.Runner.Run(ctx, p.Config.Dir, "ssh", "-t", p.Config.Remote.Host, p.remoteCommand()); err != nil {
		return fmt.Errorf("%w (exit code %d): %v", ErrActivateFailed, execx.ExitCode(err), err)
	}
	return nil
}

// remoteCommand builds the command the activation step runs on the remote
// host. The move relies on passwordless privilege escalation being set up
// there.
func (p *Pipeline) remoteCommand() string {
	sp := p.Config.Remote.ServicePath
	mv := fmt.Sprintf("sudo mv %s %s", p.Config.UploadedPath(), sp)
	if !p.Backup {
		return mv
	}
	return fmt.Sprintf("if [ -e %[1]s ]; then sudo cp -p %[1]s %[1]s.bak; fi && %s", sp, mv)
}

func (p *Pipeline) hookEnv() map[string]string {
	return map[string]string{
		"host":         p.Config.Remote.Host,
		"triple":       p.Config.Build.Triple,
		"bin":          p.Config.Build.Bin,
		"artifact":     p.Config.ArtifactPath(),
		"service_path": p.Config.Remote.ServicePath,
	}
}
