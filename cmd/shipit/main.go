// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"go.astrophena.name/base/cli"

	"go.astrophena.name/shipit/internal/config"
	"go.astrophena.name/shipit/internal/deploy"
	"go.astrophena.name/shipit/internal/execx"
	"go.astrophena.name/shipit/internal/hook"
)

func main() { cli.Main(new(app)) }

type app struct {
	config    string
	backup    bool
	dryRun    bool
	skipBuild bool
	watch     bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.config, "config", "", "Config `file` (default shipit.toml inside the project directory).")
	fs.BoolVar(&a.backup, "backup", false, "Keep a .bak of the previous remote binary before activation.")
	fs.BoolVar(&a.dryRun, "dry-run", false, "Print the external commands without running them.")
	fs.BoolVar(&a.skipBuild, "skip-build", false, "Transfer and activate an existing artifact without rebuilding.")
	fs.BoolVar(&a.watch, "watch", false, "Watch project sources and redeploy on change.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	dir := "."
	if len(env.Args) > 0 {
		dir = env.Args[0]
	}
	if len(env.Args) > 1 {
		return fmt.Errorf("%w: want at most one project directory", cli.ErrInvalidArgs)
	}

	cfgPath := a.config
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, "shipit.toml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg.Dir = dir

	hooks, err := hook.Load(filepath.Join(dir, "deploy.star"))
	if err != nil {
		return err
	}

	var runner execx.Runner = execx.Exec{}
	if a.dryRun {
		runner = execx.DryRun{}
	}

	p := &deploy.Pipeline{
		Config:    cfg,
		Runner:    runner,
		Hooks:     hooks,
		Backup:    a.backup,
		SkipBuild: a.skipBuild,
		DryRun:    a.dryRun,
	}

	if a.watch {
		return deploy.Watch(ctx, p)
	}
	return p.Run(ctx)
}
