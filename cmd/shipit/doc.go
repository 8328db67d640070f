// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Shipit builds a release binary and ships it to the host that runs it.

A deployment is three steps, performed in strict order: compile the project
for the configured target triple in release mode, copy the artifact to the
remote host with scp, and move it there with elevated privileges into the
service directory, replacing the previous binary. The first failing step
aborts the run. Host aliases, credentials and passwordless sudo are expected
to be set up externally.

# Usage

	$ shipit [flags] [project-dir]

project-dir defaults to the current directory.

# Flags

  - config: Config file (default shipit.toml inside the project directory).
  - backup: Keep a .bak of the previous remote binary before activation.
  - dry-run: Print the external commands without running them.
  - skip-build: Transfer and activate an existing artifact without
    rebuilding.
  - watch: Watch project sources and redeploy on change.

# Configuration

shipit.toml describes what to build and where to ship it:

	[build]
	triple = "x86_64-unknown-linux-musl"
	bin    = "quotebot"

	[remote]
	host         = "quotebot-host"
	service_path = "/srv/quotebot/quotebot"

# Hooks

A deploy.star file next to the configuration may define pre_deploy(env) and
post_deploy(env) functions that run around the deployment. A hook that fails
or returns False aborts the run.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
