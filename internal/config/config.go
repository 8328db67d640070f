// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads the deployment configuration from a shipit.toml file.
package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Possible errors, used in tests.
var (
	ErrMissingTriple      = errors.New("missing build.triple")
	ErrMissingBin         = errors.New("missing build.bin")
	ErrMissingHost        = errors.New("missing remote.host")
	ErrMissingServicePath = errors.New("missing remote.service_path")
)

// Config represents a deployment configuration.
type Config struct {
	// Build configures the build step.
	Build Build `toml:"build"`
	// Remote configures the transfer and activation steps.
	Remote Remote `toml:"remote"`
	// Watch configures which paths trigger a redeploy in watch mode.
	Watch Watch `toml:"watch"`

	// Dir is the project directory. It is set by the caller, not read from
	// the config file.
	Dir string `toml:"-"`
}

// Build configures the build step.
type Build struct {
	// Triple is the target triple to compile for, e.g.
	// "x86_64-unknown-linux-musl".
	Triple string `toml:"triple"`
	// Bin is the name of the produced executable.
	Bin string `toml:"bin"`
	// Command overrides the build command. If empty, the default
	// "cargo build --release --target <triple>" is used.
	Command []string `toml:"command"`
	// Artifact overrides the artifact path, relative to the project
	// directory. If empty, it is derived from the target triple and the
	// binary name.
	Artifact string `toml:"artifact"`
}

// Remote configures the transfer and activation steps.
type Remote struct {
	// Host is the ssh host alias of the machine to deploy to. Credentials
	// and key trust come from the ssh configuration, not from us.
	Host string `toml:"host"`
	// Dir is the remote directory to upload the artifact into. If empty,
	// the artifact lands in the remote home directory.
	Dir string `toml:"dir"`
	// ServicePath is the path the process supervisor on the remote host
	// runs the executable from. Activation moves the uploaded artifact
	// there.
	ServicePath string `toml:"service_path"`
}

// Watch configures watch mode.
type Watch struct {
	// Paths are files or directories, relative to the project directory,
	// whose changes trigger a redeploy. If empty, "src" and "Cargo.toml"
	// are watched.
	Paths []string `toml:"paths"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.setDefaults()
	return &c, nil
}

func (c *Config) validate() error {
	if c.Build.Triple == "" {
		return ErrMissingTriple
	}
	if c.Build.Bin == "" {
		return ErrMissingBin
	}
	if c.Remote.Host == "" {
		return ErrMissingHost
	}
	if c.Remote.ServicePath == "" {
		return ErrMissingServicePath
	}
	return nil
}

func (c *Config) setDefaults() {
	if len(c.Build.Command) == 0 {
		c.Build.Command = []string{"cargo", "build", "--release", "--target", c.Build.Triple}
	}
	if c.Build.Artifact == "" {
		c.Build.Artifact = filepath.Join("target", c.Build.Triple, "release", c.Build.Bin)
	}
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{"src", "Cargo.toml"}
	}
}

// ArtifactPath returns the local path of the build artifact.
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.Dir, c.Build.Artifact)
}

// TransferDest returns the scp destination for the transfer step.
func (c *Config) TransferDest() string {
	return c.Remote.Host + ":" + c.Remote.Dir
}

// UploadedPath returns the path of the uploaded artifact on the remote host,
// as seen from a remote session that starts in the home directory.
func (c *Config) UploadedPath() string {
	name := filepath.Base(c.Build.Artifact)
	if c.Remote.Dir == "" {
		return name
	}
	// Remote paths are always slash-separated.
	return path.Join(c.Remote.Dir, name)
}
