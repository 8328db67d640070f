// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package hook runs optional Starlark deploy hooks.
//
// A deploy.star file next to the configuration may define the functions
// pre_deploy(env) and post_deploy(env). Each receives a dict of strings
// describing the deployment (host, triple, bin, artifact, service_path).
// A hook that fails or returns False aborts the run.
package hook

import (
	"errors"
	"fmt"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrAborted is returned when a hook returns False, used in tests.
var ErrAborted = errors.New("aborted by hook")

var fileOptions = &syntax.FileOptions{
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Set holds the hook functions defined by a hook file.
type Set struct {
	path    string
	globals starlark.StringDict
}

// Load parses and executes the hook file at path, returning the globals it
// defines. If the file does not exist, Load returns a nil Set on which every
// hook is a no-op.
func Load(path string) (*Set, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	globals, err := starlark.ExecFileOptions(fileOptions, newThread(path), path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Set{path: path, globals: globals}, nil
}

func newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(os.Stderr, msg)
		},
	}
}

// Run calls the named hook function, if the hook file defines one, passing
// it the env dict. It returns an error wrapping ErrAborted when the hook
// returns False.
func (s *Set) Run(name string, env map[string]string) error {
	if s == nil {
		return nil
	}
	fn, ok := s.globals[name]
	if !ok {
		return nil
	}

	dict := starlark.NewDict(len(env))
	for k, v := range env {
		if err := dict.SetKey(starlark.String(k), starlark.String(v)); err != nil {
			return err
		}
	}

	v, err := starlark.Call(newThread(name), fn, starlark.Tuple{dict}, nil)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", s.path, name, err)
	}
	if v == starlark.False {
		return fmt.Errorf("%w: %s returned False", ErrAborted, name)
	}
	return nil
}
