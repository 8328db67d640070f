// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package hook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func load(t *testing.T, contents string) *Set {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.star")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "deploy.star"))
	if err != nil {
		t.Fatal(err)
	}
	if s != nil {
		t.Fatalf("want a nil Set for a missing hook file, got %v", s)
	}
	// Every hook on a nil Set is a no-op.
	if err := s.Run("pre_deploy", nil); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.star")
	if err := os.WriteFile(path, []byte("def pre_deploy(\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want an error for a hook file that doesn't parse")
	}
}

func TestRun(t *testing.T) {
	env := map[string]string{
		"host":         "quotebot-host",
		"service_path": "/srv/quotebot/quotebot",
	}

	cases := map[string]struct {
		contents   string
		hook       string
		wantErr    error
		wantAnyErr bool
	}{
		"undefined hook is skipped": {
			contents: "def post_deploy(env):\n    pass\n",
			hook:     "pre_deploy",
		},
		"hook returning None succeeds": {
			contents: "def pre_deploy(env):\n    pass\n",
			hook:     "pre_deploy",
		},
		"hook returning True succeeds": {
			contents: "def pre_deploy(env):\n    return env['host'] == 'quotebot-host'\n",
			hook:     "pre_deploy",
		},
		"hook returning False aborts": {
			contents: "def pre_deploy(env):\n    return env['host'] == 'other-host'\n",
			hook:     "pre_deploy",
			wantErr:  ErrAborted,
		},
		"failing hook reports an error": {
			contents:   "def pre_deploy(env):\n    fail('no deploys on fridays')\n",
			hook:       "pre_deploy",
			wantAnyErr: true,
		},
		"hook sees the whole env": {
			contents: "def post_deploy(env):\n    return env['service_path'] == '/srv/quotebot/quotebot'\n",
			hook:     "post_deploy",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := load(t, tc.contents)
			err := s.Run(tc.hook, env)

			if tc.wantAnyErr {
				if err == nil {
					t.Fatal("want an error")
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRunNonFunction(t *testing.T) {
	s := load(t, "pre_deploy = 42\n")
	if err := s.Run("pre_deploy", nil); err == nil {
		t.Fatal("want an error when the hook is not a function")
	}
}
