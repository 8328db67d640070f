// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package deploy

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/base/logger"

	"github.com/fsnotify/fsnotify"
)

var watchReadyHook func() // used in tests, called when Watch started watching

// debouncer delays execution of a function until a specified duration has
// passed without any new events.
type debouncer struct {
	d  time.Duration
	mu sync.Mutex
	f  func()
	t  *time.Timer
}

// newDebouncer creates a new debouncer.
func newDebouncer(d time.Duration, f func()) *debouncer {
	return &debouncer{
		d: d,
		f: f,
	}
}

// Do schedules a function to be executed.
func (d *debouncer) Do() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.t != nil {
		d.t.Stop()
	}

	d.t = time.AfterFunc(d.d, d.f)
}

// Watch deploys once, then redeploys whenever the watched project paths
// change. A failed deploy is logged and watching continues; Watch returns
// when ctx is canceled.
func Watch(ctx context.Context, p *Pipeline) error {
	logger.Info(ctx, "performing an initial deploy")
	if err := p.Run(ctx); err != nil {
		logger.Error(ctx, "initial deploy failed", slog.Any("err", err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, wp := range p.Config.Watch.Paths {
		if err := watchRecursive(watcher, filepath.Join(p.Config.Dir, wp)); err != nil {
			return err
		}
	}

	redeploy := func() {
		logger.Info(ctx, "triggering deploy")
		if err := p.Run(ctx); err != nil {
			logger.Error(ctx, "deploy failed", slog.Any("err", err))
		}
	}
	// It's better to have a bit of delay, so that we don't start a deploy
	// on each keystroke.
	debouncer := newDebouncer(500*time.Millisecond, redeploy)

	logger.Info(ctx, "started watching for new changes")
	if watchReadyHook != nil {
		watchReadyHook()
	}

	for {
		select {
		case event := <-watcher.Events:
			if !shouldRedeploy(event.Name, event.Op) {
				continue
			}
			logger.Info(ctx, "detected change, scheduling deploy",
				slog.String("name", event.Name),
				slog.Any("op", event.Op),
			)
			debouncer.Do()
		case err := <-watcher.Errors:
			logger.Error(ctx, "watch error", slog.Any("err", err))
		case <-ctx.Done():
			return nil
		}
	}
}

// watchRecursive adds the path and, if it is a directory, every directory
// below it to the watcher. Watching a directory covers the files inside it,
// so only a path that is itself a plain file (like Cargo.toml) is added
// directly.
func watchRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == root {
			return w.Add(path)
		}
		return nil
	})
}

// Copied from
// https://github.com/brandur/modulir/blob/1ff912fdc45a79cb4d8d9f199d213ae9c3598cbd/watch.go#L201.
func shouldRedeploy(path string, op fsnotify.Op) bool {
	base := filepath.Base(path)

	// Mac OS' worst mistake.
	if base == ".DS_Store" {
		return false
	}

	// Vim creates this temporary file to see whether it can write into a
	// target directory. It screws up our watching algorithm, so ignore it.
	if base == "4913" {
		return false
	}

	// A special case, but ignore creates on files that look like Vim
	// backups.
	if strings.HasSuffix(base, "~") {
		return false
	}

	if op&fsnotify.Create != 0 {
		return true
	}

	if op&fsnotify.Remove != 0 {
		return true
	}

	if op&fsnotify.Write != 0 {
		return true
	}

	/*
		Ignore everything else. Rationale:

		* chmod: we don't really care about these as they won't affect the
		artifact (unless potentially we no longer can read the file, but
		we'll go down that path if it ever becomes a problem).

		* rename: will produce a following create event as well, so just
		listen for that instead.
	*/
	return false
}
