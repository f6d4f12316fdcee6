package generate

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/diagreplay/internal/replay"
)

// debounce is how long Watch waits for the directory to settle before
// regenerating.
const debounce = 200 * time.Millisecond

// Callback is called after every regeneration triggered by Watch.
type Callback func(Result, error)

// Watch regenerates out whenever a file under opts.Dir changes, until ctx is
// cancelled. Bursts of events are coalesced into one run. Hidden files and
// out itself never trigger a run.
func Watch(ctx context.Context, opts replay.Options, out string, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, opts.Dir); err != nil {
		return err
	}
	outAbs, _ := filepath.Abs(out)

	logger.Info("watcher: started", slog.String("root", opts.Dir), slog.String("out", outAbs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			res, genErr := Generate(opts, out, logger)
			if genErr != nil {
				logger.Warn("watcher: regenerate failed", slog.String("error", genErr.Error()))
			}
			if cb != nil {
				cb(res, genErr)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if abs, _ := filepath.Abs(ev.Name); abs == outAbs {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
