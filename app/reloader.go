package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/flagonhq/flagon/common"
)

const reloadDebounce = 500 * time.Millisecond

// watchForChanges halts the dev server and requests a process restart when a
// file under the root path changes. Debug mode only. The instance path and
// dotfiles are ignored, those change while serving without the code having
// changed.
func (a *App) watchForChanges(ctx context.Context, halt context.CancelFunc) {
	log := common.Logger(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Error("reloader disabled, cannot create a watcher")
		return
	}
	defer watcher.Close()

	addTree := func(root string) {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if path != root && (strings.HasPrefix(d.Name(), ".") || path == a.instancePath) {
				return fs.SkipDir
			}
			if err := watcher.Add(path); err != nil {
				log.WithError(err).WithFields(logrus.Fields{"dir": path}).Debug("cannot watch directory")
			}
			return nil
		})
	}
	addTree(a.rootPath)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
		last   string
	)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevantChange(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					addTree(event.Name)
				}
			}
			last = event.Name
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(reloadDebounce)
			}

		case <-timerC:
			log.WithFields(logrus.Fields{"file": last}).Info("Detected change, restarting")
			a.requestRestart()
			halt()
			return

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Debug("watch error")

		case <-ctx.Done():
			return
		}
	}
}

func relevantChange(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

func (a *App) requestRestart() {
	a.mu.Lock()
	a.restartPending = true
	a.mu.Unlock()
}

func (a *App) restartRequested() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.restartPending
}
