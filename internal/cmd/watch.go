package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce groups the burst of events a single rewrite produces.
const watchDebounce = 100 * time.Millisecond

// imageWatcher calls onChange after the watched file was written, created or
// renamed into place.
type imageWatcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// watchImage watches the directory of path so editors and tools replacing
// the file atomically are noticed as well.
func watchImage(path string, logger *slog.Logger, onChange func()) (*imageWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	iw := &imageWatcher{w: w, done: make(chan struct{})}
	iw.wg.Add(1)
	go iw.run(abs, logger, onChange)
	logger.Info("watching eeprom image", "path", abs)
	return iw, nil
}

func (iw *imageWatcher) run(path string, logger *slog.Logger, onChange func()) {
	defer iw.wg.Done()
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-iw.done:
			return
		case <-timer.C:
			onChange()
		case ev, ok := <-iw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				logger.Debug("eeprom image changed", "op", ev.Op.String())
				timer.Reset(watchDebounce)
			}
		case err, ok := <-iw.w.Errors:
			if !ok {
				return
			}
			logger.Warn("eeprom image watch error", "error", err)
		}
	}
}

// Close stops watching and waits for a pending callback to return.
func (iw *imageWatcher) Close() error {
	close(iw.done)
	err := iw.w.Close()
	iw.wg.Wait()
	return err
}
