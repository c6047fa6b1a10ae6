package main

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay groups the burst of events an editor produces on save.
const settleDelay = 100 * time.Millisecond

// fileWatcher calls onChange after path is written, created or renamed
// into place.
type fileWatcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// watchFile watches the directory of path, so the file may be replaced by
// a rename.
func watchFile(path string, log *slog.Logger, onChange func()) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}

	fw := &fileWatcher{w: w, done: make(chan struct{})}
	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-fw.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				log.Debug("geometry changed", "file", event.Name, "op", event.Op.String())
				if timer == nil {
					timer = time.AfterFunc(settleDelay, onChange)
				} else {
					timer.Reset(settleDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("watch", "err", err)
			}
		}
	}()
	return fw, nil
}

// Close stops watching.
func (fw *fileWatcher) Close() error {
	close(fw.done)
	err := fw.w.Close()
	fw.wg.Wait()
	return err
}
