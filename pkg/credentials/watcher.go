package credentials

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var reloadDelay = time.Millisecond * 500

type watcher struct {
	fs    *fsnotify.Watcher
	delay time.Duration
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// watchFile watches the directory holding path, since the file itself is
// replaced by rename on every write.
func watchFile(path string, callback func()) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = fsw.Add(filepath.Dir(path))
	if err != nil {
		fsw.Close()
		return nil, err
	}

	w := &watcher{fs: fsw, delay: reloadDelay, done: make(chan struct{})}
	reload := make(chan struct{}, 1)
	go w.scheduleReload(reload, callback)
	go w.handleEvents(filepath.Clean(path), reload)
	return w, nil
}

func (w *watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

func (w *watcher) handleEvents(path string, reload chan<- struct{}) {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("credentials: watcher error: %v\n", err)
		case <-w.done:
			return
		}
	}
}

func (w *watcher) scheduleReload(reload <-chan struct{}, callback func()) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-reload:
			if timer != nil {
				timer.Reset(w.delay)
			} else {
				timer = time.NewTimer(w.delay)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
