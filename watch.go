// watch.go: source file watching for re-run-on-save.
//
// Built on fsnotify. The watch targets the file's directory rather than the
// file itself, so editors that save via rename-and-replace keep triggering.
package zlang

import (
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile invokes onChange every time path is written or recreated, until
// the returned closer is closed. Watcher-level errors go to onError when it
// is non-nil.
func WatchFile(path string, onChange func(), onError func(error)) (io.Closer, error) {
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

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()
	return w, nil
}
