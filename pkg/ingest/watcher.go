package ingest

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds file system events into a Synchronizer. Only the
// custom tree is watched: it is the only tree live rescans accept, so
// watching core and contrib would just burn inotify descriptors.
//
// All events are handled on a single goroutine, which is what makes
// back-to-back rescans of one file safe: replaceFile calls apply in
// observation order, so the index always ends up reflecting the last
// observed content.
type Watcher struct {
	fsw  *fsnotify.Watcher
	sync *Synchronizer
	done chan struct{}
}

// NewWatcher creates a watcher over the synchronizer's custom tree.
func NewWatcher(sync *Synchronizer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fsw: fsw, sync: sync, done: make(chan struct{})}, nil
}

// Start adds recursive watches and begins processing events. A missing
// custom tree is not an error; there is just nothing to watch.
func (w *Watcher) Start() error {
	root := filepath.Join(w.sync.root, "modules", "custom")
	if _, err := os.Stat(root); err != nil {
		log.Printf("watch: no custom tree at %s, live rescans off", root)
	} else if err := w.addTree(root); err != nil {
		return err
	}
	go w.run()
	return nil
}

// Stop closes the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.fsw.Close()
	<-w.done
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if werr := w.fsw.Add(path); werr != nil {
				log.Printf("watch: cannot watch %s: %v", path, werr)
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// New directories need their own watches.
			if err := w.addTree(ev.Name); err != nil {
				log.Printf("watch: %v", err)
			}
			return
		}
		w.sync.OnPathChanged(ev.Name)
	case ev.Op.Has(fsnotify.Write):
		w.sync.OnPathChanged(ev.Name)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.sync.OnPathDeleted(ev.Name)
	}
}
