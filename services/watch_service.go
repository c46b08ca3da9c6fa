package services

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/parishlabs/discern/store"
)

// StoreWatcher watches the data directory and reloads a note store when
// its backing file is written by something other than this process (a
// second server instance, a manual edit, a restore). The race is
// resolved as last write wins; the reload just keeps this process from
// serving a view older than the file.
type StoreWatcher struct {
	dir    string
	stores map[string]*store.NoteStore // filename -> store
}

// NewStoreWatcher registers the stores to watch. Each store's file is
// derived from its storage key, matching FileStorage's layout.
func NewStoreWatcher(dir string, stores ...*store.NoteStore) *StoreWatcher {
	byFile := make(map[string]*store.NoteStore, len(stores))
	for _, s := range stores {
		byFile[s.Key()+".json"] = s
	}
	return &StoreWatcher{dir: dir, stores: byFile}
}

// Watch blocks until the context is cancelled, reloading stores as
// their files change.
func (w *StoreWatcher) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				noteStore, registered := w.stores[filepath.Base(event.Name)]
				if !registered {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: %s changed on disk, reloading", event.Name)
					noteStore.Reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := watcher.Add(w.dir); err != nil {
		log.Printf("WATCHER ERROR: Failed to watch %s: %v", w.dir, err)
		return
	}
	log.Printf("WATCHER: Watching data directory: %s", w.dir)

	<-ctx.Done()
	log.Println("WATCHER: Context cancelled, shutting down watcher.")
}
