//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package workflow

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/toolmesh/toolmesh/log"
)

// Watcher hot-reloads manifest workflows when their files change: a new file
// loads, an edit reloads, a removal unloads. Events are handled on a single
// goroutine, so lifecycle callbacks for one path never overlap.
type Watcher struct {
	loader  *Loader
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching dir for workflow manifests. Existing manifests are
// registered and loaded before the event loop starts.
func (l *Loader) Watch(ctx context.Context, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{loader: l, watcher: fsw, done: make(chan struct{})}

	matches, err := filepath.Glob(filepath.Join(dir, "*.y*ml"))
	if err == nil {
		for _, path := range matches {
			w.handleCreate(ctx, path)
		}
	}

	go w.run(ctx)
	log.Infof("watching %s for workflow manifests", dir)
	return w, nil
}

// Close stops the watcher. Loaded workflows stay loaded.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("workflow watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !isManifestPath(event.Name) {
		return
	}
	switch {
	case event.Op.Has(fsnotify.Create):
		w.handleCreate(ctx, event.Name)
	case event.Op.Has(fsnotify.Write):
		sourceID := sourceIDForPath(event.Name)
		log.Infof("workflow manifest changed, reloading %q", sourceID)
		if err := w.loader.Reload(ctx, sourceID); err != nil {
			log.Errorf("reload %q: %v", sourceID, err)
		}
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		sourceID := sourceIDForPath(event.Name)
		log.Infof("workflow manifest removed, unloading %q", sourceID)
		if err := w.loader.Unload(ctx, sourceID); err != nil {
			log.Errorf("unload %q: %v", sourceID, err)
		}
	}
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	sourceID := sourceIDForPath(path)
	w.loader.RegisterSource(sourceID, ManifestFactory(path))
	if err := w.loader.Load(ctx, sourceID); err != nil {
		log.Errorf("load %q: %v", sourceID, err)
	}
}

func isManifestPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// sourceIDForPath derives the stable source identifier from the file name.
func sourceIDForPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
