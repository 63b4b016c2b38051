package fontgen

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/lavoro/engine/core"
)

/**
 * @brief Watches a font directory and regenerates a prewarm glyph set when
 * a font file is added or rewritten, so edited fonts show up without a
 * restart. The regenerated batches flow through the same job scheduler as
 * any other glyph work.
 *
 * Submissions happen from the watcher goroutine, so the scheduler must be
 * running with worker threads; the zero-worker configuration has no lock to
 * serialize against.
 */
type Watcher struct {
	generator *Generator
	fsnotify  *fsnotify.Watcher

	prewarm  string
	callback GlyphSetCallback

	done     chan struct{}
	isClosed bool
}

func NewWatcher(generator *Generator, dir, prewarmText string, callback GlyphSetCallback) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		generator: generator,
		fsnotify:  fsWatch,
		prewarm:   prewarmText,
		callback:  callback,
		done:      make(chan struct{}),
	}

	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go w.start()
	return w, nil
}

func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

func (w *Watcher) start() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isFontFile(e.Name) {
				continue
			}
			if s, err := os.Stat(e.Name); err != nil || s.IsDir() {
				continue
			}

			core.LogInfo("fontgen: %s changed, regenerating glyphs", e.Name)
			if err := w.generator.LoadFont(e.Name); err != nil {
				core.LogError("fontgen: reloading %s: %v", e.Name, err)
				continue
			}
			if _, err := w.generator.GenerateGlyphs(w.prewarm, w.callback); err != nil {
				core.LogError("fontgen: regenerating glyphs: %v", err)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("fontgen: watcher: %v", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	close(w.done)
	return w.fsnotify.Close()
}
