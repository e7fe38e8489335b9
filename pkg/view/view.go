// Package view renders the public invoice pages from html/template files,
// with an optional filesystem watcher that re-parses templates on change.
package view

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Renderer holds the parsed template set for a directory of *.html files.
type Renderer struct {
	mu  sync.RWMutex
	dir string
	tpl *template.Template
}

// New parses dir/*.html eagerly so a broken template fails at startup, not on
// the first request.
func New(dir string) (*Renderer, error) {
	r := &Renderer{dir: dir}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render executes the named template into w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()
	return tpl.ExecuteTemplate(w, name, data)
}

func (r *Renderer) reload() error {
	tpl, err := template.ParseGlob(filepath.Join(r.dir, "*.html"))
	if err != nil {
		return fmt.Errorf("parse templates in %s: %w", r.dir, err)
	}
	r.mu.Lock()
	r.tpl = tpl
	r.mu.Unlock()
	return nil
}

// Watch re-parses the template directory whenever a file changes (debounced).
// A parse error keeps the previous template set. Returns a stop func.
func (r *Renderer) Watch() (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(r.dir); err != nil {
		w.Close()
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		var dirty bool
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					dirty = true
				}
			case <-ticker.C:
				if !dirty {
					continue
				}
				dirty = false
				if err := r.reload(); err != nil {
					log.Printf("template reload failed: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		w.Close()
	}, nil
}
