package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// ErrNotWatchable is returned by Watch for sources that are not local files.
var ErrNotWatchable = errors.New("dictionary source is not a local file")

// LoadFunc builds an index from a raw source string.
type LoadFunc func(ctx context.Context, source string) (*Index, error)

// Generation is one loaded dictionary. Requests take a Generation at the
// start and keep using it even if a reload swaps in a newer one.
type Generation struct {
	Index    *Index
	Source   string
	Version  uint64
	LoadedAt time.Time
}

// Holder publishes the current dictionary generation. Reads are a single
// atomic load; concurrent reloads collapse into one.
type Holder struct {
	source string
	load   LoadFunc
	cur    atomic.Pointer[Generation]
	group  singleflight.Group
	logger *slog.Logger

	mu        sync.Mutex
	listeners []func(*Generation)
}

// NewHolder publishes idx as version 1. A nil load uses Load.
func NewHolder(source string, idx *Index, load LoadFunc) *Holder {
	if load == nil {
		load = Load
	}
	h := &Holder{
		source: source,
		load:   load,
		logger: slog.Default().With("component", "dictionary-holder"),
	}
	h.cur.Store(&Generation{
		Index:    idx,
		Source:   redact(source),
		Version:  1,
		LoadedAt: time.Now(),
	})
	return h
}

// Current returns the generation in use.
func (h *Holder) Current() *Generation {
	return h.cur.Load()
}

// Index is shorthand for Current().Index.
func (h *Holder) Index() *Index {
	return h.cur.Load().Index
}

// OnSwap registers fn to be called after each successful reload.
func (h *Holder) OnSwap(fn func(*Generation)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload loads the source again and swaps it in. On failure the previous
// generation stays in place.
func (h *Holder) Reload(ctx context.Context) (*Generation, error) {
	v, err, shared := h.group.Do("reload", func() (any, error) {
		idx, err := h.load(ctx, h.source)
		if err != nil {
			return nil, err
		}
		prev := h.cur.Load()
		gen := &Generation{
			Index:    idx,
			Source:   prev.Source,
			Version:  prev.Version + 1,
			LoadedAt: time.Now(),
		}
		h.cur.Store(gen)

		h.mu.Lock()
		listeners := append([]func(*Generation){}, h.listeners...)
		h.mu.Unlock()
		for _, fn := range listeners {
			fn(gen)
		}
		return gen, nil
	})
	if err != nil {
		h.logger.Error("dictionary reload failed", "error", err, "keeping_version", h.cur.Load().Version)
		return nil, err
	}
	gen := v.(*Generation)
	h.logger.Info("dictionary reloaded", "version", gen.Version, "words", gen.Index.Len(), "shared", shared)
	return gen, nil
}

// Watch reloads the dictionary whenever its backing file changes, waiting
// for debounce of quiet first. It blocks until ctx is done.
func (h *Holder) Watch(ctx context.Context, debounce time.Duration) error {
	src, err := ParseSource(h.source)
	if err != nil {
		return err
	}
	switch src.Kind {
	case KindFile, KindSnapshot, KindSQLite:
	default:
		return fmt.Errorf("%w: %s", ErrNotWatchable, src)
	}
	target, err := filepath.Abs(src.Location)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src.Location, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	// Watch the directory: editors and WriteSnapshot replace the file by
	// rename, which drops a watch placed on the file itself.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	h.logger.Info("watching dictionary source", "path", target, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			// Errors are logged by Reload; the old generation keeps serving.
			_, _ = h.Reload(ctx)
		}
	}
}
