package detector

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the service when either artifact file changes on disk.
// Events are debounced because exporters usually write in several chunks.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	service  *Service
	logger   *zap.Logger
	targets  map[string]bool
	debounce time.Duration
	pending  time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

func NewWatcher(service *Service, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	targets := make(map[string]bool, 2)
	for _, p := range []string{service.opts.VectorizerPath, service.opts.ClassifierPath} {
		if abs, err := filepath.Abs(p); err == nil {
			targets[abs] = true
		}
	}
	return &Watcher{
		watcher:  fw,
		service:  service,
		logger:   service.logger.Named("watcher"),
		targets:  targets,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches the artifact directories; it does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// watch directories, not files: editors and exporters replace files by rename
	dirs := make(map[string]bool)
	for target := range w.targets {
		dirs[filepath.Dir(target)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("Cannot watch model directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.logger.Info("Watching model directory", zap.String("dir", dir))
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name, err := filepath.Abs(event.Name)
	if err != nil || !w.targets[name] {
		return
	}
	w.logger.Debug("Model artifact changed", zap.String("path", name), zap.String("op", event.Op.String()))
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	// Reload logs its own failures
	_, _ = w.service.Reload()
}
