// Package watch converts filings as they land in a directory.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/edgarsgml/pkg/convert"
)

// DefaultSettleDelay is how long a file must go without events before the
// handler sees it.
const DefaultSettleDelay = 500 * time.Millisecond

// Handler is called with the path of each created or written filing once
// writes to it have settled.
type Handler func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettleDelay sets how long a path must be quiet before the handler runs.
// Zero dispatches every event immediately.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.settle = d
		}
	}
}

// Watcher dispatches filesystem events for one directory to a Handler.
type Watcher struct {
	dir        string
	extensions []string
	handler    Handler
	logger     *zap.Logger
	settle     time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Watcher for dir. Only files whose extension is in extensions
// reach the handler.
func New(dir string, extensions []string, handler Handler, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		dir:        dir,
		extensions: extensions,
		handler:    handler,
		logger:     logger,
		settle:     DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The loop runs until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}
	if w.handler == nil {
		return fmt.Errorf("no handler configured for watching")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return fmt.Errorf("watcher for %s already started", w.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	w.watcher = watcher
	w.stopChan = make(chan struct{})
	w.wg.Add(1)
	go w.watchLoop(ctx, watcher, w.stopChan)

	w.logger.Info("Watching directory",
		zap.String("dir", w.dir),
		zap.Strings("extensions", w.extensions),
		zap.Duration("settle", w.settle),
	)
	return nil
}

// Stop closes the watcher and waits for the event loop to exit. It is safe to
// call more than once. Paths still settling are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	watcher, stopChan := w.watcher, w.stopChan
	w.mu.Unlock()
	if watcher == nil {
		return
	}

	w.stopOnce.Do(func() {
		close(stopChan)
		watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stopChan <-chan struct{}) {
	defer w.wg.Done()

	pending := newDebouncer(w.settle)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var fire <-chan time.Time
		if pending.len() > 0 {
			fire = timer.C
		}

		select {
		case <-stopChan:
			return

		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !convert.HasExtension(event.Name, w.extensions) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.logger.Debug("Filing changed",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			if w.settle == 0 {
				w.handleFileChange(ctx, event.Name)
				continue
			}
			now := time.Now()
			pending.touch(event.Name, now)
			if wait, ok := pending.next(now); ok {
				timer.Reset(wait)
			}

		case <-fire:
			now := time.Now()
			for _, path := range pending.due(now) {
				w.handleFileChange(ctx, path)
			}
			if wait, ok := pending.next(time.Now()); ok {
				timer.Reset(wait)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.String("dir", w.dir), zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileChange(ctx context.Context, path string) {
	if err := w.handler(ctx, path); err != nil {
		w.logger.Error("Handler failed", zap.String("path", path), zap.Error(err))
	}
}
