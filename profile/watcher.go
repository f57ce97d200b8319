package profile

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ambrel/patchbay"
)

// Watcher reloads a profile whenever its directory changes, so a running
// tool picks up edited selections without restarting.  Reloads that fail
// to load or resolve keep the previous selection map; the error is logged
// and the callbacks stay silent.
type Watcher struct {
	loader  *Loader
	profile string
	logger  *zap.Logger

	mu        sync.RWMutex
	current   *patchbay.SelectionMap
	callbacks []func(*patchbay.SelectionMap)

	fs     *fsnotify.Watcher
	stopCh chan struct{}
	done   chan struct{}
}

// debounceDelay coalesces the event bursts editors produce when saving.
const debounceDelay = 250 * time.Millisecond

// NewWatcher loads the named profile and starts watching the loader's
// directory for changes to it.  A nil logger disables logging.  Close the
// watcher to stop it.
func NewWatcher(loader *Loader, profile string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	initial, err := loader.Load(profile)
	if err != nil {
		return nil, err
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("profile watcher: %w", err)
	}
	if err := fs.Add(loader.dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("profile watcher: %w", err)
	}
	w := &Watcher{
		loader:  loader,
		profile: profile,
		logger:  logger,
		current: initial,
		fs:      fs,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.watchLoop()
	logger.Info("profile watching enabled",
		zap.String("profile", profile),
		zap.String("dir", loader.dir),
	)
	return w, nil
}

// Current returns the most recently loaded selection map.
func (w *Watcher) Current() *patchbay.SelectionMap {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked with the new selection map after
// every successful reload.  Callbacks run on the watcher goroutine.
func (w *Watcher) OnChange(fn func(*patchbay.SelectionMap)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// Close stops the watcher.  It is safe to call more than once.
func (w *Watcher) Close() error {
	select {
	case <-w.stopCh:
		return nil
	default:
	}
	close(w.stopCh)
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if ext := filepath.Ext(event.Name); ext != ".yaml" && ext != ".yml" {
				continue
			}
			w.logger.Debug("profile file changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("profile watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	sel, err := w.loader.Load(w.profile)
	if err != nil {
		w.logger.Error("profile reload failed, keeping previous selections",
			zap.String("profile", w.profile),
			zap.Error(err),
		)
		return
	}
	w.mu.Lock()
	unchanged := w.current.Equal(sel)
	if !unchanged {
		w.current = sel
	}
	callbacks := append([]func(*patchbay.SelectionMap){}, w.callbacks...)
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("profile unchanged after reload", zap.String("profile", w.profile))
		return
	}
	w.logger.Info("profile reloaded", zap.String("profile", w.profile))
	for _, fn := range callbacks {
		fn(sel)
	}
}
