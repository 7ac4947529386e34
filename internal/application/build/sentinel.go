package build

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// Sentinel watches for a stop file and flips a flag when it appears.
// Workers consult the flag between parent entities, never mid-entity, so a
// parent's models are always either fully written or not attempted.
type Sentinel struct {
	path    string
	watcher *fsnotify.Watcher
	stopped atomic.Bool
	done    chan struct{}
	logger  logging.Logger
}

// NewSentinel starts watching for the stop file at path.  A file already
// present when the watch starts triggers immediately.  logger may be nil.
func NewSentinel(path string, logger logging.Logger) (*Sentinel, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create stop sentinel watcher")
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "watch stop sentinel directory").WithDetail(path)
	}

	s := &Sentinel{path: path, watcher: watcher, done: make(chan struct{}), logger: logger}
	if _, err := os.Stat(path); err == nil {
		s.stopped.Store(true)
	}
	go s.loop()
	return s, nil
}

func (s *Sentinel) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == s.path && ev.Op.Has(fsnotify.Create) {
				s.logger.Info("stop sentinel detected, draining worker batches",
					logging.String("path", s.path))
				s.stopped.Store(true)
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// ShouldStop reports whether the stop file has appeared.
func (s *Sentinel) ShouldStop() bool {
	return s.stopped.Load()
}

// Close stops the watcher.
func (s *Sentinel) Close() {
	close(s.done)
	s.watcher.Close()
}
