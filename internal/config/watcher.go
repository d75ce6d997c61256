package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// Watcher reloads the config file when it changes on disk
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	logger    hclog.Logger

	Changes chan *Config
	Errors  chan error
	done    chan struct{}
	stopped chan struct{}
	started atomic.Bool
	once    sync.Once
}

// NewWatcher watches the directory holding path, so editors that replace the
// file by rename are still seen.
func NewWatcher(path string, logger hclog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		path:      abs,
		logger:    logger,
		Changes:   make(chan *Config, 1),
		Errors:    make(chan error, 10),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}, nil
}

// Start begins watching for file changes
func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.watchLoop()
	}
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		if w.started.Load() {
			<-w.stopped
		}
	})
	return err
}

// watchLoop handles fsnotify events
func (w *Watcher) watchLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

// handleFSEvent reloads on writes to, or creation of, the config file
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid config change", "path", w.path, "error", err)
		w.report(err)
		return
	}

	w.logger.Info("config reloaded", "path", w.path)

	// Keep only the newest config
	select {
	case <-w.Changes:
	default:
	}
	select {
	case w.Changes <- cfg:
	default:
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.Errors <- err:
	default:
		// Error channel full, drop
	}
}
