package store

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"session_tracker/internal/session"
)

// Retry policy defaults
const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
)

// Writer saves log snapshots on its own goroutine. Persist never blocks: only the
// newest snapshot is kept, and failed saves are retried with exponential backoff.
type Writer struct {
	store          Store
	logger         hclog.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu     sync.Mutex
	latest []session.Record
	dirty  bool

	wake    chan struct{}
	Errors  chan error
	done    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

var _ session.Persister = (*Writer)(nil)

// WriterOptions tunes the retry policy
type WriterOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         hclog.Logger
}

// NewWriter creates a writer for store. Call Start before use.
func NewWriter(store Store, opts WriterOptions) *Writer {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	return &Writer{
		store:          store,
		logger:         opts.Logger,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		wake:           make(chan struct{}, 1),
		Errors:         make(chan error, 10),
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
}

// Start begins the write loop
func (w *Writer) Start() {
	w.startOnce.Do(func() {
		go w.loop()
	})
}

// Persist queues log for writing, replacing any snapshot not yet written.
func (w *Writer) Persist(log []session.Record) {
	w.mu.Lock()
	w.latest = log
	w.dirty = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close makes a final attempt to write any pending snapshot, waiting up to timeout,
// then closes the store.
func (w *Writer) Close(timeout time.Duration) error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	var err error
	w.startOnce.Do(func() {
		// Never started: write synchronously.
		close(w.stopped)
		w.flushOnce()
	})

	select {
	case <-w.stopped:
	case <-time.After(timeout):
		err = errors.New("record writer did not finish in time")
	}

	if cerr := w.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) loop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			w.flushOnce()
			return
		case <-w.wake:
			w.flush()
		}
	}
}

// flush saves the pending snapshot, retrying until it succeeds, a newer snapshot
// replaces it, or the writer is closed.
func (w *Writer) flush() {
	backoff := w.initialBackoff

	for attempt := 1; ; attempt++ {
		log, ok := w.take()
		if !ok {
			return
		}

		err := w.store.Save(log)
		if err == nil {
			w.logger.Debug("record log saved", "records", len(log), "path", w.store.Path())
			return
		}

		w.restore(log)
		w.fail(&PersistenceError{Path: w.store.Path(), Attempts: attempt, Err: err}, backoff)

		select {
		case <-time.After(backoff):
		case <-w.wake:
		case <-w.done:
			return
		}

		backoff *= 2
		if backoff > w.maxBackoff {
			backoff = w.maxBackoff
		}
	}
}

func (w *Writer) flushOnce() {
	log, ok := w.take()
	if !ok {
		return
	}
	if err := w.store.Save(log); err != nil {
		w.fail(&PersistenceError{Path: w.store.Path(), Attempts: 1, Err: err}, 0)
	}
}

func (w *Writer) take() ([]session.Record, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirty {
		return nil, false
	}
	w.dirty = false
	return w.latest, true
}

// restore puts a failed snapshot back unless a newer one arrived meanwhile.
func (w *Writer) restore(log []session.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirty {
		w.latest = log
		w.dirty = true
	}
}

func (w *Writer) fail(err *PersistenceError, retryIn time.Duration) {
	w.logger.Error("failed to save record log", "path", err.Path, "attempt", err.Attempts,
		"retry_in", retryIn, "error", err.Err)

	select {
	case w.Errors <- err:
	default:
	}
}
