package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"session_tracker/internal/idle"
)

// Defaults for the polling loop.
const (
	DefaultInterval      = 5 * time.Second
	DefaultSampleTimeout = 2 * time.Second
)

// EventType names a controller event
type EventType string

const (
	EventLogLoaded         EventType = "log_loaded"
	EventSessionStarted    EventType = "session_started"
	EventSessionClosed     EventType = "session_closed"
	EventVisibilityToggled EventType = "visibility_toggled"
)

// Event is published on Controller.Events after a state change
type Event struct {
	Type   EventType
	Record Record   // closed session (EventSessionClosed)
	Log    []Record // full log, most recent first (EventLogLoaded, EventSessionClosed)
	Status Status
}

// Options configures a Controller
type Options struct {
	Threshold     time.Duration
	Interval      time.Duration
	SampleTimeout time.Duration
	Log           []Record // initial log, most recent first
	Sampler       idle.Sampler
	Persister     Persister
	Logger        hclog.Logger
	Now           func() time.Time
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdEnd
	cmdToggleVisibility
	cmdSetThreshold
	cmdSetInterval
	cmdShutdown
)

type command struct {
	kind      commandKind
	threshold time.Duration
	interval  time.Duration
}

// Controller is the single owner of the Engine. The tick loop and every manual
// command run on its goroutine; other goroutines only read Status snapshots.
type Controller struct {
	engine        *Engine
	sampler       idle.Sampler
	interval      time.Duration
	sampleTimeout time.Duration
	now           func() time.Time
	logger        hclog.Logger

	mu     sync.RWMutex
	status Status
	log    []Record

	samplerDown bool

	commands chan command
	Events   chan Event
	Errors   chan error
	done     chan struct{}
	stopped  chan struct{}

	// runMu makes the switch from handling commands inline to handing them to
	// the loop atomic, so the engine never has two callers.
	runMu     sync.Mutex
	started   bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewController creates a controller around a fresh idle Engine.
func NewController(opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.SampleTimeout <= 0 {
		opts.SampleTimeout = DefaultSampleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Sampler == nil {
		opts.Sampler = idle.NewSampler()
	}

	c := &Controller{
		engine:        NewEngine(opts.Threshold, opts.Log, opts.Persister),
		sampler:       opts.Sampler,
		interval:      opts.Interval,
		sampleTimeout: opts.SampleTimeout,
		now:           opts.Now,
		logger:        opts.Logger,
		commands:      make(chan command, 16),
		Events:        make(chan Event, 100),
		Errors:        make(chan error, 10),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	c.publish()
	return c
}

// Start launches the tick loop.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.runMu.Lock()
		c.started = true
		c.runMu.Unlock()

		c.emit(Event{Type: EventLogLoaded, Log: c.Log(), Status: c.Status()})
		go c.loop(ctx)
	})
}

// Status returns the latest snapshot with Elapsed computed against the current time.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := c.status
	c.mu.RUnlock()

	if st.Running {
		st.Elapsed = c.now().Sub(st.Start)
	}
	return st
}

// Log returns the log as of the last state change, most recent first.
func (c *Controller) Log() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Record, len(c.log))
	copy(out, c.log)
	return out
}

// StartSession requests a manual start.
func (c *Controller) StartSession() { c.send(command{kind: cmdStart}) }

// EndSession requests a manual end.
func (c *Controller) EndSession() { c.send(command{kind: cmdEnd}) }

// ToggleVisibility asks the presentation layer to show or hide itself.
func (c *Controller) ToggleVisibility() { c.send(command{kind: cmdToggleVisibility}) }

// SetThreshold changes the idle threshold for subsequent ticks.
func (c *Controller) SetThreshold(d time.Duration) {
	c.send(command{kind: cmdSetThreshold, threshold: d})
}

// SetInterval changes the polling interval; the next tick is one interval away.
func (c *Controller) SetInterval(d time.Duration) {
	c.send(command{kind: cmdSetInterval, interval: d})
}

// Shutdown ends any running session as a manual end, stops the loop and waits
// up to timeout for it to exit.
func (c *Controller) Shutdown(timeout time.Duration) error {
	c.runMu.Lock()
	if !c.started {
		c.handle(command{kind: cmdShutdown})
		c.stop()
		c.runMu.Unlock()
		return nil
	}
	c.runMu.Unlock()

	c.send(command{kind: cmdShutdown})

	select {
	case <-c.stopped:
		return nil
	case <-time.After(timeout):
		c.stop()
		return errors.New("controller did not stop in time")
	}
}

func (c *Controller) send(cmd command) {
	c.runMu.Lock()
	if !c.started {
		c.handle(cmd)
		c.runMu.Unlock()
		return
	}
	c.runMu.Unlock()

	select {
	case c.commands <- cmd:
	case <-c.done:
	}
}

func (c *Controller) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// loop is the engine's serialization point
func (c *Controller) loop(ctx context.Context) {
	defer close(c.stopped)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case <-ctx.Done():
			c.handle(command{kind: cmdShutdown})
			c.stop()
			return

		case <-ticker.C:
			c.tick(ctx)

		case cmd := <-c.commands:
			c.handle(cmd)
			switch cmd.kind {
			case cmdSetInterval:
				ticker.Reset(c.interval)
			case cmdShutdown:
				c.stop()
				return
			}
		}
	}
}

// tick samples idle time and feeds it to the engine. A failed sample leaves
// the state untouched.
func (c *Controller) tick(ctx context.Context) {
	sampleCtx, cancel := context.WithTimeout(ctx, c.sampleTimeout)
	idleFor, err := c.sampler.Sample(sampleCtx)
	cancel()

	if err != nil {
		if !c.samplerDown {
			c.samplerDown = true
			c.logger.Warn("idle sample unavailable, skipping ticks until it recovers", "error", err)
			c.publish()
			c.reportError(err)
		}
		return
	}
	if c.samplerDown {
		c.samplerDown = false
		c.logger.Info("idle sampling recovered")
	}
	if idleFor < 0 {
		idleFor = 0
	}

	wasRunning := c.engine.Running()
	rec, closed := c.engine.OnTick(idleFor, c.now())
	c.publish()

	switch {
	case closed:
		c.logger.Info("session ended by idle",
			"start", FormatTimestamp(rec.Start), "end", FormatTimestamp(rec.End),
			"duration", FormatDuration(rec.Duration), "idle", idleFor.Truncate(time.Second))
		c.emit(Event{Type: EventSessionClosed, Record: rec, Log: c.Log(), Status: c.Status()})
	case !wasRunning && c.engine.Running():
		c.logger.Info("session started by activity", "idle", idleFor.Truncate(time.Second))
		c.emit(Event{Type: EventSessionStarted, Status: c.Status()})
	}
}

func (c *Controller) handle(cmd command) {
	switch cmd.kind {
	case cmdStart:
		if c.engine.ManualStart(c.now()) {
			c.publish()
			c.logger.Info("session started manually")
			c.emit(Event{Type: EventSessionStarted, Status: c.Status()})
			return
		}
		c.publish()

	case cmdEnd, cmdShutdown:
		rec, closed := c.engine.ManualEnd(c.now())
		c.publish()
		if closed {
			c.logger.Info("session ended manually",
				"start", FormatTimestamp(rec.Start), "end", FormatTimestamp(rec.End),
				"duration", FormatDuration(rec.Duration))
			c.emit(Event{Type: EventSessionClosed, Record: rec, Log: c.Log(), Status: c.Status()})
		}

	case cmdToggleVisibility:
		c.emit(Event{Type: EventVisibilityToggled, Status: c.Status()})

	case cmdSetThreshold:
		if cmd.threshold <= 0 {
			c.logger.Warn("ignoring non-positive idle threshold", "threshold", cmd.threshold)
			return
		}
		c.engine.SetThreshold(cmd.threshold)
		c.publish()
		c.logger.Info("idle threshold changed", "threshold", cmd.threshold)

	case cmdSetInterval:
		if cmd.interval <= 0 {
			c.logger.Warn("ignoring non-positive check interval", "interval", cmd.interval)
			return
		}
		c.interval = cmd.interval
		c.publish()
		c.logger.Info("check interval changed", "interval", cmd.interval)
	}
}

// publish copies engine state into the snapshot read by Status and Log.
func (c *Controller) publish() {
	st := c.engine.Status(c.now())
	st.SamplerOK = !c.samplerDown
	st.Interval = c.interval
	log := c.engine.Log()

	c.mu.Lock()
	c.status = st
	c.log = log
	c.mu.Unlock()
}

func (c *Controller) emit(ev Event) {
	select {
	case c.Events <- ev:
	default:
		// Event channel full; the next event carries the full log
	}
}

func (c *Controller) reportError(err error) {
	select {
	case c.Errors <- err:
	default:
	}
}
