package session

import "time"

// DefaultThreshold is how long input may pause before a session is considered over.
const DefaultThreshold = 470 * time.Second

// Persister receives the full log (most recent first) after every closed session.
// Implementations must not block; persistence is best effort from the engine's view.
type Persister interface {
	Persist(log []Record)
}

// Engine is the session state machine. It is not safe for concurrent use:
// the Controller is its only caller.
type Engine struct {
	threshold time.Duration
	persister Persister

	running          bool
	sessionStart     time.Time
	lastActiveTime   time.Time
	autoStartEnabled bool

	log []Record // most recent first
}

// NewEngine creates an idle engine with auto-start enabled, seeded with a log that
// is already sorted most recent first. persister may be nil.
func NewEngine(threshold time.Duration, log []Record, persister Persister) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{
		threshold:        threshold,
		persister:        persister,
		autoStartEnabled: true,
		log:              log,
	}
}

// OnTick applies one idle sample taken at now. It returns the record of a
// session closed by this tick, if any.
func (e *Engine) OnTick(idle time.Duration, now time.Time) (Record, bool) {
	active := idle < e.threshold

	if e.running {
		if active {
			e.lastActiveTime = now
			return Record{}, false
		}
		// The user was last seen at lastActiveTime, not at detection time.
		return e.close(e.lastActiveTime), true
	}

	if e.autoStartEnabled && active {
		e.open(now)
	}
	return Record{}, false
}

// ManualStart opens a session at now and re-enables auto-start.
func (e *Engine) ManualStart(now time.Time) bool {
	e.autoStartEnabled = true
	if e.running {
		return false
	}
	e.open(now)
	return true
}

// ManualEnd closes the running session at now and disables auto-start until
// the next ManualStart.
func (e *Engine) ManualEnd(now time.Time) (Record, bool) {
	e.autoStartEnabled = false
	if !e.running {
		return Record{}, false
	}
	return e.close(now), true
}

// SetThreshold changes the idle threshold. Non-positive values are ignored.
func (e *Engine) SetThreshold(threshold time.Duration) {
	if threshold > 0 {
		e.threshold = threshold
	}
}

// Status snapshots the engine at now.
func (e *Engine) Status(now time.Time) Status {
	st := Status{
		Running:          e.running,
		AutoStartEnabled: e.autoStartEnabled,
		Threshold:        e.threshold,
	}
	if e.running {
		st.Start = e.sessionStart
		st.LastActive = e.lastActiveTime
		st.Elapsed = now.Sub(e.sessionStart)
	}
	return st
}

// Running reports whether a session is open.
func (e *Engine) Running() bool {
	return e.running
}

// Log returns a copy of the log, most recent first.
func (e *Engine) Log() []Record {
	out := make([]Record, len(e.log))
	copy(out, e.log)
	return out
}

func (e *Engine) open(now time.Time) {
	e.running = true
	e.sessionStart = now
	e.lastActiveTime = now
}

func (e *Engine) close(end time.Time) Record {
	rec := NewRecord(e.sessionStart, end)

	e.log = append([]Record{rec}, e.log...)

	e.running = false
	e.sessionStart = time.Time{}
	e.lastActiveTime = time.Time{}

	if e.persister != nil {
		e.persister.Persist(e.Log())
	}
	return rec
}
