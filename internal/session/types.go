package session

import "time"

// Record is one closed work session. Records are immutable once created.
type Record struct {
	Start    time.Time     // When the session opened
	End      time.Time     // When the session closed (backdated for idle closes)
	Weekday  string        // English weekday name of Start's calendar day
	Duration time.Duration // End - Start, whole seconds

	// Set only for records loaded from a line that could not be fully parsed.
	// Raw holds the columns as read so the line survives a rewrite of the log.
	Malformed   bool
	RawDuration string // unparseable duration column, if that was the problem
	Raw         []string
}

// NewRecord builds a record for a session running from start to end.
func NewRecord(start, end time.Time) Record {
	if end.Before(start) {
		end = start
	}
	return Record{
		Start:    start,
		End:      end,
		Weekday:  start.Weekday().String(),
		Duration: end.Sub(start).Truncate(time.Second),
	}
}

// Date returns the calendar day key (YYYY-MM-DD) of the record's start.
func (r Record) Date() string {
	return r.Start.Format(DateLayout)
}

// Status is a read-only snapshot of the engine for display
type Status struct {
	Running          bool
	Start            time.Time // zero when not running
	LastActive       time.Time // zero when not running
	Elapsed          time.Duration
	AutoStartEnabled bool
	Threshold        time.Duration
	Interval         time.Duration // set by the Controller
	SamplerOK        bool
}

// DailySummary aggregates all sessions that started on one calendar day
type DailySummary struct {
	Date         string
	Weekday      string
	TotalSeconds int64
	SessionCount int
}

// Total returns the summed duration for the day.
func (d DailySummary) Total() time.Duration {
	return time.Duration(d.TotalSeconds) * time.Second
}
