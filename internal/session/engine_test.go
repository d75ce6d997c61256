package session

import (
	"testing"
	"time"
)

// recordingPersister captures every log handed to it
type recordingPersister struct {
	logs [][]Record
}

func (p *recordingPersister) Persist(log []Record) {
	p.logs = append(p.logs, log)
}

const threshold = 470 * time.Second

func at(clock string) time.Time {
	t, err := time.ParseInLocation(TimestampLayout, "2024-03-04 "+clock, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewEngineInitialState(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	st := e.Status(at("09:00:00"))

	if st.Running {
		t.Error("new engine should be idle")
	}
	if !st.AutoStartEnabled {
		t.Error("new engine should allow auto-start")
	}
	if !st.Start.IsZero() || !st.LastActive.IsZero() {
		t.Error("timestamps must be unset while idle")
	}
	if st.Threshold != threshold {
		t.Errorf("threshold = %v, want %v", st.Threshold, threshold)
	}
}

func TestNewEngineDefaultsThreshold(t *testing.T) {
	e := NewEngine(0, nil, nil)
	if got := e.Status(time.Now()).Threshold; got != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", got, DefaultThreshold)
	}
}

func TestLowIdleTicksAdvanceLastActive(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	e.ManualStart(at("09:00:00"))

	for _, clock := range []string{"09:00:05", "09:00:10", "09:00:15", "09:03:00"} {
		now := at(clock)
		if _, closed := e.OnTick(10*time.Second, now); closed {
			t.Fatalf("tick at %s closed the session", clock)
		}
		st := e.Status(now)
		if !st.Running {
			t.Fatalf("session stopped running at %s", clock)
		}
		if !st.LastActive.Equal(now) {
			t.Errorf("lastActive = %v, want %v", st.LastActive, now)
		}
		if !st.Start.Equal(at("09:00:00")) {
			t.Errorf("start moved to %v", st.Start)
		}
	}
}

func TestIdleCloseBackdatesToLastActive(t *testing.T) {
	p := &recordingPersister{}
	e := NewEngine(threshold, nil, p)

	t0, t1, t2 := at("10:00:00"), at("10:20:00"), at("10:28:00")
	e.ManualStart(t0)
	e.OnTick(time.Second, t1)

	rec, closed := e.OnTick(threshold, t2)
	if !closed {
		t.Fatal("idle at threshold should close the session")
	}
	if !rec.End.Equal(t1) {
		t.Errorf("end = %v, want last active %v", rec.End, t1)
	}
	if rec.Duration != 20*time.Minute {
		t.Errorf("duration = %v, want 20m", rec.Duration)
	}
	if e.Running() {
		t.Error("engine should be idle after close")
	}
	if len(p.logs) != 1 || len(p.logs[0]) != 1 {
		t.Fatalf("persister got %v, want one log of one record", p.logs)
	}
}

func TestManualEndUsesNow(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	t0, t3 := at("11:00:00"), at("11:30:00")

	e.ManualStart(t0)
	e.OnTick(0, at("11:05:00"))

	rec, closed := e.ManualEnd(t3)
	if !closed {
		t.Fatal("ManualEnd should close a running session")
	}
	if !rec.End.Equal(t3) {
		t.Errorf("end = %v, want %v", rec.End, t3)
	}
	if !rec.Start.Equal(t0) {
		t.Errorf("start = %v, want %v", rec.Start, t0)
	}
	if rec.Weekday != "Monday" {
		t.Errorf("weekday = %q, want Monday", rec.Weekday)
	}
}

func TestManualEndSuppressesAutoStart(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	e.ManualStart(at("12:00:00"))
	e.ManualEnd(at("12:10:00"))

	e.OnTick(0, at("12:10:05"))
	if e.Running() {
		t.Fatal("low idle tick must not auto-start after a manual end")
	}

	e.ManualStart(at("12:15:00"))
	e.ManualEnd(at("12:16:00"))
	if e.Status(at("12:16:00")).AutoStartEnabled {
		t.Fatal("manual end should disable auto-start again")
	}

	// ManualStart re-enables auto-start for later idle cycles
	e.ManualStart(at("12:20:00"))
	e.OnTick(threshold+time.Second, at("12:30:00"))
	if e.Running() {
		t.Fatal("session should have closed on idle")
	}
	e.OnTick(time.Second, at("12:31:00"))
	if !e.Running() {
		t.Fatal("auto-start should be enabled after ManualStart")
	}
}

func TestAutoStartOnActivity(t *testing.T) {
	e := NewEngine(threshold, nil, nil)

	e.OnTick(threshold, at("08:00:00"))
	if e.Running() {
		t.Fatal("idle at threshold must not start a session")
	}

	now := at("08:00:05")
	e.OnTick(threshold-time.Second, now)
	st := e.Status(now)
	if !st.Running {
		t.Fatal("activity below threshold should auto-start")
	}
	if !st.Start.Equal(now) || !st.LastActive.Equal(now) {
		t.Errorf("start/lastActive = %v/%v, want %v", st.Start, st.LastActive, now)
	}
}

func TestManualStartWhileRunning(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	e.ManualStart(at("09:00:00"))

	if e.ManualStart(at("09:30:00")) {
		t.Error("second ManualStart should report no transition")
	}
	if got := e.Status(at("09:30:00")).Start; !got.Equal(at("09:00:00")) {
		t.Errorf("start changed to %v", got)
	}
}

func TestManualEndWhileIdle(t *testing.T) {
	p := &recordingPersister{}
	e := NewEngine(threshold, nil, p)

	if _, closed := e.ManualEnd(at("09:00:00")); closed {
		t.Error("ManualEnd while idle should not close anything")
	}
	if e.Status(at("09:00:00")).AutoStartEnabled {
		t.Error("ManualEnd should disable auto-start even while idle")
	}
	if len(p.logs) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestClosedRecordsArePrepended(t *testing.T) {
	older := NewRecord(at("07:00:00"), at("07:30:00"))
	e := NewEngine(threshold, []Record{older}, nil)

	e.ManualStart(at("09:00:00"))
	e.ManualEnd(at("09:15:00"))

	log := e.Log()
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}
	if !log[0].Start.Equal(at("09:00:00")) {
		t.Errorf("newest record should be first, got %v", log[0].Start)
	}

	// Log returns a copy
	log[0] = Record{}
	if e.Log()[0].Start.IsZero() {
		t.Error("mutating Log() result changed engine state")
	}
}

func TestScenarioIdleEndAfterTwoTicks(t *testing.T) {
	e := NewEngine(470*time.Second, nil, nil)
	start := at("09:00:00")

	e.ManualStart(start)
	e.OnTick(10*time.Second, start.Add(5*time.Second))
	e.OnTick(10*time.Second, start.Add(10*time.Second))
	rec, closed := e.OnTick(500*time.Second, start.Add(15*time.Second))

	if !closed {
		t.Fatal("expected idle close")
	}
	if FormatTimestamp(rec.Start) != "2024-03-04 09:00:00" {
		t.Errorf("start = %s", FormatTimestamp(rec.Start))
	}
	if FormatTimestamp(rec.End) != "2024-03-04 09:00:10" {
		t.Errorf("end = %s, want 09:00:10", FormatTimestamp(rec.End))
	}
	if FormatDuration(rec.Duration) != "00:00:10" {
		t.Errorf("duration = %s", FormatDuration(rec.Duration))
	}
}

func TestImmediateIdleCloseIsZeroLength(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	e.ManualStart(at("09:00:00"))

	rec, closed := e.OnTick(time.Hour, at("09:00:05"))
	if !closed {
		t.Fatal("expected close")
	}
	if rec.Duration != 0 || !rec.End.Equal(rec.Start) {
		t.Errorf("expected degenerate zero-length record, got %+v", rec)
	}
}

func TestSetThreshold(t *testing.T) {
	e := NewEngine(threshold, nil, nil)
	e.SetThreshold(time.Minute)
	e.SetThreshold(-time.Second)

	if got := e.Status(time.Now()).Threshold; got != time.Minute {
		t.Errorf("threshold = %v, want 1m", got)
	}

	e.ManualStart(at("09:00:00"))
	if _, closed := e.OnTick(2*time.Minute, at("09:01:00")); !closed {
		t.Error("new threshold should apply to the next tick")
	}
}
