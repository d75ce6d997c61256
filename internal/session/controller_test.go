package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"session_tracker/internal/idle"
)

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeSampler returns whatever idle duration or error it was last given
type fakeSampler struct {
	mu   sync.Mutex
	idle time.Duration
	err  error
}

func (s *fakeSampler) Sample(context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle, s.err
}

func (s *fakeSampler) Set(d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle, s.err = d, err
}

// syncPersister is safe to read while the controller goroutine writes
type syncPersister struct {
	mu   sync.Mutex
	logs [][]Record
}

func (p *syncPersister) Persist(log []Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, log)
}

func (p *syncPersister) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.logs)
}

func newTestController(t *testing.T, interval time.Duration) (*Controller, *fakeClock, *fakeSampler, *syncPersister) {
	t.Helper()
	clock := &fakeClock{now: at("09:00:00")}
	sampler := &fakeSampler{idle: time.Hour}
	persister := &syncPersister{}
	c := NewController(Options{
		Threshold: threshold,
		Interval:  interval,
		Sampler:   sampler,
		Persister: persister,
		Now:       clock.Now,
	})
	return c, clock, sampler, persister
}

func waitForEvent(t *testing.T, c *Controller, want EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events:
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestControllerTickLifecycle(t *testing.T) {
	c, clock, sampler, persister := newTestController(t, time.Hour)
	ctx := context.Background()

	c.tick(ctx)
	if c.Status().Running {
		t.Fatal("idle sample should not start a session")
	}

	sampler.Set(time.Second, nil)
	clock.Set(at("09:00:05"))
	c.tick(ctx)
	st := c.Status()
	if !st.Running || !st.Start.Equal(at("09:00:05")) {
		t.Fatalf("expected auto-start at 09:00:05, got %+v", st)
	}

	clock.Set(at("09:20:00"))
	c.tick(ctx)

	clock.Set(at("09:30:00"))
	if got := c.Status().Elapsed; got != 30*time.Minute-5*time.Second {
		t.Errorf("elapsed = %v", got)
	}

	sampler.Set(threshold, nil)
	c.tick(ctx)

	ev := waitForEvent(t, c, EventSessionClosed)
	if !ev.Record.End.Equal(at("09:20:00")) {
		t.Errorf("end = %v, want 09:20:00", ev.Record.End)
	}
	if len(ev.Log) != 1 || len(c.Log()) != 1 {
		t.Errorf("log lengths = %d/%d, want 1", len(ev.Log), len(c.Log()))
	}
	if persister.Count() != 1 {
		t.Errorf("persisted %d times, want 1", persister.Count())
	}
}

func TestControllerSamplerUnavailableSkipsTick(t *testing.T) {
	c, clock, sampler, _ := newTestController(t, time.Hour)
	ctx := context.Background()

	c.StartSession()
	clock.Set(at("09:10:00"))
	sampler.Set(0, fmt.Errorf("%w: test", idle.ErrUnavailable))
	c.tick(ctx)
	c.tick(ctx)

	st := c.Status()
	if !st.Running {
		t.Fatal("an unavailable sample must not end the session")
	}
	if !st.LastActive.Equal(at("09:00:00")) {
		t.Errorf("lastActive moved to %v", st.LastActive)
	}
	if st.SamplerOK {
		t.Error("status should report sampler trouble")
	}

	select {
	case err := <-c.Errors:
		if !errors.Is(err, idle.ErrUnavailable) {
			t.Errorf("unexpected error %v", err)
		}
	default:
		t.Fatal("expected an error report")
	}
	select {
	case err := <-c.Errors:
		t.Errorf("error should be reported once per streak, got second %v", err)
	default:
	}

	sampler.Set(time.Second, nil)
	c.tick(ctx)
	if st := c.Status(); !st.SamplerOK || !st.LastActive.Equal(at("09:10:00")) {
		t.Errorf("expected recovery, got %+v", st)
	}
}

func TestControllerManualCommandsBeforeStart(t *testing.T) {
	c, clock, sampler, persister := newTestController(t, time.Hour)

	c.StartSession()
	clock.Set(at("09:45:00"))
	c.EndSession()

	log := c.Log()
	if len(log) != 1 || !log[0].End.Equal(at("09:45:00")) {
		t.Fatalf("unexpected log %v", log)
	}
	if persister.Count() != 1 {
		t.Errorf("persisted %d times, want 1", persister.Count())
	}

	sampler.Set(0, nil)
	c.tick(context.Background())
	if c.Status().Running {
		t.Error("auto-start should stay suppressed after manual end")
	}
}

func TestControllerLoop(t *testing.T) {
	c, clock, sampler, _ := newTestController(t, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)
	waitForEvent(t, c, EventLogLoaded)

	sampler.Set(time.Second, nil)
	waitForEvent(t, c, EventSessionStarted)

	clock.Set(at("09:05:00"))
	c.ToggleVisibility()
	waitForEvent(t, c, EventVisibilityToggled)

	c.EndSession()
	ev := waitForEvent(t, c, EventSessionClosed)
	if !ev.Record.End.Equal(at("09:05:00")) {
		t.Errorf("manual end = %v, want 09:05:00", ev.Record.End)
	}

	if err := c.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestControllerShutdownClosesActiveSession(t *testing.T) {
	c, clock, _, persister := newTestController(t, time.Hour)
	c.Start(context.Background())

	c.StartSession()
	waitForEvent(t, c, EventSessionStarted)

	clock.Set(at("10:00:00"))
	if err := c.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	log := c.Log()
	if len(log) != 1 || !log[0].End.Equal(at("10:00:00")) {
		t.Fatalf("shutdown should close the session at now, log = %v", log)
	}
	if persister.Count() != 1 {
		t.Errorf("persisted %d times, want 1", persister.Count())
	}
	if c.Status().Running {
		t.Error("controller still running after shutdown")
	}

	// Commands after shutdown are dropped instead of blocking
	c.StartSession()
}

func TestControllerSetThreshold(t *testing.T) {
	c, _, _, _ := newTestController(t, time.Hour)
	c.SetThreshold(time.Minute)
	c.SetThreshold(0)

	if got := c.Status().Threshold; got != time.Minute {
		t.Errorf("threshold = %v, want 1m", got)
	}
}

func TestControllerSetIntervalResetsTicker(t *testing.T) {
	c, _, sampler, _ := newTestController(t, time.Hour)
	sampler.Set(0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Shutdown(time.Second) //nolint:errcheck

	c.SetInterval(10 * time.Millisecond)
	waitForEvent(t, c, EventSessionStarted)
}

func TestControllerSetIntervalIgnoresNonPositive(t *testing.T) {
	c, _, _, _ := newTestController(t, time.Minute)

	c.SetInterval(0)
	if c.interval != time.Minute {
		t.Errorf("interval = %v, want unchanged 1m", c.interval)
	}
	c.SetInterval(time.Second)
	if c.interval != time.Second {
		t.Errorf("interval = %v, want 1s", c.interval)
	}
}

func TestControllerCommandsRacingStart(t *testing.T) {
	c, _, _, _ := newTestController(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.StartSession()
			} else {
				c.EndSession()
			}
		}(i)
	}
	c.Start(ctx)
	wg.Wait()

	if err := c.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if c.Status().Running {
		t.Error("shutdown should leave no running session")
	}
}
