// Package idle reports how long the machine has gone without user input.
package idle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned (possibly wrapped) when the platform cannot report idle time.
var ErrUnavailable = errors.New("idle time unavailable")

// Sampler returns the time elapsed since the last physical input event.
type Sampler interface {
	Sample(ctx context.Context) (time.Duration, error)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(ctx context.Context) (time.Duration, error)

// Sample calls f.
func (f SamplerFunc) Sample(ctx context.Context) (time.Duration, error) {
	return f(ctx)
}

// NewSampler returns the sampler for the current platform.
func NewSampler() Sampler {
	return newPlatformSampler()
}

// cmdExecutor runs an external command and returns its stdout.
type cmdExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCmdExecutor(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// unavailableSampler is used where no idle source exists.
type unavailableSampler struct {
	reason string
}

func (s unavailableSampler) Sample(context.Context) (time.Duration, error) {
	return 0, fmt.Errorf("%w: %s", ErrUnavailable, s.reason)
}

// commandSampler shells out to a tool and parses its output.
type commandSampler struct {
	name    string
	args    []string
	parse   func([]byte) (time.Duration, error)
	execute cmdExecutor
}

func (s *commandSampler) Sample(ctx context.Context) (time.Duration, error) {
	out, err := s.execute(ctx, s.name, s.args...)
	if err != nil {
		return 0, fmt.Errorf("%w: run %s: %v", ErrUnavailable, s.name, err)
	}
	d, err := s.parse(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return d, nil
}

// parseHIDIdleTime extracts HIDIdleTime (nanoseconds) from `ioreg -c IOHIDSystem` output.
func parseHIDIdleTime(output []byte) (time.Duration, error) {
	for _, line := range bytes.Split(output, []byte("\n")) {
		lineStr := string(bytes.TrimSpace(line))
		if !strings.Contains(lineStr, "HIDIdleTime") {
			continue
		}

		// Format: "HIDIdleTime" = 123456789
		_, value, ok := strings.Cut(lineStr, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "\""))

		nanos, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
		}
		if nanos < 0 {
			return 0, fmt.Errorf("negative HIDIdleTime %d", nanos)
		}
		return time.Duration(nanos), nil
	}
	return 0, errors.New("HIDIdleTime not found in ioreg output")
}

// parseMillis parses xprintidle output: a single integer of milliseconds.
func parseMillis(output []byte) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("negative idle time %dms", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
