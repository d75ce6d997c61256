//go:build darwin

package idle

// newPlatformSampler reads HIDIdleTime through ioreg.
func newPlatformSampler() Sampler {
	return &commandSampler{
		name:    "ioreg",
		args:    []string{"-c", "IOHIDSystem", "-d", "4"},
		parse:   parseHIDIdleTime,
		execute: defaultCmdExecutor,
	}
}
