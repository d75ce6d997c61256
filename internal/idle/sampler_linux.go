//go:build linux

package idle

import "os"

// newPlatformSampler uses xprintidle under X11. Without a display there is
// no input device to ask about.
func newPlatformSampler() Sampler {
	if os.Getenv("DISPLAY") == "" {
		return unavailableSampler{reason: "no X11 display (DISPLAY unset)"}
	}
	return &commandSampler{
		name:    "xprintidle",
		parse:   parseMillis,
		execute: defaultCmdExecutor,
	}
}
