//go:build !linux && !darwin && !windows

package idle

import "runtime"

func newPlatformSampler() Sampler {
	return unavailableSampler{reason: "unsupported platform " + runtime.GOOS}
}
