//go:build windows

package idle

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// lastInputSampler asks GetLastInputInfo for the tick of the last input event.
type lastInputSampler struct{}

func newPlatformSampler() Sampler {
	return lastInputSampler{}
}

func (lastInputSampler) Sample(context.Context) (time.Duration, error) {
	if err := procGetLastInputInfo.Find(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return 0, fmt.Errorf("%w: GetLastInputInfo: %v", ErrUnavailable, err)
	}

	now, _, _ := procGetTickCount.Call()
	// uint32 arithmetic handles the 49.7 day tick wraparound
	millis := uint32(now) - info.dwTime
	return time.Duration(millis) * time.Millisecond, nil
}
