//go:build !linux

package undervolt

import "fmt"

func writePhys(devPath string, addr, value uint64) error {
	return fmt.Errorf("physical memory writes are only supported on linux: %w", ErrDeviceUnavailable)
}
