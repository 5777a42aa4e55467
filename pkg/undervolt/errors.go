package undervolt

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

// Errors returned by register operations. Callers match them with
// errors.Is; the wrapped cause keeps the underlying errno text.
var (
	// ErrPermission means the calling process may not touch the register
	// device, either plain file permissions or a kernel lockdown policy
	// that refuses MSR writes outright.
	ErrPermission = errors.New("permission denied")

	// ErrDeviceUnavailable means the register device could not be
	// reached: no msr device nodes, or a register the processor does not
	// implement.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrOutOfRange means a requested value does not fit the register
	// field that would hold it.
	ErrOutOfRange = errors.New("value out of range")
)

// sentinelFor maps an errno-shaped error onto the package taxonomy, or
// nil when it fits no category. EIO is how the msr driver reports a
// register the processor does not implement.
func sentinelFor(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ErrPermission
	case errors.Is(err, fs.ErrNotExist):
		return ErrDeviceUnavailable
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.EIO, unix.ENXIO, unix.ENODEV:
			return ErrDeviceUnavailable
		}
	}
	return nil
}

// classify wraps a low-level error with the operation that hit it and,
// where one applies, a taxonomy sentinel.
func classify(op string, err error) error {
	if s := sentinelFor(err); s != nil {
		return fmt.Errorf("%s: %w: %v", op, s, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
