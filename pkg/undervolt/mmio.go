//go:build linux

package undervolt

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// writePhys stores an eight-byte little-endian value at a physical
// address through a memory device node. The mapping is page aligned
// around the target, written once and torn down.
func writePhys(devPath string, addr, value uint64) error {
	page := uint64(unix.Getpagesize())
	base := addr &^ (page - 1)
	off := int(addr - base)

	fd, err := unix.Open(devPath, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return classify(fmt.Sprintf("open %s", devPath), err)
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, int64(base), off+8, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return classify(fmt.Sprintf("map %s at %#x", devPath, base), err)
	}
	defer unix.Munmap(mem)

	binary.LittleEndian.PutUint64(mem[off:off+8], value)
	return nil
}
