package undervolt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// registerAccess is the boundary between the codecs and the hardware.
// Reads and writes address a single CPU; fan-out across CPUs is the
// caller's business.
type registerAccess interface {
	read(cpu int, reg uint32) (uint64, error)
	write(cpu int, reg uint32, value uint64) error
}

// msrDev reaches model-specific registers through the per-CPU device
// nodes exposed by the msr kernel module. A register is eight bytes,
// little endian, at a file offset equal to its number.
type msrDev struct {
	pathFormat string
}

func (m msrDev) path(cpu int) string {
	return fmt.Sprintf(m.pathFormat, cpu)
}

func (m msrDev) read(cpu int, reg uint32) (uint64, error) {
	fd, err := unix.Open(m.path(cpu), unix.O_RDONLY, 0)
	if err != nil {
		return 0, classify(fmt.Sprintf("open msr device cpu%d", cpu), err)
	}
	defer unix.Close(fd)

	var buf [8]byte
	n, err := unix.Pread(fd, buf[:], int64(reg))
	if err != nil {
		return 0, classify(fmt.Sprintf("read msr 0x%x cpu%d", reg, cpu), err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("read msr 0x%x cpu%d: short read of %d bytes: %w", reg, cpu, n, ErrDeviceUnavailable)
	}
	value := binary.LittleEndian.Uint64(buf[:])
	log.V(1).Info("read msr", "register", fmt.Sprintf("%#x", reg), "cpu", cpu, "value", fmt.Sprintf("%#x", value))
	return value, nil
}

func (m msrDev) write(cpu int, reg uint32, value uint64) error {
	fd, err := unix.Open(m.path(cpu), unix.O_WRONLY, 0)
	if err != nil {
		return classify(fmt.Sprintf("open msr device cpu%d", cpu), err)
	}
	defer unix.Close(fd)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	n, err := unix.Pwrite(fd, buf[:], int64(reg))
	if err != nil {
		return classify(fmt.Sprintf("write msr 0x%x cpu%d", reg, cpu), err)
	}
	if n != len(buf) {
		return fmt.Errorf("write msr 0x%x cpu%d: short write of %d bytes: %w", reg, cpu, n, ErrDeviceUnavailable)
	}
	log.V(1).Info("wrote msr", "register", fmt.Sprintf("%#x", reg), "cpu", cpu, "value", fmt.Sprintf("%#x", value))
	return nil
}

// enumerateCPUs finds the CPU numbers that have a register device
// node, in ascending order.
func enumerateCPUs(pathFormat string) ([]int, error) {
	pattern := strings.Replace(pathFormat, "%d", "[0-9]*", 1)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad msr path format %q: %w", pathFormat, err)
	}
	cpus := make([]int, 0, len(matches))
	for _, match := range matches {
		var cpu int
		if _, err := fmt.Sscanf(match, pathFormat, &cpu); err == nil {
			cpus = append(cpus, cpu)
		}
	}
	sort.Ints(cpus)
	return cpus, nil
}

// moduleLoaded reports whether the named kernel module appears in the
// modules list.
func moduleLoaded(modulesPath, name string) bool {
	f, err := os.Open(modulesPath)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), name+" ") {
			return true
		}
	}
	return false
}

// cpuVendor pulls the vendor_id value out of the cpuinfo file, or ""
// when there is none to be had.
func cpuVendor(cpuinfoPath string) string {
	f, err := os.Open(cpuinfoPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(name) == "vendor_id" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
