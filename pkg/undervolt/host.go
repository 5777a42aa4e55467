// Package undervolt tunes the voltage, power, thermal and turbo
// settings of Intel CPUs through their model-specific registers. It
// owns the register encodings; deciding what values are safe for a
// given machine is the caller's problem.
package undervolt

import "fmt"

// Host is a handle on the tunable registers of the local machine.
// Reads are satisfied from the first CPU; writes are repeated on every
// CPU so the setting holds whichever core the firmware consults.
type Host struct {
	cfg  Config
	regs registerAccess
	cpus []int
}

// New enumerates the register devices and returns a handle on them. It
// fails with ErrDeviceUnavailable when no devices exist, which on most
// machines means the msr kernel module is not loaded.
func New(cfg Config) (*Host, error) {
	cpus, err := enumerateCPUs(cfg.MSRPathFormat)
	if err != nil {
		return nil, err
	}
	if len(cpus) == 0 {
		if !moduleLoaded(cfg.KernelModulesPath, "msr") {
			return nil, fmt.Errorf("no msr device nodes and the msr kernel module is not loaded, try modprobe msr: %w", ErrDeviceUnavailable)
		}
		return nil, fmt.Errorf("no msr device nodes match %q: %w", cfg.MSRPathFormat, ErrDeviceUnavailable)
	}
	if vendor := cpuVendor(cfg.CPUInfoPath); vendor != "" && vendor != "GenuineIntel" {
		log.Info("unsupported cpu vendor, registers may not behave as documented", "vendor", vendor)
	}
	log.V(1).Info("enumerated msr devices", "cpus", len(cpus))
	return &Host{
		cfg:  cfg,
		regs: msrDev{pathFormat: cfg.MSRPathFormat},
		cpus: cpus,
	}, nil
}

// writeAll writes one register on every CPU, stopping at the first
// failure.
func (h *Host) writeAll(reg uint32, value uint64) error {
	for _, cpu := range h.cpus {
		if err := h.regs.write(cpu, reg, value); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) readFirst(reg uint32) (uint64, error) {
	return h.regs.read(h.cpus[0], reg)
}
