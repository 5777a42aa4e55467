package undervolt

// Config carries the hardware constants and filesystem locations the
// package works against. The defaults fit Haswell and later Intel
// cores; other families can repoint the addresses and widths without
// touching the codecs.
type Config struct {
	// MSRPathFormat locates the per-CPU model-specific register device
	// node; the single %d verb receives the CPU number.
	MSRPathFormat string

	// KernelModulesPath is scanned for the msr module when no device
	// nodes are found, to produce a more useful error.
	KernelModulesPath string

	// CPUInfoPath identifies the processor vendor at startup.
	CPUInfoPath string

	// PowerSupplyACPath holds "1" while the machine runs on mains
	// power. A missing node counts as mains power.
	PowerSupplyACPath string

	// Register numbers.
	VoltageRegister    uint32
	PowerLimitRegister uint32
	PowerUnitRegister  uint32
	TempTargetRegister uint32
	MiscEnableRegister uint32

	// StepsPerMillivolt is the voltage quantization scale: offsets are
	// programmed as whole steps of 1/StepsPerMillivolt mV.
	StepsPerMillivolt float64

	// TempOffsetWidth is the width in bits of the temperature target
	// offset field.
	TempOffsetWidth uint

	// MirrorPowerLimit duplicates power limit writes into the
	// memory-mapped copy of the register that some firmware reads
	// instead of the MSR.
	MirrorPowerLimit bool

	// DevMemPath and PowerMirrorAddress locate that copy.
	DevMemPath         string
	PowerMirrorAddress uint64
}

// DefaultConfig returns the stock configuration for current Intel
// hardware on Linux.
func DefaultConfig() Config {
	return Config{
		MSRPathFormat:      "/dev/cpu/%d/msr",
		KernelModulesPath:  "/proc/modules",
		CPUInfoPath:        "/proc/cpuinfo",
		PowerSupplyACPath:  "/sys/class/power_supply/AC/online",
		VoltageRegister:    0x150,
		PowerLimitRegister: 0x610,
		PowerUnitRegister:  0x606,
		TempTargetRegister: 0x1a2,
		MiscEnableRegister: 0x1a0,
		StepsPerMillivolt:  1.024,
		TempOffsetWidth:    6,
		DevMemPath:         "/dev/mem",
		PowerMirrorAddress: 0xfed159a0,
	}
}
