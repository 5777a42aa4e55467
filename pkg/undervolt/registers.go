package undervolt

// field is a contiguous run of bits inside a 64-bit register. Every
// register layout in this package is written out as named fields so
// the codecs never shift by bare numbers.
type field struct {
	shift uint // position of the lowest bit
	width uint // number of bits
}

func (f field) mask() uint64 {
	return ((1 << f.width) - 1) << f.shift
}

// get extracts the field value, right aligned.
func (f field) get(raw uint64) uint64 {
	return (raw & f.mask()) >> f.shift
}

// put returns raw with the field replaced by v. Bits of v beyond the
// field width are dropped.
func (f field) put(raw, v uint64) uint64 {
	return (raw &^ f.mask()) | ((v << f.shift) & f.mask())
}

// getSigned extracts the field as a two's-complement value.
func (f field) getSigned(raw uint64) int64 {
	v := f.get(raw)
	if v >= 1<<(f.width-1) {
		return int64(v) - (1 << f.width)
	}
	return int64(v)
}

// putSigned stores a two's-complement value. The caller checks
// signedRange first.
func (f field) putSigned(raw uint64, v int64) uint64 {
	return f.put(raw, uint64(v)&(1<<f.width-1))
}

// signedRange reports the smallest and largest values the field holds
// in two's complement.
func (f field) signedRange() (min, max int64) {
	return -(1 << (f.width - 1)), 1<<(f.width-1) - 1
}

func (f field) maxUnsigned() uint64 {
	return 1<<f.width - 1
}

// Layout of the voltage control mailbox. The offset field lives inside
// the 32-bit data word; command, plane selector and run bit sit above
// it.
var (
	mboxData   = field{0, 32}
	mboxOffset = field{21, 11}
	mboxCmd    = field{32, 8}
	mboxPlane  = field{40, 3}
	mboxRun    = field{63, 1}
)

// Mailbox commands.
const (
	mboxReadVoltage  = 0x10
	mboxWriteVoltage = 0x11
)

// powerWindow is the layout of one time window of the package power
// limit register.
type powerWindow struct {
	power  field // limit, in hardware power units
	enable field
	clamp  field
	timeY  field // exponent part of the window length
	timeZ  field // fraction part, in quarters
}

var (
	longWindow = powerWindow{
		power:  field{0, 15},
		enable: field{15, 1},
		clamp:  field{16, 1},
		timeY:  field{17, 5},
		timeZ:  field{22, 2},
	}
	shortWindow = powerWindow{
		power:  field{32, 15},
		enable: field{47, 1},
		clamp:  field{48, 1},
		timeY:  field{49, 5},
		timeZ:  field{54, 2},
	}

	// powerLock latches the whole register read-only until reset.
	powerLock = field{63, 1}
)

// Layout of the unit register the power limits are scaled by.
var (
	unitPower = field{0, 4}
	unitTime  = field{16, 4}
)

// Layout of the temperature target register. The factory maximum is
// read-only; the offset field width varies by family and comes from
// Config.
var tempReadout = field{16, 8}

func tempOffsetField(width uint) field {
	return field{24, width}
}

// turboDisable is the turbo disable bit of the misc enable register.
// Note the inverted sense.
var turboDisable = field{38, 1}
