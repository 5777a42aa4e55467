package undervolt

import (
	"fmt"
	"math"
)

// Plane identifies a voltage domain of the on-die regulator. The
// numeric value is the selector the mailbox expects.
type Plane int

const (
	PlaneCore Plane = iota
	PlaneGPU
	PlaneCache
	PlaneUncore
	PlaneAnalogIO
	PlaneDigitalIO
)

// Planes lists every plane in selector order.
var Planes = []Plane{PlaneCore, PlaneGPU, PlaneCache, PlaneUncore, PlaneAnalogIO, PlaneDigitalIO}

func (p Plane) String() string {
	switch p {
	case PlaneCore:
		return "core"
	case PlaneGPU:
		return "gpu"
	case PlaneCache:
		return "cache"
	case PlaneUncore:
		return "uncore"
	case PlaneAnalogIO:
		return "analogio"
	case PlaneDigitalIO:
		return "digitalio"
	}
	return fmt.Sprintf("plane(%d)", int(p))
}

func (p Plane) valid() bool {
	return p >= PlaneCore && p <= PlaneDigitalIO
}

// encodeOffset builds the mailbox word that programs an offset of mv
// millivolts on plane p. The offset travels as a signed count of
// 1/scale-mV steps in the top bits of the data word. Positive offsets
// are refused unless allowPositive is set, since overvolting is rarely
// what anyone meant.
func encodeOffset(p Plane, mv, scale float64, allowPositive bool) (uint64, error) {
	if !p.valid() {
		return 0, fmt.Errorf("unknown voltage plane %d: %w", int(p), ErrOutOfRange)
	}
	if mv > 0 && !allowPositive {
		return 0, fmt.Errorf("positive offset %.2f mV refused without force: %w", mv, ErrOutOfRange)
	}
	steps := int64(math.Round(mv * scale))
	if min, max := mboxOffset.signedRange(); steps < min || steps > max {
		return 0, fmt.Errorf("offset %.2f mV is %d steps, outside %d..%d: %w", mv, steps, min, max, ErrOutOfRange)
	}
	raw := mboxData.put(0, mboxOffset.putSigned(0, steps))
	raw = mboxCmd.put(raw, mboxWriteVoltage)
	raw = mboxPlane.put(raw, uint64(p))
	return mboxRun.put(raw, 1), nil
}

// encodeOffsetSelect builds the mailbox word that asks the hardware to
// publish plane p's current offset for a following read.
func encodeOffsetSelect(p Plane) (uint64, error) {
	if !p.valid() {
		return 0, fmt.Errorf("unknown voltage plane %d: %w", int(p), ErrOutOfRange)
	}
	raw := mboxCmd.put(0, mboxReadVoltage)
	raw = mboxPlane.put(raw, uint64(p))
	return mboxRun.put(raw, 1), nil
}

// decodeOffset recovers an offset in millivolts from a mailbox word.
func decodeOffset(raw uint64, scale float64) float64 {
	return float64(mboxOffset.getSigned(mboxData.get(raw))) / scale
}

// coreCacheMismatch reports whether offsets asks for different values
// on the core and cache planes. Those share one rail on current parts
// and the hardware applies the lower of the two, so differing requests
// are almost certainly a mistake.
func coreCacheMismatch(offsets map[Plane]float64) (core, cache float64, mismatch bool) {
	core, okCore := offsets[PlaneCore]
	cache, okCache := offsets[PlaneCache]
	return core, cache, okCore && okCache && core != cache
}

// ReadOffset reads back the offset currently programmed on plane p.
// The mailbox takes two steps: post a read request, then fetch the
// answer it leaves in the data word. Two invocations racing on the
// same register can interleave those steps and read each other's
// plane; callers that might overlap serialize externally.
func (h *Host) ReadOffset(p Plane) (float64, error) {
	sel, err := encodeOffsetSelect(p)
	if err != nil {
		return 0, err
	}
	cpu := h.cpus[0]
	if err := h.regs.write(cpu, h.cfg.VoltageRegister, sel); err != nil {
		return 0, fmt.Errorf("request %s offset: %w", p, err)
	}
	raw, err := h.regs.read(cpu, h.cfg.VoltageRegister)
	if err != nil {
		return 0, fmt.Errorf("fetch %s offset: %w", p, err)
	}
	return decodeOffset(raw, h.cfg.StepsPerMillivolt), nil
}

// SetOffset programs an offset of mv millivolts on plane p on every
// CPU, then reads it back. The mailbox silently ignores writes it does
// not like, so the read-back is the only confirmation there is.
func (h *Host) SetOffset(p Plane, mv float64, allowPositive bool) error {
	raw, err := encodeOffset(p, mv, h.cfg.StepsPerMillivolt, allowPositive)
	if err != nil {
		return err
	}
	want := decodeOffset(raw, h.cfg.StepsPerMillivolt)
	log.V(1).Info("writing voltage offset", "plane", p.String(), "mv", want, "value", fmt.Sprintf("%#x", raw))
	if err := h.writeAll(h.cfg.VoltageRegister, raw); err != nil {
		return fmt.Errorf("set %s offset: %w", p, err)
	}
	got, err := h.ReadOffset(p)
	if err != nil {
		return fmt.Errorf("confirm %s offset: %w", p, err)
	}
	if got != want {
		return fmt.Errorf("%s offset did not stick: wrote %.2f mV, read back %.2f mV", p, want, got)
	}
	return nil
}
