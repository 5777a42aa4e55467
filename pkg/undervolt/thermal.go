package undervolt

import (
	"fmt"
	"os"
	"strings"
)

// TempTarget is the decoded thermal throttle point.
type TempTarget struct {
	// Target is the temperature the package throttles at, in °C.
	Target int
	// Max is the factory throttle point; Target is Max minus the
	// programmed offset.
	Max int
}

// decodeTempTarget pulls the throttle point out of the temperature
// target register.
func decodeTempTarget(raw uint64, offsetWidth uint) TempTarget {
	max := int(tempReadout.get(raw))
	return TempTarget{
		Target: max - int(tempOffsetField(offsetWidth).get(raw)),
		Max:    max,
	}
}

// encodeTempTarget merges a requested throttle point into the register
// value. The hardware stores it as an offset below the read-only
// factory maximum, so the target has to lie within offset reach of it.
func encodeTempTarget(raw uint64, target int, offsetWidth uint) (uint64, error) {
	f := tempOffsetField(offsetWidth)
	max := int(tempReadout.get(raw))
	offset := max - target
	if offset < 0 || offset > int(f.maxUnsigned()) {
		return 0, fmt.Errorf("temperature target %d°C not within %d..%d°C: %w",
			target, max-int(f.maxUnsigned()), max, ErrOutOfRange)
	}
	return f.put(raw, uint64(offset)), nil
}

// ReadTempTarget reads the current throttle temperature.
func (h *Host) ReadTempTarget() (TempTarget, error) {
	raw, err := h.readFirst(h.cfg.TempTargetRegister)
	if err != nil {
		return TempTarget{}, fmt.Errorf("read temperature target: %w", err)
	}
	return decodeTempTarget(raw, h.cfg.TempOffsetWidth), nil
}

// SetTempTarget moves the throttle temperature to target °C on every
// CPU. The factory maximum is read from the hardware first, both to
// validate the request and to leave the rest of the register alone.
func (h *Host) SetTempTarget(target int) error {
	raw, err := h.readFirst(h.cfg.TempTargetRegister)
	if err != nil {
		return fmt.Errorf("read temperature target: %w", err)
	}
	next, err := encodeTempTarget(raw, target, h.cfg.TempOffsetWidth)
	if err != nil {
		return err
	}
	log.V(1).Info("writing temperature target", "target", target, "value", fmt.Sprintf("%#x", next))
	if err := h.writeAll(h.cfg.TempTargetRegister, next); err != nil {
		return fmt.Errorf("set temperature target: %w", err)
	}
	return nil
}

// OnBattery reports whether the machine currently runs off the
// battery. Machines with no AC supply node, desktops mostly, count as
// mains powered.
func (h *Host) OnBattery() bool {
	b, err := os.ReadFile(h.cfg.PowerSupplyACPath)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(b)) == "0"
}
