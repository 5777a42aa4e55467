package undervolt

import (
	"fmt"
	"math"
)

// Window selects one of the two package power limit windows.
type Window int

const (
	// WindowLong is the sustained limit, PL1 in vendor documents.
	WindowLong Window = iota
	// WindowShort is the burst limit, PL2.
	WindowShort
)

func (w Window) String() string {
	if w == WindowShort {
		return "short"
	}
	return "long"
}

func (w Window) layout() powerWindow {
	if w == WindowShort {
		return shortWindow
	}
	return longWindow
}

// PowerLimit is one window of the package power limit in engineering
// units.
type PowerLimit struct {
	Watts   float64
	Seconds float64
	Enabled bool
	// Locked reflects the register-wide lock bit. Setting it on a
	// write latches the whole register read-only until the next reset.
	Locked bool
}

// PowerLimits is the decoded state of the package power limit register.
type PowerLimits struct {
	Long  PowerLimit
	Short PowerLimit
}

// raplUnits are the scale factors the power limit register is
// expressed in, decoded from the unit register.
type raplUnits struct {
	power float64 // watts per hardware power unit
	time  float64 // seconds per hardware time unit
}

func decodeUnits(raw uint64) raplUnits {
	return raplUnits{
		power: 1 / float64(uint64(1)<<unitPower.get(raw)),
		time:  1 / float64(uint64(1)<<unitTime.get(raw)),
	}
}

// decodeWindow reads one window out of the power limit register. The
// window length is stored as 2^y times (1 + z/4) hardware time units.
func decodeWindow(raw uint64, w Window, u raplUnits) PowerLimit {
	l := w.layout()
	y := float64(l.timeY.get(raw))
	z := float64(l.timeZ.get(raw))
	return PowerLimit{
		Watts:   float64(l.power.get(raw)) * u.power,
		Seconds: math.Pow(2, y) * (1 + z/4) * u.time,
		Enabled: l.enable.get(raw) == 1,
		Locked:  powerLock.get(raw) == 1,
	}
}

// encodeWindow merges pl into one window of the register value,
// leaving the other window, the clamp bits and an already-set lock bit
// alone. Power and window length are quantized to the hardware units;
// values past the field widths are clamped rather than refused, the
// way firmware setup menus behave.
func encodeWindow(raw uint64, w Window, pl PowerLimit, u raplUnits) (uint64, error) {
	if pl.Watts < 0 || pl.Seconds < 0 {
		return 0, fmt.Errorf("power limit %g W over %g s is negative: %w", pl.Watts, pl.Seconds, ErrOutOfRange)
	}
	l := w.layout()
	power := uint64(math.Round(pl.Watts / u.power))
	if max := l.power.maxUnsigned(); power > max {
		power = max
	}
	y, z := encodeTimeWindow(pl.Seconds/u.time, l.timeY.maxUnsigned())

	out := l.power.put(raw, power)
	out = l.timeY.put(out, y)
	out = l.timeZ.put(out, z)
	var enable uint64
	if pl.Enabled {
		enable = 1
	}
	out = l.enable.put(out, enable)
	if pl.Locked {
		out = powerLock.put(out, 1)
	}
	return out, nil
}

// encodeTimeWindow expresses a window length, given in hardware time
// units, as the 2^y * (1 + z/4) pair the register stores, picking the
// nearest representable value within the field limits.
func encodeTimeWindow(units float64, maxY uint64) (y, z uint64) {
	if units < 1 {
		return 0, 0
	}
	y = uint64(math.Floor(math.Log2(units)))
	if y > maxY {
		return maxY, 3
	}
	z = uint64(math.Round(4 * (units/math.Pow(2, float64(y)) - 1)))
	if z > 3 {
		y++
		z = 0
		if y > maxY {
			return maxY, 3
		}
	}
	return y, z
}

func (h *Host) readUnits() (raplUnits, error) {
	raw, err := h.readFirst(h.cfg.PowerUnitRegister)
	if err != nil {
		return raplUnits{}, fmt.Errorf("read power units: %w", err)
	}
	return decodeUnits(raw), nil
}

// ReadPowerLimits decodes both package power limit windows.
func (h *Host) ReadPowerLimits() (PowerLimits, error) {
	u, err := h.readUnits()
	if err != nil {
		return PowerLimits{}, err
	}
	raw, err := h.readFirst(h.cfg.PowerLimitRegister)
	if err != nil {
		return PowerLimits{}, fmt.Errorf("read power limits: %w", err)
	}
	return PowerLimits{
		Long:  decodeWindow(raw, WindowLong, u),
		Short: decodeWindow(raw, WindowShort, u),
	}, nil
}

// SetPowerLimit updates one window of the package power limit on every
// CPU, read-modify-write so the other window survives. When the
// mirror is enabled the merged value is also pushed to the
// memory-mapped copy; a mirror failure goes to the log but does not
// fail the update, since the MSR copy is the one that always exists.
func (h *Host) SetPowerLimit(w Window, pl PowerLimit) error {
	u, err := h.readUnits()
	if err != nil {
		return err
	}
	raw, err := h.readFirst(h.cfg.PowerLimitRegister)
	if err != nil {
		return fmt.Errorf("read power limits: %w", err)
	}
	next, err := encodeWindow(raw, w, pl, u)
	if err != nil {
		return err
	}
	log.V(1).Info("writing power limit",
		"window", w.String(), "watts", pl.Watts, "seconds", pl.Seconds, "value", fmt.Sprintf("%#x", next))
	if err := h.writeAll(h.cfg.PowerLimitRegister, next); err != nil {
		return fmt.Errorf("set %s power limit: %w", w, err)
	}
	if h.cfg.MirrorPowerLimit {
		if err := writePhys(h.cfg.DevMemPath, h.cfg.PowerMirrorAddress, next); err != nil {
			log.Error(err, "power limit mirror write failed",
				"address", fmt.Sprintf("%#x", h.cfg.PowerMirrorAddress))
		}
	}
	return nil
}
