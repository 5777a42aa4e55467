package undervolt

import "fmt"

// decodeTurbo reads the turbo state out of the misc enable register.
// The hardware stores a disable bit; callers only ever see "enabled".
func decodeTurbo(raw uint64) bool {
	return turboDisable.get(raw) == 0
}

// encodeTurbo merges the requested turbo state into the register value.
func encodeTurbo(raw uint64, enabled bool) uint64 {
	var disable uint64
	if !enabled {
		disable = 1
	}
	return turboDisable.put(raw, disable)
}

// ReadTurbo reports whether opportunistic turbo is enabled.
func (h *Host) ReadTurbo() (bool, error) {
	raw, err := h.readFirst(h.cfg.MiscEnableRegister)
	if err != nil {
		return false, fmt.Errorf("read turbo state: %w", err)
	}
	return decodeTurbo(raw), nil
}

// SetTurbo switches opportunistic turbo on or off on every CPU,
// leaving the many other switches in the register untouched.
func (h *Host) SetTurbo(enabled bool) error {
	raw, err := h.readFirst(h.cfg.MiscEnableRegister)
	if err != nil {
		return fmt.Errorf("read turbo state: %w", err)
	}
	log.V(1).Info("writing turbo state", "enabled", enabled)
	if err := h.writeAll(h.cfg.MiscEnableRegister, encodeTurbo(raw, enabled)); err != nil {
		return fmt.Errorf("set turbo state: %w", err)
	}
	return nil
}
