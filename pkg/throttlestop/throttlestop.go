// Package throttlestop imports voltage offsets from ThrottleStop.ini
// files, the Windows tool's saved profiles, so a machine can keep its
// tuning when it changes operating systems.
package throttlestop

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/georgewhewell/undervolt/pkg/undervolt"
)

var (
	// ErrProfileNotFound means the file parsed fine but holds no
	// voltage keys for the requested profile index.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrParse means the file is not readable as a ThrottleStop ini.
	ErrParse = errors.New("unreadable throttlestop file")
)

// planeKeys maps each voltage plane to the ini key prefix ThrottleStop
// stores it under; the profile index is appended to the prefix.
var planeKeys = map[undervolt.Plane]string{
	undervolt.PlaneCore:      "FIVRVoltageCPU",
	undervolt.PlaneGPU:       "FIVRVoltageIntelGPU",
	undervolt.PlaneCache:     "FIVRVoltageCPUCache",
	undervolt.PlaneUncore:    "FIVRVoltageSystemAgent",
	undervolt.PlaneAnalogIO:  "FIVRVoltageAnalogIO",
	undervolt.PlaneDigitalIO: "FIVRVoltageDigitalIO",
}

// Import reads the voltage offsets of one saved profile. Planes the
// profile does not mention come back as zero offsets, matching how
// ThrottleStop itself treats them.
func Import(path string, profile int) (map[undervolt.Plane]float64, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	sec := f.Section("ThrottleStop")
	if len(sec.Keys()) == 0 {
		// Old versions write the keys with no section header.
		sec = f.Section(ini.DefaultSection)
	}

	offsets := make(map[undervolt.Plane]float64, len(planeKeys))
	found := false
	for plane, prefix := range planeKeys {
		key := fmt.Sprintf("%s%d", prefix, profile)
		if !sec.HasKey(key) {
			offsets[plane] = 0
			continue
		}
		raw, err := parseRegisterValue(sec.Key(key).String())
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrParse, key, err)
		}
		offsets[plane] = Millivolts(raw)
		found = true
	}
	if !found {
		return nil, fmt.Errorf("no voltage keys for profile %d in %s: %w", profile, path, ErrProfileNotFound)
	}
	return offsets, nil
}

// parseRegisterValue reads the raw 32-bit value of one ini key.
// ThrottleStop writes plain decimal; hex with an 0x prefix is accepted
// for hand-edited files.
func parseRegisterValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Millivolts converts one stored FIVR value to millivolts. The file
// keeps the hardware step count (units of 1/1.024 mV) shifted into the
// top bits of a signed 32-bit word, so the scale works out to
// 1024 times 1.024 counts per millivolt.
func Millivolts(raw uint32) float64 {
	return float64(int32(raw)) / 1024 / 1.024
}
