package undervolt

import "fmt"

// Settings is one batch of requested changes. Nil and absent members
// mean "leave alone".
type Settings struct {
	// Offsets are the voltage offsets to program, in millivolts.
	Offsets map[Plane]float64
	// AllowPositive permits offsets above zero.
	AllowPositive bool

	// Temp is the throttle temperature in °C while on mains power,
	// TempBattery the one while on battery. Each applies only on its
	// own power source.
	Temp        *int
	TempBattery *int

	// Long and Short are the power limit windows to rewrite.
	Long  *PowerLimit
	Short *PowerLimit

	// Turbo switches opportunistic turbo on or off.
	Turbo *bool
}

// tempFor picks the throttle temperature request that applies to the
// current power source. The two contexts are independent: a run on
// mains never applies the battery value and vice versa, so the other
// context keeps its effective value until a run on that source.
func (s Settings) tempFor(onBattery bool) *int {
	if onBattery {
		return s.TempBattery
	}
	return s.Temp
}

// Outcome is the result of one requested operation.
type Outcome struct {
	Op       string
	Err      error
	Warnings []string
}

// Failed reports whether the operation went through.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Apply carries out every requested change and reports one outcome per
// operation, in a stable order: voltage planes first, then temperature,
// power limits and turbo. Operations are attempted independently, so
// one refusal never blocks the rest of the batch; the caller decides
// what a partial failure means.
func (h *Host) Apply(s Settings) []Outcome {
	var out []Outcome

	core, cache, mismatch := coreCacheMismatch(s.Offsets)
	for _, p := range Planes {
		mv, ok := s.Offsets[p]
		if !ok {
			continue
		}
		o := Outcome{Op: fmt.Sprintf("%s offset", p)}
		if mismatch && p == PlaneCore {
			warn := fmt.Sprintf("core and cache share one rail; the hardware keeps the lower of %.2f and %.2f mV", core, cache)
			o.Warnings = append(o.Warnings, warn)
			log.Info(warn)
		}
		o.Err = h.SetOffset(p, mv, s.AllowPositive)
		out = append(out, o)
	}

	if t := s.tempFor(h.OnBattery()); t != nil {
		out = append(out, Outcome{Op: "temperature target", Err: h.SetTempTarget(*t)})
	}

	if s.Long != nil {
		out = append(out, Outcome{Op: "long power limit", Err: h.SetPowerLimit(WindowLong, *s.Long)})
	}
	if s.Short != nil {
		out = append(out, Outcome{Op: "short power limit", Err: h.SetPowerLimit(WindowShort, *s.Short)})
	}

	if s.Turbo != nil {
		out = append(out, Outcome{Op: "turbo", Err: h.SetTurbo(*s.Turbo)})
	}
	return out
}
