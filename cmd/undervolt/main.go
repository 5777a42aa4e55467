// Command undervolt applies voltage offsets, power limits, throttle
// temperatures and turbo state to Intel CPUs through their
// model-specific registers. It needs root and the msr kernel module.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/zapr"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/georgewhewell/undervolt/pkg/throttlestop"
	"github.com/georgewhewell/undervolt/pkg/undervolt"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		verbose = flag.BoolP("verbose", "v", false, "log every register access")
		read    = flag.Bool("read", false, "print the current state and exit")
		force   = flag.Bool("force", false, "allow positive (overvolting) offsets")

		temp    = flag.Int("temp", 0, "throttle temperature in °C")
		tempBat = flag.Int("temp-bat", 0, "throttle temperature on battery in °C")

		long  = flag.Float64Slice("power-limit-long", nil, "sustained power limit as watts,seconds")
		short = flag.Float64Slice("power-limit-short", nil, "burst power limit as watts,seconds")
		lock  = flag.Bool("lock-power-limit", false, "latch the power limit register until reset")
		mmio  = flag.Bool("mmio", false, "mirror power limit writes into the memory-mapped register copy")

		turbo = flag.Int("turbo", -1, "the turbo disable bit: 0 enables turbo, 1 disables it")

		tsFile  = flag.String("throttlestop", "", "import voltage offsets from a ThrottleStop ini file")
		tsIndex = flag.Int("tsindex", 0, "ThrottleStop profile index to import")
	)
	planeFlags := make(map[undervolt.Plane]*float64, len(undervolt.Planes))
	for _, p := range undervolt.Planes {
		planeFlags[p] = flag.Float64(p.String(), 0, fmt.Sprintf("%s voltage offset in mV", p))
	}
	flag.Parse()

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if *verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zl, err := zcfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer zl.Sync()
	undervolt.SetLogger(zapr.NewLogger(zl))

	cfg := undervolt.DefaultConfig()
	cfg.MirrorPowerLimit = *mmio
	if node := os.Getenv("AC_STATE_NODE"); node != "" {
		cfg.PowerSupplyACPath = node
	}

	host, err := undervolt.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *read {
		return report(host)
	}

	s := undervolt.Settings{AllowPositive: *force}

	if *tsFile != "" {
		offsets, err := throttlestop.Import(*tsFile, *tsIndex)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		s.Offsets = offsets
	}
	for _, p := range undervolt.Planes {
		if !flag.Lookup(p.String()).Changed {
			continue
		}
		if s.Offsets == nil {
			s.Offsets = make(map[undervolt.Plane]float64)
		}
		s.Offsets[p] = *planeFlags[p]
	}

	if flag.Lookup("temp").Changed {
		s.Temp = temp
	}
	if flag.Lookup("temp-bat").Changed {
		s.TempBattery = tempBat
	}

	if s.Long, err = powerLimitArg("power-limit-long", *long, *lock); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if s.Short, err = powerLimitArg("power-limit-short", *short, *lock); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *turbo == 0 || *turbo == 1 {
		// the flag value is the disable bit, as it always was
		enabled := *turbo == 0
		s.Turbo = &enabled
	}

	outcomes := host.Apply(s)
	if len(outcomes) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to do")
		flag.Usage()
		return 1
	}

	failed := false
	for _, o := range outcomes {
		for _, w := range o.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if o.Failed() {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", o.Op, o.Err)
		}
	}
	if failed {
		return 1
	}
	return 0
}

// powerLimitArg turns a watts,seconds flag pair into a power limit
// request. An absent flag means no request.
func powerLimitArg(name string, vals []float64, lock bool) (*undervolt.PowerLimit, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("--%s wants watts,seconds", name)
	}
	return &undervolt.PowerLimit{
		Watts:   vals[0],
		Seconds: vals[1],
		Enabled: true,
		Locked:  lock,
	}, nil
}

// report prints the current state of everything this tool can change.
// Sections are read independently so one unsupported register does not
// hide the rest.
func report(host *undervolt.Host) int {
	code := 0
	for _, p := range undervolt.Planes {
		mv, err := host.ReadOffset(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p, err)
			code = 1
			continue
		}
		fmt.Printf("%s: %.2f mV\n", p, mv)
	}

	if t, err := host.ReadTempTarget(); err != nil {
		fmt.Fprintf(os.Stderr, "temperature target: %v\n", err)
		code = 1
	} else {
		fmt.Printf("temperature target: %d°C (max %d°C)\n", t.Target, t.Max)
	}

	if pl, err := host.ReadPowerLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "power limits: %v\n", err)
		code = 1
	} else {
		fmt.Printf("power limit long: %s\n", formatLimit(pl.Long))
		fmt.Printf("power limit short: %s\n", formatLimit(pl.Short))
	}

	if enabled, err := host.ReadTurbo(); err != nil {
		fmt.Fprintf(os.Stderr, "turbo: %v\n", err)
		code = 1
	} else if enabled {
		fmt.Println("turbo: enabled")
	} else {
		fmt.Println("turbo: disabled")
	}
	return code
}

func formatLimit(pl undervolt.PowerLimit) string {
	state := "enabled"
	if !pl.Enabled {
		state = "disabled"
	}
	if pl.Locked {
		state += ", locked"
	}
	return fmt.Sprintf("%g W over %g s (%s)", pl.Watts, pl.Seconds, state)
}
