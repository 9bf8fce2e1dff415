package config

import (
	"math"
	"sort"
)

// Preset adjusts the default configuration for one scenario.
type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"reference": {
		Description: "default bar, k=200, pushed nowhere",
		apply:       func(*Config) {},
	},
	"soft": {
		Description: "floppy bar, k=50",
		apply:       func(c *Config) { c.Solver.K = 50 },
	},
	"stiff": {
		Description: "stiff bar, k=800",
		apply:       func(c *Config) { c.Solver.K = 800 },
	},
	"wobble": {
		Description: "counter-clockwise torque on the top ring",
		apply: func(c *Config) {
			c.Run.Mode = "torque-ccw"
			c.Run.Frames = 300
		},
	},
	"drop": {
		Description: "nothing pinned, bar falls onto the floor",
		apply: func(c *Config) {
			c.Topology.PinBelow = math.Inf(-1)
			c.Generate.Depth = 0
			c.Generate.Lift = 2
			c.Run.Frames = 240
		},
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
