package intersection

import (
	"fmt"
	"strings"
)

// Phase is a single phase of a static traffic light program. Each
// character of State is the signal of one link: 'G' or 'g' for green,
// 'y' for yellow and 'r' for red. Vehicles stop for yellow.
type Phase struct {
	State    string
	Duration int // Steps
}

// green returns whether link i may cross in the phase
func (p Phase) green(i int) bool {
	return p.State[i] == 'G' || p.State[i] == 'g'
}

// Config describes the built-in intersection
type Config struct {
	TLS        string  // Name of the traffic light controller
	LaneLength float64 // Length of each incoming lane, ending at the stop line
	MinSpeed   float64 // Speed below which a vehicle is halting

	// Links lists the incoming lane controlled by each signal of a
	// Phase State
	Links   []string
	Program []Phase
}

// DefaultConfig returns the configuration of the default cross network
func DefaultConfig() Config {
	return Config{
		TLS:        "0",
		LaneLength: 495.25,
		MinSpeed:   0.1,
		Links:      []string{"4i_0", "2i_0", "3i_0", "1i_0"},
		Program: []Phase{
			{State: "GrGr", Duration: 31},
			{State: "yryr", Duration: 6},
			{State: "rGrG", Duration: 31},
			{State: "ryry", Duration: 6},
		},
	}
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.TLS == "" {
		return fmt.Errorf("validate: no traffic light controller named")
	}
	if c.LaneLength <= 0 {
		return fmt.Errorf("validate: lane length must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.LaneLength)
	}
	if len(c.Links) == 0 {
		return fmt.Errorf("validate: no controlled links")
	}
	if len(c.Program) == 0 {
		return fmt.Errorf("validate: empty traffic light program")
	}

	for i, p := range c.Program {
		if len(p.State) != len(c.Links) {
			return fmt.Errorf("validate: phase %v controls %v links but "+
				"there are %v", i, len(p.State), len(c.Links))
		}
		if strings.Trim(p.State, "Ggyr") != "" {
			return fmt.Errorf("validate: phase %v has illegal state %q", i,
				p.State)
		}
		if p.Duration < 1 {
			return fmt.Errorf("validate: phase %v must have positive "+
				"duration\n\thave(%v)", i, p.Duration)
		}
	}
	return nil
}
