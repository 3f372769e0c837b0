// Package routes generates the vehicle demand at the intersection and
// writes it as a SUMO route file.
package routes

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Route names. A route is named for the direction in which its vehicles
// travel across the intersection.
const (
	Right = "right" // West to east
	Left  = "left"  // East to west
	Down  = "down"  // North to south
	Up    = "up"    // South to north
)

// Vehicle type names
const (
	TypeWE = "typeWE"
	TypeNS = "typeNS"
)

// VType describes a class of vehicles
type VType struct {
	ID       string
	Accel    float64
	Decel    float64
	Sigma    float64
	Length   float64
	MinGap   float64
	MaxSpeed float64
	GUIShape string
}

// Route is a named sequence of edges
type Route struct {
	ID    string
	Edges []string
}

// Vehicle is a single vehicle departure
type Vehicle struct {
	ID     string
	Type   string
	Route  string
	Depart int
	Color  string
}

// Demand is the full traffic demand of one episode
type Demand struct {
	VTypes   []VType
	Routes   []Route
	Vehicles []Vehicle
}

// VType returns the vehicle type with the given id
func (d Demand) VType(id string) (VType, bool) {
	for _, v := range d.VTypes {
		if v.ID == id {
			return v, true
		}
	}
	return VType{}, false
}

// Route returns the route with the given id
func (d Demand) Route(id string) (Route, bool) {
	for _, r := range d.Routes {
		if r.ID == id {
			return r, true
		}
	}
	return Route{}, false
}

// Config describes how demand is generated. Each P* field is the
// per-step probability that a vehicle departs in that direction.
type Config struct {
	Seed  uint64
	Steps int
	PWE   float64
	PEW   float64
	PNS   float64
	PSN   float64
}

// DefaultConfig returns the demand used to train the controller
func DefaultConfig() Config {
	return Config{
		Seed:  69,
		Steps: 1500,
		PWE:   1. / 10,
		PEW:   1. / 11,
		PNS:   1. / 30,
		PSN:   1. / 31,
	}
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("validate: demand steps must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Steps)
	}
	for _, p := range []float64{c.PWE, c.PEW, c.PNS, c.PSN} {
		if p < 0 || p > 1 {
			return fmt.Errorf("validate: departure probability must be in "+
				"[0, 1]\n\thave(%v)", p)
		}
	}
	return nil
}

// VTypes returns the vehicle types used at the intersection
func VTypes() []VType {
	return []VType{
		{
			ID:       TypeWE,
			Accel:    0.8,
			Decel:    4.5,
			Sigma:    0.5,
			Length:   5,
			MinGap:   2.5,
			MaxSpeed: 16.67,
			GUIShape: "passenger",
		},
		{
			ID:       TypeNS,
			Accel:    0.8,
			Decel:    4.5,
			Sigma:    0.5,
			Length:   7,
			MinGap:   3,
			MaxSpeed: 25,
			GUIShape: "bus",
		},
	}
}

// Routes returns the four routes crossing the intersection
func Routes() []Route {
	return []Route{
		{ID: Right, Edges: []string{"51o", "1i", "2o", "52i"}},
		{ID: Left, Edges: []string{"52o", "2i", "1o", "51i"}},
		{ID: Down, Edges: []string{"54o", "4i", "3o", "53i"}},
		{ID: Up, Edges: []string{"53o", "3i", "4o", "54i"}},
	}
}

// Generate generates the demand described by c. Calling Generate twice
// with the same Config returns identical demand.
func Generate(c Config) Demand {
	rng := rand.New(rand.NewSource(c.Seed))

	flows := []struct {
		route string
		vtype string
		p     float64
		color string
	}{
		{Right, TypeWE, c.PWE, ""},
		{Left, TypeWE, c.PEW, ""},
		{Down, TypeNS, c.PNS, "1,0,0"},
		{Up, TypeNS, c.PSN, "1,0,0"},
	}

	var vehicles []Vehicle
	vehNr := 0
	for i := 0; i < c.Steps; i++ {
		for _, f := range flows {
			if rng.Float64() < f.p {
				vehicles = append(vehicles, Vehicle{
					ID:     fmt.Sprintf("%s_%d", f.route, vehNr),
					Type:   f.vtype,
					Route:  f.route,
					Depart: i,
					Color:  f.color,
				})
				vehNr++
			}
		}
	}

	return Demand{
		VTypes:   VTypes(),
		Routes:   Routes(),
		Vehicles: vehicles,
	}
}
