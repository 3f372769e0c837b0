// Package environment outlines the interfaces needed to control a
// single signalised intersection in a traffic simulation
package environment

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/traffiti/routes"
)

// Simulator is a running traffic simulation session. All methods are
// synchronous: each returns only once the simulator has answered.
type Simulator interface {
	// Phase returns the current phase index of a traffic light
	// controller
	Phase(tls string) (int, error)

	// SetPhase switches a traffic light controller to a phase index
	SetPhase(tls string, index int) error

	// LaneVehicles returns the IDs of vehicles on a lane during the
	// last step
	LaneVehicles(lane string) ([]string, error)

	// VehiclePosition returns the longitudinal position of a vehicle
	// along its lane
	VehiclePosition(id string) (float64, error)

	// VehicleSpeed returns the current speed of a vehicle
	VehicleSpeed(id string) (float64, error)

	// Halting returns the number of halted vehicles on a lane during
	// the last step
	Halting(lane string) (int, error)

	// Step advances the simulation by a single step
	Step() error

	// Close ends the simulation session
	Close() error
}

// Backend starts simulation sessions
type Backend interface {
	// Start starts a new session that simulates the argument demand
	Start(ctx context.Context, d routes.Demand) (Simulator, error)
}

// Action is one of the two phases the controller can grant
type Action = int

const (
	// AxisA grants green to the north-south axis
	AxisA Action = 0

	// AxisB grants green to the east-west axis
	AxisB Action = 1

	// NumActions is the number of actions available to the controller
	NumActions = 2
)

// PhaseMap maps an Action to the controller phase index that
// implements it
type PhaseMap [NumActions]int

// DefaultPhaseMap maps AxisA to phase 0 and AxisB to phase 2 of the
// static four phase program
var DefaultPhaseMap = PhaseMap{0, 2}

// Intersection names the traffic light controller and incoming lanes
// that are monitored and controlled
type Intersection struct {
	TLS      string
	Lanes    []string
	PhaseMap PhaseMap
}

// DefaultIntersection returns the controller and lanes of the default
// cross network
func DefaultIntersection() Intersection {
	return Intersection{
		TLS:      "0",
		Lanes:    []string{"1i_0", "2i_0", "3i_0", "4i_0"},
		PhaseMap: DefaultPhaseMap,
	}
}

// Validate returns an error describing whether the Intersection is
// valid
func (i Intersection) Validate() error {
	if i.TLS == "" {
		return fmt.Errorf("validate: no traffic light controller named")
	}
	if len(i.Lanes) == 0 {
		return fmt.Errorf("validate: no lanes to monitor")
	}

	seen := make(map[string]bool, len(i.Lanes))
	for _, lane := range i.Lanes {
		if seen[lane] {
			return fmt.Errorf("validate: lane %q monitored twice", lane)
		}
		seen[lane] = true
	}
	return nil
}

// Indicator reduces a controller phase index to the binary phase
// indicator used by the controller: phase 0 is indicator 0, every other
// phase is indicator 1.
func Indicator(phase int) int {
	if phase == 0 {
		return 0
	}
	return 1
}

// Apply switches the intersection's controller to the phase that
// implements action a
func (i Intersection) Apply(sim Simulator, a Action) error {
	if a < 0 || a >= NumActions {
		panic(fmt.Sprintf("apply: illegal action %v", a))
	}
	if err := sim.SetPhase(i.TLS, i.PhaseMap[a]); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	return nil
}

// ObservePhase returns the phase indicator of the intersection's
// controller
func (i Intersection) ObservePhase(sim Simulator) (int, error) {
	phase, err := sim.Phase(i.TLS)
	if err != nil {
		return 0, fmt.Errorf("observephase: %w", err)
	}
	return Indicator(phase), nil
}

// Cost returns the total number of halted vehicles over all monitored
// lanes
func (i Intersection) Cost(sim Simulator) (float64, error) {
	cost := 0
	for _, lane := range i.Lanes {
		halting, err := sim.Halting(lane)
		if err != nil {
			return 0, fmt.Errorf("cost: %w", err)
		}
		cost += halting
	}
	return float64(cost), nil
}
