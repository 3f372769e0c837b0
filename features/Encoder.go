// Package features encodes raw lane snapshots of an intersection into
// the fixed-size state vectors consumed by the agent
package features

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/traffiti/environment"
	"gonum.org/v1/gonum/mat"
)

// Vehicle is a single vehicle seen on a lane
type Vehicle struct {
	Position float64
	Speed    float64
}

// Lane is a snapshot of all vehicles on a lane
type Lane []Vehicle

// Encoder discretises the approach to the stop line of each lane into
// cells. For each lane, the Encoder produces an occupancy channel
// followed by a speed channel, each with one entry per cell. A single
// trailing entry holds the phase indicator.
type Encoder struct {
	// LaneLength is the length of the approach that is observed,
	// measured back from the stop line
	LaneLength float64

	// CellLength is the length of a single cell
	CellLength float64

	// StopLine is the lane position of the stop line
	StopLine float64
}

// NewEncoder returns the Encoder for the default cross network
func NewEncoder() Encoder {
	return Encoder{
		LaneLength: 200,
		CellLength: 8,
		StopLine:   495.25,
	}
}

// Validate returns an error describing whether the Encoder is valid
func (e Encoder) Validate() error {
	if e.LaneLength <= 0 {
		return fmt.Errorf("validate: lane length must be positive"+
			"\n\twant(>0)\n\thave(%v)", e.LaneLength)
	}
	if e.CellLength <= 0 {
		return fmt.Errorf("validate: cell length must be positive"+
			"\n\twant(>0)\n\thave(%v)", e.CellLength)
	}
	if e.StopLine < e.LaneLength {
		return fmt.Errorf("validate: stop line must be at least the lane "+
			"length\n\twant(>=%v)\n\thave(%v)", e.LaneLength, e.StopLine)
	}

	cells := e.LaneLength / e.CellLength
	if cells != math.Trunc(cells) {
		return fmt.Errorf("validate: lane length %v is not a multiple of "+
			"cell length %v", e.LaneLength, e.CellLength)
	}
	return nil
}

// Cells returns the number of cells per lane
func (e Encoder) Cells() int {
	return int(e.LaneLength / e.CellLength)
}

// Len returns the length of the state vector for the given number of
// lanes
func (e Encoder) Len(lanes int) int {
	return 2*lanes*e.Cells() + 1
}

// Encode encodes lane snapshots and the phase indicator into a state
// vector. Lanes are laid out in the order given. Only the first vehicle
// seen in a cell sets its occupancy, and only the first vehicle with
// non-zero speed sets its speed.
func (e Encoder) Encode(lanes []Lane, phase int) *mat.VecDense {
	cells := e.Cells()
	state := mat.NewVecDense(e.Len(len(lanes)), nil)

	for i, lane := range lanes {
		occupancy := 2 * i * cells
		speed := occupancy + cells

		for _, v := range lane {
			distance := e.StopLine - v.Position
			if distance < 0 || distance >= e.LaneLength {
				continue
			}
			cell := int(math.Floor(distance / e.CellLength))

			if state.AtVec(occupancy+cell) == 0 {
				state.SetVec(occupancy+cell, 1)
			}
			if state.AtVec(speed+cell) == 0 {
				state.SetVec(speed+cell, v.Speed)
			}
		}
	}

	state.SetVec(state.Len()-1, float64(environment.Indicator(phase)))
	return state
}

// Observe gathers a snapshot of each lane from the simulator, in
// the order given
func Observe(sim environment.Simulator, lanes []string) ([]Lane, error) {
	snapshots := make([]Lane, len(lanes))

	for i, name := range lanes {
		ids, err := sim.LaneVehicles(name)
		if err != nil {
			return nil, fmt.Errorf("observe: %w", err)
		}

		lane := make(Lane, 0, len(ids))
		for _, id := range ids {
			pos, err := sim.VehiclePosition(id)
			if err != nil {
				return nil, fmt.Errorf("observe: %w", err)
			}
			speed, err := sim.VehicleSpeed(id)
			if err != nil {
				return nil, fmt.Errorf("observe: %w", err)
			}
			lane = append(lane, Vehicle{Position: pos, Speed: speed})
		}
		snapshots[i] = lane
	}

	return snapshots, nil
}
