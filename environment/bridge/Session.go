package bridge

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/traffiti/environment"
)

// Session is a running SUMO simulation controlled through the bridge
type Session struct {
	client *Client
}

// NewSession returns a Session whose requests are sent with client
func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// Phase returns the current phase index of a traffic light
func (s *Session) Phase(tls string) (int, error) {
	var resp struct {
		Phase int `msgpack:"phase"`
	}
	err := s.client.Call(Phase, Params{"tls": tls}, &resp)
	return resp.Phase, err
}

// SetPhase switches a traffic light to a phase index
func (s *Session) SetPhase(tls string, index int) error {
	return s.client.Call(SetPhase, Params{"tls": tls, "index": index}, nil)
}

// LaneVehicles returns the IDs of the vehicles on a lane during the
// last step
func (s *Session) LaneVehicles(lane string) ([]string, error) {
	var resp struct {
		Vehicles []string `msgpack:"vehicles"`
	}
	err := s.client.Call(LaneVehicles, Params{"lane": lane}, &resp)
	return resp.Vehicles, err
}

// VehiclePosition returns the position of a vehicle along its lane
func (s *Session) VehiclePosition(id string) (float64, error) {
	var resp struct {
		Position float64 `msgpack:"position"`
	}
	err := s.client.Call(VehiclePosition, Params{"id": id}, &resp)
	return resp.Position, err
}

// VehicleSpeed returns the speed of a vehicle
func (s *Session) VehicleSpeed(id string) (float64, error) {
	var resp struct {
		Speed float64 `msgpack:"speed"`
	}
	err := s.client.Call(VehicleSpeed, Params{"id": id}, &resp)
	return resp.Speed, err
}

// Halting returns the number of halted vehicles on a lane during the
// last step
func (s *Session) Halting(lane string) (int, error) {
	var resp struct {
		Halting int `msgpack:"halting"`
	}
	err := s.client.Call(Halting, Params{"lane": lane}, &resp)
	return resp.Halting, err
}

// Step advances the simulation by a single step
func (s *Session) Step() error {
	return s.client.Call(Step, nil, nil)
}

// Close stops the simulation and closes the connection to the bridge.
// The connection is closed even if the simulation could not be stopped.
func (s *Session) Close() error {
	stopErr := s.client.Call(Stop, nil, nil)
	closeErr := s.client.Close()
	if err := errors.Join(stopErr, closeErr); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

var _ environment.Simulator = &Session{}
