// Package intersection implements a small deterministic
// micro-simulation of a single signalised intersection with one
// incoming lane per approach.
//
// Vehicles accelerate towards their maximum speed, keep their minimum
// gap to the vehicle in front and stop at the stop line unless their
// signal is green. A vehicle leaves the simulation once it crosses the
// stop line. Each step simulates one second.
package intersection

import (
	"context"
	"fmt"
	"sort"

	"github.com/samuelfneumann/traffiti/environment"
	"github.com/samuelfneumann/traffiti/routes"
)

type vehicle struct {
	id    string
	vtype routes.VType
	pos   float64 // Position of the front bumper along the lane
	speed float64
}

type lane struct {
	link     int        // Signal index of the lane
	vehicles []*vehicle // Front to back

	// Departed vehicles waiting for space at the lane entry
	pending []*vehicle
}

// departure is a vehicle scheduled to enter a lane
type departure struct {
	depart int
	lane   string
	v      *vehicle
}

// Sim is a running simulation of the intersection
type Sim struct {
	config Config

	lanes     map[string]*lane
	vehicles  map[string]*vehicle
	schedule  []departure
	next      int // Index of the next departure in schedule
	time      int
	phase     int
	phaseTime int
	arrived   int
	closed    bool
}

// New returns a new simulation of the demand d
func New(c Config, d routes.Demand) (*Sim, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	lanes := make(map[string]*lane, len(c.Links))
	for i, name := range c.Links {
		lanes[name] = &lane{link: i}
	}

	schedule := make([]departure, 0, len(d.Vehicles))
	for _, v := range d.Vehicles {
		route, ok := d.Route(v.Route)
		if !ok {
			return nil, fmt.Errorf("new: vehicle %v has unknown route %v",
				v.ID, v.Route)
		}
		vtype, ok := d.VType(v.Type)
		if !ok {
			return nil, fmt.Errorf("new: vehicle %v has unknown type %v",
				v.ID, v.Type)
		}

		name, err := incoming(route)
		if err != nil {
			return nil, fmt.Errorf("new: %w", err)
		}
		if _, ok := lanes[name]; !ok {
			return nil, fmt.Errorf("new: route %v enters through "+
				"uncontrolled lane %v", route.ID, name)
		}

		schedule = append(schedule, departure{
			depart: v.Depart,
			lane:   name,
			v:      &vehicle{id: v.ID, vtype: vtype},
		})
	}
	sort.SliceStable(schedule, func(i, j int) bool {
		return schedule[i].depart < schedule[j].depart
	})

	return &Sim{
		config:   c,
		lanes:    lanes,
		vehicles: make(map[string]*vehicle),
		schedule: schedule,
	}, nil
}

// incoming returns the lane through which a route approaches the
// intersection: the first lane of its second edge
func incoming(r routes.Route) (string, error) {
	if len(r.Edges) < 2 {
		return "", fmt.Errorf("route %v has no incoming edge", r.ID)
	}
	return r.Edges[1] + "_0", nil
}

func (s *Sim) checkOpen(op string) error {
	if s.closed {
		return fmt.Errorf("%v: simulation closed", op)
	}
	return nil
}

func (s *Sim) checkTLS(op, tls string) error {
	if err := s.checkOpen(op); err != nil {
		return err
	}
	if tls != s.config.TLS {
		return fmt.Errorf("%v: unknown traffic light %q", op, tls)
	}
	return nil
}

func (s *Sim) lane(op, name string) (*lane, error) {
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	l, ok := s.lanes[name]
	if !ok {
		return nil, fmt.Errorf("%v: unknown lane %q", op, name)
	}
	return l, nil
}

func (s *Sim) vehicle(op, id string) (*vehicle, error) {
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}
	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%v: unknown vehicle %q", op, id)
	}
	return v, nil
}

// Phase returns the current phase index of the traffic light
func (s *Sim) Phase(tls string) (int, error) {
	if err := s.checkTLS("phase", tls); err != nil {
		return 0, err
	}
	return s.phase, nil
}

// SetPhase switches the traffic light to a phase and restarts the
// phase timer
func (s *Sim) SetPhase(tls string, index int) error {
	if err := s.checkTLS("setphase", tls); err != nil {
		return err
	}
	if index < 0 || index >= len(s.config.Program) {
		return fmt.Errorf("setphase: phase index %v out of range [0, %v)",
			index, len(s.config.Program))
	}

	s.phase = index
	s.phaseTime = 0
	return nil
}

// LaneVehicles returns the IDs of the vehicles on a lane, front to back
func (s *Sim) LaneVehicles(name string) ([]string, error) {
	l, err := s.lane("lanevehicles", name)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(l.vehicles))
	for i, v := range l.vehicles {
		ids[i] = v.id
	}
	return ids, nil
}

// VehiclePosition returns the position of a vehicle along its lane
func (s *Sim) VehiclePosition(id string) (float64, error) {
	v, err := s.vehicle("vehicleposition", id)
	if err != nil {
		return 0, err
	}
	return v.pos, nil
}

// VehicleSpeed returns the speed of a vehicle
func (s *Sim) VehicleSpeed(id string) (float64, error) {
	v, err := s.vehicle("vehiclespeed", id)
	if err != nil {
		return 0, err
	}
	return v.speed, nil
}

// Halting returns the number of vehicles on a lane moving slower than
// the configured minimum speed
func (s *Sim) Halting(name string) (int, error) {
	l, err := s.lane("halting", name)
	if err != nil {
		return 0, err
	}

	halting := 0
	for _, v := range l.vehicles {
		if v.speed < s.config.MinSpeed {
			halting++
		}
	}
	return halting, nil
}

// Step advances the simulation by one second
func (s *Sim) Step() error {
	if err := s.checkOpen("step"); err != nil {
		return err
	}

	for ; s.next < len(s.schedule); s.next++ {
		d := s.schedule[s.next]
		if d.depart > s.time {
			break
		}
		l := s.lanes[d.lane]
		l.pending = append(l.pending, d.v)
	}

	program := s.config.Program[s.phase]
	for _, l := range s.lanes {
		s.insert(l)
		s.move(l, program.green(l.link))
	}

	s.time++
	s.phaseTime++
	if s.phaseTime >= program.Duration {
		s.phase = (s.phase + 1) % len(s.config.Program)
		s.phaseTime = 0
	}
	return nil
}

// insert moves the first pending vehicle onto the lane if the lane
// entry is free
func (s *Sim) insert(l *lane) {
	if len(l.pending) == 0 {
		return
	}
	v := l.pending[0]

	if n := len(l.vehicles); n > 0 {
		last := l.vehicles[n-1]
		if last.pos-last.vtype.Length < v.vtype.MinGap {
			return
		}
	}

	l.pending = l.pending[1:]
	v.pos, v.speed = 0, 0
	l.vehicles = append(l.vehicles, v)
	s.vehicles[v.id] = v
}

// move advances all vehicles on a lane, front to back
func (s *Sim) move(l *lane, green bool) {
	end := s.config.LaneLength
	kept := l.vehicles[:0]

	var leader *vehicle
	for _, v := range l.vehicles {
		speed := v.speed + v.vtype.Accel
		if speed > v.vtype.MaxSpeed {
			speed = v.vtype.MaxSpeed
		}

		if leader != nil {
			gap := leader.pos - leader.vtype.Length - v.vtype.MinGap - v.pos
			speed = clamp(speed, gap)
		} else if !green {
			speed = clamp(speed, end-v.pos)
		}

		v.speed = speed
		v.pos += speed

		if leader == nil && green && v.pos >= end {
			delete(s.vehicles, v.id)
			s.arrived++
			continue
		}

		kept = append(kept, v)
		leader = v
	}

	for i := len(kept); i < len(l.vehicles); i++ {
		l.vehicles[i] = nil
	}
	l.vehicles = kept
}

// clamp limits speed so that a vehicle travels at most gap in a step
func clamp(speed, gap float64) float64 {
	if gap < 0 {
		gap = 0
	}
	if speed > gap {
		return gap
	}
	return speed
}

// Close ends the simulation
func (s *Sim) Close() error {
	if err := s.checkOpen("close"); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// Time returns the number of steps simulated
func (s *Sim) Time() int {
	return s.time
}

// Arrived returns the number of vehicles which have crossed the stop
// line
func (s *Sim) Arrived() int {
	return s.arrived
}

// Pending returns the number of departed vehicles waiting to enter a lane
func (s *Sim) Pending(name string) int {
	if l, ok := s.lanes[name]; ok {
		return len(l.pending)
	}
	return 0
}

// Config returns the configuration of the simulation
func (s *Sim) Config() Config {
	return s.config
}

// Backend starts simulations of the built-in intersection
type Backend struct {
	Config Config
}

// NewBackend returns a Backend simulating the default cross network
func NewBackend() Backend {
	return Backend{Config: DefaultConfig()}
}

// Start starts a new simulation of the demand d
func (b Backend) Start(ctx context.Context,
	d routes.Demand) (environment.Simulator, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	sim, err := New(b.Config, d)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return sim, nil
}

var _ environment.Simulator = &Sim{}
var _ environment.Backend = Backend{}
