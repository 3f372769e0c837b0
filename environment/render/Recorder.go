// Package render draws frames of a running intersection simulation
package render

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/samuelfneumann/traffiti/environment"
	"github.com/samuelfneumann/traffiti/routes"
)

// Approach is an incoming lane as drawn in a frame
type Approach struct {
	Lane string

	// Link is the index of the lane's signal in a phase state
	Link int

	// From is the unit vector pointing from the centre of the
	// intersection towards the upstream end of the lane, in pixel
	// coordinates
	From [2]float64
}

// Config describes how frames are drawn
type Config struct {
	TLS   string // Traffic light controller whose signals are drawn
	Dir   string // Directory to save frames to
	Every int    // Draw a frame after every Every steps
	Size  int    // Width and height of frames in pixels

	StopLine float64 // Position of the stop line along each lane
	Range    float64 // Distance upstream of the stop line that is drawn

	Approaches []Approach

	// States holds the signal state of each phase, indexed by phase. Each
	// character is a SUMO link state, for example 'G' or 'g' for green,
	// 'y' for yellow and 'r' for red.
	States []string
}

// DefaultConfig returns the drawing configuration of the default cross
// network
func DefaultConfig(dir string) Config {
	return Config{
		TLS:      "0",
		Dir:      dir,
		Every:    1,
		Size:     600,
		StopLine: 495.25,
		Range:    200,
		Approaches: []Approach{
			{Lane: "1i_0", Link: 3, From: [2]float64{-1, 0}},
			{Lane: "2i_0", Link: 1, From: [2]float64{1, 0}},
			{Lane: "3i_0", Link: 2, From: [2]float64{0, 1}},
			{Lane: "4i_0", Link: 0, From: [2]float64{0, -1}},
		},
		States: []string{"GrGr", "yryr", "rGrG", "ryry"},
	}
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.TLS == "" {
		return fmt.Errorf("validate: no traffic light controller named")
	}
	if c.Dir == "" {
		return fmt.Errorf("validate: no frame directory")
	}
	if c.Every < 1 {
		return fmt.Errorf("validate: frame interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Every)
	}
	if c.Size < 2*junction {
		return fmt.Errorf("validate: frame size too small"+
			"\n\twant(>=%v)\n\thave(%v)", 2*junction, c.Size)
	}
	if c.Range <= 0 {
		return fmt.Errorf("validate: range must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Range)
	}
	for _, a := range c.Approaches {
		for _, s := range c.States {
			if a.Link < 0 || a.Link >= len(s) {
				return fmt.Errorf("validate: lane %v uses link %v but "+
					"state %q has %v links", a.Lane, a.Link, s, len(s))
			}
		}
	}
	return nil
}

// Half-width of the junction box in pixels
const junction = 24

var (
	background = color.RGBA{0x3a, 0x7d, 0x44, 0xff}
	road       = color.RGBA{0x50, 0x50, 0x50, 0xff}
	car        = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	halted     = color.RGBA{0xff, 0xa5, 0x00, 0xff}

	green  = color.RGBA{0x00, 0xe0, 0x00, 0xff}
	yellow = color.RGBA{0xff, 0xe0, 0x00, 0xff}
	red    = color.RGBA{0xe0, 0x00, 0x00, 0xff}
)

// signal returns the colour of a link's signal state. States other than
// green and yellow, such as SUMO's off or stop states, are drawn red.
func signal(state byte) color.Color {
	switch state {
	case 'G', 'g':
		return green
	case 'y', 'Y', 'u':
		return yellow
	default:
		return red
	}
}

// Recorder is a Simulator that draws a frame of the intersection after
// every Every steps
type Recorder struct {
	environment.Simulator
	config Config
	steps  int
	frames int
}

// New returns a Recorder drawing frames of sim
func New(sim environment.Simulator, c Config) (*Recorder, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("new: could not create frame directory: %w",
			err)
	}

	return &Recorder{Simulator: sim, config: c}, nil
}

// Step advances the simulation and draws a frame if needed
func (r *Recorder) Step() error {
	if err := r.Simulator.Step(); err != nil {
		return err
	}

	r.steps++
	if r.steps%r.config.Every == 0 {
		if _, err := r.Render(); err != nil {
			return fmt.Errorf("step: %w", err)
		}
	}
	return nil
}

// Frames returns the number of frames drawn so far
func (r *Recorder) Frames() int {
	return r.frames
}

// Render draws the current state of the intersection and returns the
// path of the saved frame
func (r *Recorder) Render() (string, error) {
	c := r.config
	size := float64(c.Size)
	centre := size / 2
	scale := (centre - junction) / c.Range

	phase, err := r.Simulator.Phase(c.TLS)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	dc := gg.NewContext(c.Size, c.Size)
	dc.SetColor(background)
	dc.Clear()

	// Roads
	dc.SetColor(road)
	dc.DrawRectangle(0, centre-junction, size, 2*junction)
	dc.DrawRectangle(centre-junction, 0, 2*junction, size)
	dc.Fill()

	for _, a := range c.Approaches {
		ids, err := r.Simulator.LaneVehicles(a.Lane)
		if err != nil {
			return "", fmt.Errorf("render: %w", err)
		}

		// Offset vehicles to the right hand side of the road
		side := [2]float64{-a.From[1], a.From[0]}
		offset := junction / 2.

		for _, id := range ids {
			pos, err := r.Simulator.VehiclePosition(id)
			if err != nil {
				return "", fmt.Errorf("render: %w", err)
			}
			speed, err := r.Simulator.VehicleSpeed(id)
			if err != nil {
				return "", fmt.Errorf("render: %w", err)
			}

			dist := c.StopLine - pos
			if dist < 0 || dist >= c.Range {
				continue
			}
			d := junction + dist*scale
			x := centre + a.From[0]*d + side[0]*offset
			y := centre + a.From[1]*d + side[1]*offset

			if speed < 0.1 {
				dc.SetColor(halted)
			} else {
				dc.SetColor(car)
			}
			dc.DrawCircle(x, y, 4)
			dc.Fill()
		}

		// Signal
		if phase >= 0 && phase < len(c.States) {
			dc.SetColor(signal(c.States[phase][a.Link]))
			x := centre + a.From[0]*junction + side[0]*offset
			y := centre + a.From[1]*junction + side[1]*offset
			dc.DrawCircle(x, y, 6)
			dc.Fill()
		}
	}

	dc.SetColor(color.White)
	dc.DrawStringAnchored(fmt.Sprintf("step %v  phase %v", r.steps, phase),
		8, 8, 0, 1)

	path := filepath.Join(c.Dir, fmt.Sprintf("frame%06d.png", r.frames))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("render: could not save frame: %w", err)
	}
	r.frames++
	return path, nil
}

// Backend starts sessions on an underlying Backend and records each of
// them into its own numbered subdirectory of the frame directory
type Backend struct {
	environment.Backend
	Config

	sessions int
}

// Start starts a new recorded session
func (b *Backend) Start(ctx context.Context,
	d routes.Demand) (environment.Simulator, error) {
	sim, err := b.Backend.Start(ctx, d)
	if err != nil {
		return nil, err
	}

	c := b.Config
	c.Dir = filepath.Join(c.Dir, fmt.Sprint(b.sessions))
	rec, err := New(sim, c)
	if err != nil {
		sim.Close()
		return nil, fmt.Errorf("start: %w", err)
	}

	b.sessions++
	return rec, nil
}
