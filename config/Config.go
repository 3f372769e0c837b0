// Package config implements the JSON configuration of a traffic light
// control experiment. A Config bundles the configurations of the
// experiment, agent, approximator, environment and demand, and creates
// each of them.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/samuelfneumann/traffiti/agent"
	"github.com/samuelfneumann/traffiti/agent/deepq"
	"github.com/samuelfneumann/traffiti/environment"
	"github.com/samuelfneumann/traffiti/environment/bridge"
	"github.com/samuelfneumann/traffiti/environment/intersection"
	"github.com/samuelfneumann/traffiti/environment/render"
	"github.com/samuelfneumann/traffiti/experiment"
	"github.com/samuelfneumann/traffiti/experiment/trackers"
	"github.com/samuelfneumann/traffiti/features"
	"github.com/samuelfneumann/traffiti/linear"
	"github.com/samuelfneumann/traffiti/network"
	"github.com/samuelfneumann/traffiti/reward"
	"github.com/samuelfneumann/traffiti/routes"
)

// Backend types
const (
	Sumo    = "sumo"
	Builtin = "builtin"
)

// Approximator types
const (
	MLP    = "mlp"
	Linear = "linear"
)

// Experiment configures the episodes that are run and the results that
// are saved
type Experiment struct {
	Epochs int
	Steps  int // Control steps per episode

	Results string // Text results log
	Excel   string // Spreadsheet of results, not written if empty

	// Series is the directory that gob-encoded series of the mean cost
	// and mean reward of each episode are saved to, not written if empty
	Series string

	// Progress displays a progress bar of each episode
	Progress bool
}

// Bridge configures the connection to the SUMO bridge
type Bridge struct {
	Network    string
	Address    string
	ConfigFile string
	RouteFile  string
	TripInfo   string
	Retry      time.Duration
}

// Environment configures the simulated intersection
type Environment struct {
	Backend string
	GUI     bool

	// SumoHome defaults to the SUMO_HOME environment variable
	SumoHome string

	Intersection environment.Intersection
	Encoder      features.Encoder
	Bridge       Bridge
	Builtin      intersection.Config

	// Frames is the directory that frames of the built-in backend are
	// drawn to in GUI mode, once every FrameEvery steps
	Frames     string
	FrameEvery int
}

// Config is the configuration of an experiment
type Config struct {
	Seed uint64

	Experiment   Experiment
	Agent        deepq.Config
	Approximator string
	Network      network.Config
	Reward       reward.Config
	Environment  Environment
	Demand       routes.Config
}

// Default returns the configuration used to train the traffic light
// controller on the default cross network
func Default() Config {
	return Config{
		Seed: 42,
		Experiment: Experiment{
			Epochs:  100,
			Steps:   1500,
			Results: "stats.txt",
		},
		Agent:        deepq.DefaultConfig(),
		Approximator: MLP,
		Network:      network.DefaultConfig(42),
		Reward:       reward.Default(),
		Environment: Environment{
			Backend:      Sumo,
			GUI:          true,
			SumoHome:     os.Getenv("SUMO_HOME"),
			Intersection: environment.DefaultIntersection(),
			Encoder:      features.NewEncoder(),
			Bridge: Bridge{
				Network:    "unix",
				Address:    "/tmp/traffiti.sock",
				ConfigFile: filepath.Join("data", "cross.sumocfg"),
				RouteFile:  filepath.Join("data", "cross.rou.xml"),
				TripInfo:   "tripinfo.xml",
				Retry:      time.Second,
			},
			Builtin:    intersection.DefaultConfig(),
			Frames:     "frames",
			FrameEvery: 1,
		},
		Demand: routes.DefaultConfig(),
	}
}

// Load returns the configuration in the JSON file at path. Fields that
// the file does not set keep their Default() values. The returned
// Config is not validated.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: could not read config: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode config %v: %w",
			path, err)
	}
	return c, nil
}

// Save writes the Config as JSON to path
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("save: could not encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Validate returns an error describing whether the Config is valid
func (c Config) Validate() error {
	if c.Experiment.Epochs < 0 {
		return fmt.Errorf("validate: epochs must be non-negative"+
			"\n\twant(>=0)\n\thave(%v)", c.Experiment.Epochs)
	}

	if err := c.Online().Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}

	size := c.Environment.Encoder.Len(len(c.Environment.Intersection.Lanes))
	if c.Agent.Features != size {
		return fmt.Errorf("validate: agent features do not match the "+
			"state size\n\twant(%v)\n\thave(%v)", size, c.Agent.Features)
	}

	switch c.Approximator {
	case MLP:
		if err := c.Network.Validate(); err != nil {
			return err
		}
		if c.Network.Features != size {
			return fmt.Errorf("validate: network features do not match "+
				"the state size\n\twant(%v)\n\thave(%v)", size,
				c.Network.Features)
		}
		if c.Network.Outputs != environment.NumActions {
			return fmt.Errorf("validate: network outputs do not match the "+
				"number of actions\n\twant(%v)\n\thave(%v)",
				environment.NumActions, c.Network.Outputs)
		}
	case Linear:
	default:
		return fmt.Errorf("validate: unknown approximator %q",
			c.Approximator)
	}

	return c.Environment.validate()
}

func (e Environment) validate() error {
	switch e.Backend {
	case Sumo:
		if _, err := e.bridge(); err != nil {
			return err
		}
	case Builtin:
		if err := e.Builtin.Validate(); err != nil {
			return err
		}
		if math.Abs(e.Encoder.StopLine-e.Builtin.LaneLength) > 1e-9 {
			return fmt.Errorf("validate: encoder stop line does not match "+
				"the built-in lane length\n\twant(%v)\n\thave(%v)",
				e.Builtin.LaneLength, e.Encoder.StopLine)
		}
		if e.GUI {
			if err := e.render().Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("validate: unknown backend %q", e.Backend)
	}
	return nil
}

// Online returns the configuration of the episodes of an experiment
func (c Config) Online() experiment.OnlineConfig {
	demand := c.Demand
	if demand.Steps < c.Experiment.Steps {
		demand.Steps = c.Experiment.Steps
	}

	return experiment.OnlineConfig{
		Steps:        c.Experiment.Steps,
		Demand:       demand,
		Intersection: c.Environment.Intersection,
		Encoder:      c.Environment.Encoder,
		Reward:       c.Reward,
	}
}

// bridge returns the SUMO bridge backend
func (e Environment) bridge() (bridge.Backend, error) {
	b := bridge.Backend{
		Network:       e.Bridge.Network,
		Address:       e.Bridge.Address,
		SumoHome:      e.SumoHome,
		GUI:           e.GUI,
		ConfigFile:    e.Bridge.ConfigFile,
		RouteFile:     e.Bridge.RouteFile,
		TripInfo:      e.Bridge.TripInfo,
		RetryInterval: e.Bridge.Retry,
	}
	return b, b.Validate()
}

// render returns the configuration of frames drawn of the built-in
// backend
func (e Environment) render() render.Config {
	c := render.DefaultConfig(e.Frames)
	c.TLS = e.Builtin.TLS
	c.Every = e.FrameEvery
	c.StopLine = e.Builtin.LaneLength
	c.Range = e.Encoder.LaneLength

	c.States = make([]string, len(e.Builtin.Program))
	for i, p := range e.Builtin.Program {
		c.States[i] = p.State
	}
	return c
}

// Series file names
const (
	CostSeries   = "cost.gob"
	RewardSeries = "reward.gob"
)

// Trackers returns the trackers of the experiment's results. The
// returned function releases the trackers' resources and must be called
// once the trackers have been saved.
func (c Config) Trackers() ([]trackers.Tracker, func() error, error) {
	e := c.Experiment
	t := []trackers.Tracker{trackers.NewText(e.Results)}
	closer := func() error { return nil }

	if e.Excel != "" {
		excel, err := trackers.NewExcel(e.Excel)
		if err != nil {
			return nil, nil, fmt.Errorf("trackers: %w", err)
		}
		t = append(t, excel)
		closer = excel.Close
	}

	if e.Series != "" {
		if err := os.MkdirAll(e.Series, 0o755); err != nil {
			closer()
			return nil, nil, fmt.Errorf("trackers: could not create series "+
				"directory: %w", err)
		}
		t = append(t,
			trackers.NewMeanCost(filepath.Join(e.Series, CostSeries)),
			trackers.NewMeanReward(filepath.Join(e.Series, RewardSeries)),
		)
	}

	return t, closer, nil
}

// Backend returns the backend that starts simulation sessions
func (c Config) Backend() (environment.Backend, error) {
	e := c.Environment
	switch e.Backend {
	case Sumo:
		b, err := e.bridge()
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		return b, nil

	case Builtin:
		b := intersection.Backend{Config: e.Builtin}
		if !e.GUI {
			return b, nil
		}
		r := e.render()
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		return &render.Backend{Backend: b, Config: r}, nil
	}
	return nil, fmt.Errorf("backend: unknown backend %q", e.Backend)
}

// NewApproximator returns the approximator described by the Config
func (c Config) NewApproximator() (agent.Approximator, error) {
	var q agent.Approximator
	var err error

	switch c.Approximator {
	case MLP:
		q, err = network.New(c.Network)
	case Linear:
		q, err = linear.New(c.Agent.Features, environment.NumActions)
	default:
		return nil, fmt.Errorf("newapproximator: unknown approximator %q",
			c.Approximator)
	}

	if err != nil {
		return nil, fmt.Errorf("newapproximator: %w", err)
	}
	return q, nil
}

// NewAgent returns the agent described by the Config, learning with a
// new approximator
func (c Config) NewAgent() (*deepq.DeepQ, error) {
	q, err := c.NewApproximator()
	if err != nil {
		return nil, fmt.Errorf("newagent: %w", err)
	}

	a, err := deepq.New(q, c.Agent, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("newagent: %w", err)
	}
	return a, nil
}
