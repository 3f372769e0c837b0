package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/samuelfneumann/traffiti/agent"
	"github.com/samuelfneumann/traffiti/environment"
	"github.com/samuelfneumann/traffiti/experiment/trackers"
	"github.com/samuelfneumann/traffiti/features"
	"github.com/samuelfneumann/traffiti/reward"
	"github.com/samuelfneumann/traffiti/routes"
	"github.com/samuelfneumann/traffiti/timestep"
	"github.com/samuelfneumann/traffiti/utils/progressbar"
	"gonum.org/v1/gonum/stat"
)

// OnlineConfig describes the episodes run by an Online experiment
type OnlineConfig struct {
	Steps        int // Control steps per episode
	Demand       routes.Config
	Intersection environment.Intersection
	Encoder      features.Encoder
	Reward       reward.Config

	// Progress, if not nil, receives a progress bar of each episode
	Progress io.Writer
}

// DefaultOnlineConfig returns the configuration of the default cross
// network
func DefaultOnlineConfig() OnlineConfig {
	return OnlineConfig{
		Steps:        1500,
		Demand:       routes.DefaultConfig(),
		Intersection: environment.DefaultIntersection(),
		Encoder:      features.NewEncoder(),
		Reward:       reward.Default(),
	}
}

// Validate returns an error describing whether the OnlineConfig is
// valid
func (c OnlineConfig) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("validate: steps per episode must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.Steps)
	}
	if err := c.Demand.Validate(); err != nil {
		return err
	}
	if err := c.Intersection.Validate(); err != nil {
		return err
	}
	if err := c.Encoder.Validate(); err != nil {
		return err
	}
	return c.Reward.Validate()
}

// Online is an Experiment that runs an agent online. Each step of an
// episode observes the intersection, rewards the agent, lets it learn
// and applies its next action. In evaluation mode the agent only acts.
type Online struct {
	backend  environment.Backend
	agent    agent.Agent
	config   OnlineConfig
	trackers []trackers.Tracker
}

// NewOnline creates and returns a new online experiment which runs
// episodes on sessions started by backend with agent a. The t parameter
// is a slice of trackers.Tracker which determine what data is saved.
func NewOnline(backend environment.Backend, a agent.Agent, c OnlineConfig,
	t ...trackers.Tracker) (*Online, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newonline: %w", err)
	}
	return &Online{backend: backend, agent: a, config: c, trackers: t}, nil
}

// Register registers a trackers.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// episode holds the history of the episode being run
type episode struct {
	sim     environment.Simulator
	costs   []float64
	lights  []int
	rewards []float64
}

// observe observes the intersection and returns the resulting timestep.
// The reward is only computed for steps after the first.
func (o *Online) observe(e *episode, t timestep.StepType,
	n int) (timestep.TimeStep, error) {
	c := o.config

	phase, err := c.Intersection.ObservePhase(e.sim)
	if err != nil {
		return timestep.TimeStep{}, err
	}
	e.lights = append(e.lights, phase)

	lanes, err := features.Observe(e.sim, c.Intersection.Lanes)
	if err != nil {
		return timestep.TimeStep{}, err
	}
	state := c.Encoder.Encode(lanes, phase)

	cost, err := c.Intersection.Cost(e.sim)
	if err != nil {
		return timestep.TimeStep{}, err
	}
	e.costs = append(e.costs, cost)

	var r float64
	if t != timestep.First {
		r = c.Reward.Reward(e.costs, e.lights)
		e.rewards = append(e.rewards, r)
	}

	return timestep.New(t, r, cost, phase, state, n), nil
}

// act selects an action in step and applies it to the intersection
func (o *Online) act(e *episode, step timestep.TimeStep) (int, error) {
	action := o.agent.SelectAction(step.Observation)
	return action, o.config.Intersection.Apply(e.sim, action)
}

// RunEpisode runs a single episode of the experiment on a new
// simulation session and returns its Report. The session is closed
// whether or not the episode finishes.
func (o *Online) RunEpisode(ctx context.Context) (r trackers.Report,
	err error) {
	epoch := o.agent.NextEpoch()
	demand := routes.Generate(o.config.Demand)

	sim, err := o.backend.Start(ctx, demand)
	if err != nil {
		return trackers.Report{}, fmt.Errorf("runepisode: epoch %v: %w",
			epoch, err)
	}
	defer func() {
		if closeErr := sim.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("runepisode: %w", closeErr))
		}
	}()

	e := &episode{sim: sim}
	if err := o.run(e, epoch); err != nil {
		return trackers.Report{}, fmt.Errorf("runepisode: epoch %v: %w",
			epoch, err)
	}

	r = trackers.Report{
		Epoch:      epoch,
		MeanCost:   stat.Mean(e.costs, nil),
		MeanReward: stat.Mean(e.rewards, nil),
		Steps:      len(e.rewards),
		Epsilon:    o.agent.Epsilon(),
	}
	log.Printf("epoch %v: mean cost %.3f, mean reward %.3f, epsilon %.3f",
		r.Epoch, r.MeanCost, r.MeanReward, r.Epsilon)

	for _, t := range o.trackers {
		if err := t.Track(r); err != nil {
			return r, fmt.Errorf("runepisode: %w", err)
		}
	}

	if path, err := o.agent.Checkpoint(); err != nil {
		return r, fmt.Errorf("runepisode: %w", err)
	} else if path != "" {
		log.Printf("epoch %v: saved parameters to %v", epoch, path)
	}

	return r, nil
}

// run runs the steps of an episode
func (o *Online) run(e *episode, epoch int) error {
	var bar *progressbar.ManualProgressBar
	if o.config.Progress != nil {
		bar = progressbar.NewManualProgressBar(o.config.Progress, 50,
			o.config.Steps)
		bar.SetLabel(fmt.Sprintf("epoch %v", epoch))
		defer bar.Close()
	}

	step, err := o.observe(e, timestep.First, 0)
	if err != nil {
		return err
	}
	action, err := o.act(e, step)
	if err != nil {
		return err
	}

	for i := 1; i <= o.config.Steps; i++ {
		if err := e.sim.Step(); err != nil {
			return err
		}

		t := timestep.Mid
		if i == o.config.Steps {
			t = timestep.Last
		}
		next, err := o.observe(e, t, i)
		if err != nil {
			return err
		}

		if !o.agent.IsEval() {
			tr := timestep.FromSteps(step, action, next)
			if err := o.agent.Memorize(tr); err != nil {
				return err
			}
			o.agent.Train()
		}

		step = next
		if action, err = o.act(e, step); err != nil {
			return err
		}

		if bar != nil {
			bar.Increment()
			if i%10 == 0 || step.Last() {
				bar.Display()
			}
		}
	}
	return nil
}

// Run runs epochs episodes one after another. The context is checked
// before each episode starts.
func (o *Online) Run(ctx context.Context, epochs int) error {
	for i := 0; i < epochs; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if _, err := o.RunEpisode(ctx); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers
func (o *Online) Save() error {
	var errs []error
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

var _ Experiment = &Online{}
