// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"

	"github.com/samuelfneumann/traffiti/experiment/trackers"
)

// Experiment outlines structs that can run experiments. The Run()
// method runs a number of episodes one after another, and the
// RunEpisode() method runs a single episode against a fresh simulation
// session.
//
// At the end of each episode, Experiments send a Report of the episode
// to each registered Tracker using the Tracker's Track() method. The
// Save() method then asks each Tracker to save its data. New Trackers
// can be registered with an Experiment through the constructor or
// through an Experiment's Register() method.
type Experiment interface {
	Run(ctx context.Context, epochs int) error
	RunEpisode(ctx context.Context) (trackers.Report, error)

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment
	Register(t trackers.Tracker)

	// Save all tracked data
	Save() error
}
