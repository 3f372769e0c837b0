// Package trackers implements Trackers, which track and save the
// results of each episode in an experiment
package trackers

import "fmt"

// Report summarises a single episode
type Report struct {
	Epoch      int
	MeanCost   float64 // Mean halting count over each step of the episode
	MeanReward float64
	Steps      int
	Epsilon    float64 // Exploration rate at the end of the episode
}

// String returns the results line of the Report
func (r Report) String() string {
	return fmt.Sprintf("%d: %.3f, %.3f", r.Epoch, r.MeanCost, r.MeanReward)
}

// Tracker keeps track of experiment results and saves them
type Tracker interface {
	// Track is called once at the end of each episode
	Track(r Report) error

	// Save saves all tracked data
	Save() error
}
