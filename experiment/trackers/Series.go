package trackers

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Series tracks a single value of each episode's Report and saves all
// values as a gob-encoded []float64.
type Series struct {
	data     []float64
	value    func(Report) float64
	filename string
}

// NewSeries returns a new Series tracker which saves the values
// extracted with value at the location filename
func NewSeries(filename string, value func(Report) float64) *Series {
	return &Series{value: value, filename: filename}
}

// NewMeanCost returns a Series tracking the mean cost of each episode
func NewMeanCost(filename string) *Series {
	return NewSeries(filename, func(r Report) float64 { return r.MeanCost })
}

// NewMeanReward returns a Series tracking the mean reward of each
// episode
func NewMeanReward(filename string) *Series {
	return NewSeries(filename, func(r Report) float64 {
		return r.MeanReward
	})
}

// Track caches the tracked value of r
func (s *Series) Track(r Report) error {
	s.data = append(s.data, s.value(r))
	return nil
}

// Data returns the values tracked so far
func (s *Series) Data() []float64 {
	return append([]float64(nil), s.data...)
}

// Save saves the data tracked by the Series to disk
func (s *Series) Save() error {
	file, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}

	en := gob.NewEncoder(file)
	if err = en.Encode(s.data); err != nil {
		file.Close()
		return fmt.Errorf("save: could not encode data: %w", err)
	}
	return file.Close()
}

// LoadData loads and returns the data saved by a Series
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaddata: could not open data file: %w",
			err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64

	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %w", err)
	}
	return data, nil
}
