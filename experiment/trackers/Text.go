package trackers

import (
	"fmt"
	"os"
	"path/filepath"
)

// Text appends one results line per episode to a text file. Each line
// is written as soon as the episode is tracked, so the file holds the
// results of every finished episode even if the experiment is
// interrupted.
type Text struct {
	filename string
}

// NewText returns a new Text tracker appending to filename
func NewText(filename string) *Text {
	return &Text{filename: filename}
}

// Track appends the results line of r to the file
func (t *Text) Track(r Report) error {
	if err := os.MkdirAll(filepath.Dir(t.filename), 0o755); err != nil {
		return fmt.Errorf("track: could not create results directory: %w",
			err)
	}

	file, err := os.OpenFile(t.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644)
	if err != nil {
		return fmt.Errorf("track: could not open results file: %w", err)
	}

	if _, err := fmt.Fprintln(file, r); err != nil {
		file.Close()
		return fmt.Errorf("track: could not write results: %w", err)
	}
	return file.Close()
}

// Save does nothing, since results are written as they are tracked
func (t *Text) Save() error {
	return nil
}
