// Package checkpointer saves the parameters of an agent to files tagged
// with the epoch at which they were saved
package checkpointer

// Persister is an object whose parameters can be saved to a file
type Persister interface {
	Persist(path string) error
}

// Checkpointer checkpoints/saves Persisters based on the current epoch
type Checkpointer interface {
	// Checkpoint saves the tracked object if the epoch calls for it
	// and returns the path of the file written. If nothing was saved,
	// the returned path is empty.
	Checkpoint(epoch int) (string, error)
}
