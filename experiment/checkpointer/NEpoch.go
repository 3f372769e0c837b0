package checkpointer

import (
	"fmt"
	"os"
	"path/filepath"
)

// nEpoch implements checkpointing every N epochs
type nEpoch struct {
	interval int
	object   Persister // Object to save

	// filename returns the filename of the file to save the object
	// in at some epoch. Use EpochFile.Filename to name each file by
	// its epoch.
	filename func(epoch int) string
}

// NewNEpoch returns a checkpointer that checkpoints every n epochs.
// Directories of checkpoint files are created as needed.
func NewNEpoch(n int, object Persister,
	filename func(epoch int) string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newnepoch: checkpoint interval must be "+
			"positive\n\twant(>0)\n\thave(%v)", n)
	}

	return &nEpoch{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Persist() method
func (n *nEpoch) Checkpoint(epoch int) (string, error) {
	if epoch%n.interval != 0 {
		return "", nil
	}

	path := n.filename(epoch)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("checkpoint: could not create checkpoint "+
				"directory: %w", err)
		}
	}

	if err := n.object.Persist(path); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	return path, nil
}
