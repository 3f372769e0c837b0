package checkpointer

import (
	"fmt"
	"path/filepath"
)

// DefaultExtension is the file extension of parameter checkpoints
const DefaultExtension = ".gob"

// EpochFile names checkpoint files by the epoch at which they were
// written: <Dir>/<epoch><Extension>
type EpochFile struct {
	Dir       string
	Extension string
}

// NewEpochFile returns an EpochFile naming files in dir with the default
// extension
func NewEpochFile(dir string) EpochFile {
	return EpochFile{Dir: dir, Extension: DefaultExtension}
}

// Filename returns the name of the checkpoint file for an epoch
func (e EpochFile) Filename(epoch int) string {
	ext := e.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return filepath.Join(e.Dir, fmt.Sprintf("%d%s", epoch, ext))
}
