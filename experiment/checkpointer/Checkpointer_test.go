package checkpointer

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fileWriter struct {
	writes int
	err    error
}

func (f *fileWriter) Persist(path string) error {
	if f.err != nil {
		return f.err
	}
	f.writes++
	return os.WriteFile(path, []byte("weights"), 0o644)
}

func TestEpochFileFilename(t *testing.T) {
	tests := []struct {
		e     EpochFile
		epoch int
		want  string
	}{
		{NewEpochFile("weights"), 7, filepath.Join("weights", "7.gob")},
		{EpochFile{Dir: "", Extension: ".h5"}, 70, "70.h5"},
		{EpochFile{Dir: "out"}, 1, filepath.Join("out", "1.gob")},
	}

	for _, test := range tests {
		if have := test.e.Filename(test.epoch); have != test.want {
			t.Errorf("filename: want(%v) have(%v)", test.want, have)
		}
	}
}

func TestNEpoch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "weights")
	object := &fileWriter{}

	c, err := NewNEpoch(2, object, NewEpochFile(dir).Filename)
	if err != nil {
		t.Fatal(err)
	}

	for epoch := 1; epoch <= 4; epoch++ {
		path, err := c.Checkpoint(epoch)
		if err != nil {
			t.Fatal(err)
		}

		if epoch%2 != 0 {
			if path != "" {
				t.Errorf("epoch %v: unexpected checkpoint %v", epoch, path)
			}
			continue
		}

		want := filepath.Join(dir, fmt.Sprintf("%d.gob", epoch))
		if path != want {
			t.Errorf("epoch %v: want(%v) have(%v)", epoch, want, path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("epoch %v: %v", epoch, err)
		}
	}

	if object.writes != 2 {
		t.Errorf("checkpoint: want(2) writes have(%v)", object.writes)
	}
}

func TestNEpochErrors(t *testing.T) {
	if _, err := NewNEpoch(0, &fileWriter{}, NewEpochFile("").Filename); err == nil {
		t.Error("newnepoch: expected an error for a zero interval")
	}

	object := &fileWriter{err: fmt.Errorf("disk full")}
	c, err := NewNEpoch(1, object, NewEpochFile(t.TempDir()).Filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Checkpoint(1); err == nil {
		t.Error("checkpoint: expected the persist error to be returned")
	}
}
