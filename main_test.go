package main

import "testing"

func TestEpochOf(t *testing.T) {
	tests := []struct {
		path  string
		epoch int
		ok    bool
	}{
		{"weights/42.gob", 42, true},
		{"0.gob", 0, true},
		{"/tmp/run/7", 7, true},
		{"weights/best.gob", 0, false},
		{"weights/-1.gob", 0, false},
	}

	for _, test := range tests {
		epoch, ok := epochOf(test.path)
		if epoch != test.epoch || ok != test.ok {
			t.Errorf("epochof(%q): have(%v, %v) want(%v, %v)", test.path,
				epoch, ok, test.epoch, test.ok)
		}
	}
}
