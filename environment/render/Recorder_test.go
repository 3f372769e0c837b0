package render

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/traffiti/environment/intersection"
	"github.com/samuelfneumann/traffiti/routes"
)

func demand() routes.Demand {
	c := routes.DefaultConfig()
	c.Steps = 50
	return routes.Generate(c)
}

func TestRecorder(t *testing.T) {
	sim, err := intersection.New(intersection.DefaultConfig(), demand())
	if err != nil {
		t.Fatal(err)
	}

	c := DefaultConfig(filepath.Join(t.TempDir(), "frames"))
	c.Every = 5
	c.Size = 120
	rec, err := New(sim, c)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 23; i++ {
		if err := rec.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if rec.Frames() != 4 {
		t.Errorf("frames: have(%v) want(4)", rec.Frames())
	}
	for _, name := range []string{"frame000000.png", "frame000003.png"} {
		if _, err := os.Stat(filepath.Join(c.Dir, name)); err != nil {
			t.Errorf("frame %v: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(c.Dir, "frame000004.png")); err == nil {
		t.Error("frame000004.png: unexpected frame")
	}

	if err := rec.Close(); err != nil {
		t.Error(err)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig("frames").Validate(); err != nil {
		t.Fatal(err)
	}

	tests := []func(*Config){
		func(c *Config) { c.TLS = "" },
		func(c *Config) { c.Dir = "" },
		func(c *Config) { c.Every = 0 },
		func(c *Config) { c.Size = 10 },
		func(c *Config) { c.Range = 0 },
		func(c *Config) { c.Approaches[0].Link = 4 },
	}
	for i, modify := range tests {
		c := DefaultConfig("frames")
		modify(&c)
		if c.Validate() == nil {
			t.Errorf("case %v: expected an error", i)
		}
	}
}

func TestBackend(t *testing.T) {
	c := DefaultConfig(t.TempDir())
	c.Size = 100
	b := &Backend{Backend: intersection.NewBackend(), Config: c}

	for i := 0; i < 2; i++ {
		sim, err := b.Start(context.Background(), demand())
		if err != nil {
			t.Fatal(err)
		}
		if err := sim.Step(); err != nil {
			t.Fatal(err)
		}
		sim.Close()
	}

	for _, dir := range []string{"0", "1"} {
		path := filepath.Join(c.Dir, dir, "frame000000.png")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("session %v: %v", dir, err)
		}
	}
}

func TestRenderSumoStates(t *testing.T) {
	sim, err := intersection.New(intersection.DefaultConfig(), demand())
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	c := DefaultConfig(t.TempDir())
	c.Size = 100
	c.States = []string{"oOoO", "uuuu", "ssss", "GgYr"}
	rec, err := New(sim, c)
	if err != nil {
		t.Fatal(err)
	}

	for _, phase := range []int{0, 1, 2, 3} {
		if err := sim.SetPhase(c.TLS, phase); err != nil {
			t.Fatal(err)
		}
		if _, err := rec.Render(); err != nil {
			t.Errorf("phase %v: %v", phase, err)
		}
	}

	tests := []struct {
		state byte
		want  color.Color
	}{
		{'G', green}, {'g', green}, {'y', yellow}, {'u', yellow},
		{'r', red}, {'o', red}, {'O', red}, {'s', red},
	}
	for _, test := range tests {
		if have := signal(test.state); have != test.want {
			t.Errorf("signal(%q): have(%v) want(%v)", test.state, have,
				test.want)
		}
	}
}
