package experiment

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/samuelfneumann/traffiti/agent/deepq"
	"github.com/samuelfneumann/traffiti/environment"
	"github.com/samuelfneumann/traffiti/environment/intersection"
	"github.com/samuelfneumann/traffiti/experiment/checkpointer"
	"github.com/samuelfneumann/traffiti/experiment/trackers"
	"github.com/samuelfneumann/traffiti/linear"
	"github.com/samuelfneumann/traffiti/reward"
	"github.com/samuelfneumann/traffiti/routes"
	"github.com/samuelfneumann/traffiti/timestep"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const steps = 30

func newAgent(t *testing.T, dir string) *deepq.DeepQ {
	t.Helper()
	c := deepq.DefaultConfig()
	c.Checkpoints = checkpointer.NewEpochFile(dir)

	q, err := linear.New(c.Features, environment.NumActions)
	if err != nil {
		t.Fatal(err)
	}
	a, err := deepq.New(q, c, 1)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func config() OnlineConfig {
	c := DefaultOnlineConfig()
	c.Steps = steps
	c.Demand.Steps = steps
	return c
}

// flaky is a Simulator which fails after a number of steps and records
// whether it was closed
type flaky struct {
	environment.Simulator
	failAfter int
	steps     int
	closed    *bool
}

var errFlaky = errors.New("connection reset")

func (f *flaky) Step() error {
	f.steps++
	if f.steps > f.failAfter {
		return errFlaky
	}
	return f.Simulator.Step()
}

func (f *flaky) Close() error {
	*f.closed = true
	return f.Simulator.Close()
}

type flakyBackend struct {
	failAfter int
	closed    bool
}

func (b *flakyBackend) Start(ctx context.Context,
	d routes.Demand) (environment.Simulator, error) {
	sim, err := intersection.NewBackend().Start(ctx, d)
	if err != nil {
		return nil, err
	}
	return &flaky{Simulator: sim, failAfter: b.failAfter,
		closed: &b.closed}, nil
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	a := newAgent(t, filepath.Join(dir, "weights"))
	results := filepath.Join(dir, "results.txt")
	series := trackers.NewMeanCost(filepath.Join(dir, "cost.gob"))

	o, err := NewOnline(intersection.NewBackend(), a, config(),
		trackers.NewText(results))
	if err != nil {
		t.Fatal(err)
	}
	o.Register(series)

	if err := o.Run(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if err := o.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(results)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("results: have(%v lines) want(2)\n%s", len(lines), data)
	}
	for i, prefix := range []string{"1: ", "2: "} {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("results line %v: %q does not start with %q", i,
				lines[i], prefix)
		}
	}

	for _, name := range []string{"1.gob", "2.gob"} {
		if _, err := os.Stat(filepath.Join(dir, "weights", name)); err != nil {
			t.Errorf("checkpoint %v: %v", name, err)
		}
	}

	if got := len(series.Data()); got != 2 {
		t.Errorf("series: have(%v values) want(2)", got)
	}
	if got := a.Memory().Len(); got != a.Memory().MaxCapacity() {
		t.Errorf("memory: have(%v transitions) want(%v)", got,
			a.Memory().MaxCapacity())
	}

	// ε decays once per training step
	if a.Epsilon() >= 1 {
		t.Errorf("epsilon: expected decay, have(%v)", a.Epsilon())
	}
}

func TestRunEpisodeReport(t *testing.T) {
	a := newAgent(t, t.TempDir())
	o, err := NewOnline(intersection.NewBackend(), a, config())
	if err != nil {
		t.Fatal(err)
	}

	r, err := o.RunEpisode(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if r.Epoch != 1 || r.Steps != steps {
		t.Errorf("report: have(epoch=%v, steps=%v) want(1, %v)", r.Epoch,
			r.Steps, steps)
	}
	if r.MeanCost < 0 {
		t.Errorf("report: negative mean cost %v", r.MeanCost)
	}
	if r.MeanReward >= 0 {
		t.Errorf("report: mean reward should be negative, have(%v)",
			r.MeanReward)
	}
	if r.Epsilon != a.Epsilon() {
		t.Errorf("report: have(epsilon=%v) want(%v)", r.Epsilon, a.Epsilon())
	}
}

func TestRunEpisodeEval(t *testing.T) {
	dir := t.TempDir()
	a := newAgent(t, dir)
	a.Eval()

	o, err := NewOnline(intersection.NewBackend(), a, config())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.RunEpisode(context.Background()); err != nil {
		t.Fatal(err)
	}

	if a.Memory().Len() != 0 {
		t.Errorf("eval: have(%v transitions) want(0)", a.Memory().Len())
	}
	if a.Epsilon() != 1 {
		t.Errorf("eval: epsilon changed to %v", a.Epsilon())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("eval: expected no checkpoints, have(%v)", len(entries))
	}
}

func TestRunEpisodeSimulatorError(t *testing.T) {
	b := &flakyBackend{failAfter: 5}
	o, err := NewOnline(b, newAgent(t, t.TempDir()), config())
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.RunEpisode(context.Background())
	if !errors.Is(err, errFlaky) {
		t.Fatalf("runepisode: have(%v) want(%v)", err, errFlaky)
	}
	if !b.closed {
		t.Error("runepisode: session not closed after error")
	}
}

func TestRunCancelled(t *testing.T) {
	a := newAgent(t, t.TempDir())
	o, err := NewOnline(intersection.NewBackend(), a, config())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.Run(ctx, 3); !errors.Is(err, context.Canceled) {
		t.Errorf("run: have(%v) want(%v)", err, context.Canceled)
	}
	if a.Epoch() != 0 {
		t.Errorf("run: no epoch should have run, have(%v)", a.Epoch())
	}
}

func TestNewOnlineInvalid(t *testing.T) {
	c := config()
	c.Steps = 0
	if _, err := NewOnline(intersection.NewBackend(), nil, c); err == nil {
		t.Error("newonline: expected error for zero steps")
	}
}

func TestRunEpisodeReproducible(t *testing.T) {
	run := func() trackers.Report {
		o, err := NewOnline(intersection.NewBackend(),
			newAgent(t, t.TempDir()), config())
		if err != nil {
			t.Fatal(err)
		}
		r, err := o.RunEpisode(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runepisode: reports differ\n\t%+v\n\t%+v", first, second)
	}
}

// recorder is an Agent which records the states it acts in and the
// transitions it memorizes
type recorder struct {
	*deepq.DeepQ
	states      []*mat.VecDense
	actions     []int
	transitions []timestep.Transition
}

func (r *recorder) SelectAction(state mat.Vector) int {
	a := r.DeepQ.SelectAction(state)
	r.states = append(r.states, mat.VecDenseCopyOf(state))
	r.actions = append(r.actions, a)
	return a
}

func (r *recorder) Memorize(t timestep.Transition) error {
	r.transitions = append(r.transitions, t)
	return r.DeepQ.Memorize(t)
}

func TestRunEpisodeTransitions(t *testing.T) {
	a := &recorder{DeepQ: newAgent(t, t.TempDir())}
	c := config()
	o, err := NewOnline(intersection.NewBackend(), a, c)
	if err != nil {
		t.Fatal(err)
	}

	report, err := o.RunEpisode(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(a.transitions) != steps || len(a.states) != steps+1 {
		t.Fatalf("runepisode: have(%v transitions, %v actions) want(%v, %v)",
			len(a.transitions), len(a.states), steps, steps+1)
	}

	phase := func(v mat.Vector) int { return int(v.AtVec(v.Len() - 1)) }
	lights := []int{phase(a.states[0])}
	sum := 0.0

	for i, tr := range a.transitions {
		if !mat.Equal(tr.State, a.states[i]) {
			t.Errorf("transition %v: state is not the state acted in", i)
		}
		if tr.Action != a.actions[i] {
			t.Errorf("transition %v: have(action=%v) want(%v)", i,
				tr.Action, a.actions[i])
		}
		if !mat.Equal(tr.NextState, a.states[i+1]) {
			t.Errorf("transition %v: next state is not the following "+
				"state", i)
		}

		// The reward is computed at the new step, so the remaining cost
		// must be a whole number of halted vehicles
		lights = append(lights, phase(tr.NextState))
		penalty := c.Reward.DwellPenalty / float64(reward.Dwell(lights))
		if lights[len(lights)-1] != lights[len(lights)-2] {
			penalty += c.Reward.SwitchPenalty
		}
		cost := -tr.Reward*c.Reward.Scale - penalty
		if cost < -1e-9 || !scalar.EqualWithinAbs(cost, math.Round(cost),
			1e-9) {
			t.Errorf("transition %v: reward %v does not match the phase "+
				"history", i, tr.Reward)
		}
		sum += tr.Reward
	}

	if !scalar.EqualWithinAbs(sum/steps, report.MeanReward, 1e-9) {
		t.Errorf("report: have(mean reward=%v) want(%v)", report.MeanReward,
			sum/steps)
	}
}
