package trackers

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

var reports = []Report{
	{Epoch: 0, MeanCost: 12.3456, MeanReward: -1.23456, Steps: 1500,
		Epsilon: 0.5},
	{Epoch: 1, MeanCost: 3, MeanReward: -0.25, Steps: 1500, Epsilon: 0.25},
}

func TestText(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "results", "run.txt")
	tr := NewText(filename)

	for _, r := range reports {
		if err := tr.Track(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := tr.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := "0: 12.346, -1.235\n1: 3.000, -0.250\n"
	if string(data) != want {
		t.Errorf("text: have(%q) want(%q)", data, want)
	}

	// A second tracker appends to the same file
	if err := NewText(filename).Track(reports[0]); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(filename)
	if string(data) != want+"0: 12.346, -1.235\n" {
		t.Errorf("text: results not appended: %q", data)
	}
}

func TestSeries(t *testing.T) {
	dir := t.TempDir()
	costs := NewMeanCost(filepath.Join(dir, "cost.gob"))
	rewards := NewMeanReward(filepath.Join(dir, "reward.gob"))

	for _, r := range reports {
		for _, tr := range []Tracker{costs, rewards} {
			if err := tr.Track(r); err != nil {
				t.Fatal(err)
			}
		}
	}

	for _, tc := range []struct {
		s    *Series
		want []float64
	}{
		{costs, []float64{12.3456, 3}},
		{rewards, []float64{-1.23456, -0.25}},
	} {
		if err := tc.s.Save(); err != nil {
			t.Fatal(err)
		}
		data, err := LoadData(tc.s.filename)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(data, tc.want) {
			t.Errorf("loaddata: have(%v) want(%v)", data, tc.want)
		}
		if !reflect.DeepEqual(tc.s.Data(), tc.want) {
			t.Errorf("data: have(%v) want(%v)", tc.s.Data(), tc.want)
		}
	}

	if _, err := LoadData(filepath.Join(dir, "missing.gob")); err == nil {
		t.Error("loaddata: expected error for missing file")
	}
}

func TestExcel(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "results.xlsx")
	tr, err := NewExcel(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	for _, r := range reports {
		if err := tr.Track(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := tr.Save(); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("excel: have(%v rows) want(3)", len(rows))
	}
	if rows[0][0] != "Epoch" || rows[2][0] != "1" || rows[2][4] != "1500" {
		t.Errorf("excel: unexpected rows %v", rows)
	}
}
