package decimate

import (
	"errors"
	"math"
	"testing"
)

func TestPickBands(t *testing.T) {
	tests := []struct {
		name       string
		freq       float64
		wantIndex  int
		wantFactor int
	}{
		{"above top band", 1e6, 0, 1},
		{"top band edge", 160e3, 0, 1},
		{"second band", 50e3, 1, 8},
		{"second band edge", 20e3, 1, 8},
		{"third band", 10e3, 2, 64},
		{"third band edge", 2.5e3, 2, 64},
		{"fourth band", 1e3, 3, 1024},
		{"fourth band edge", 160, 3, 1024},
		{"fifth band", 100, 4, 8192},
		{"fifth band edge", 20, 4, 8192},
		{"bottom band", 10, 5, 65536},
		{"bottom band edge", 2.5, 5, 65536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Pick(tt.freq)
			if err != nil {
				t.Fatal(err)
			}
			if s.Index != tt.wantIndex || s.Factor != tt.wantFactor {
				t.Errorf("Pick(%g) = {%d %d}, want {%d %d}",
					tt.freq, s.Index, s.Factor, tt.wantIndex, tt.wantFactor)
			}
		})
	}
}

func TestPickOutOfRange(t *testing.T) {
	for _, freq := range []float64{2.4, 1, 0, -5} {
		_, err := Pick(freq)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Pick(%g) error = %v, want ErrOutOfRange", freq, err)
		}
	}
}

func TestSampleCount(t *testing.T) {
	s, err := Pick(1000)
	if err != nil {
		t.Fatal(err)
	}

	// round(10 * 125e6 / (1000 * 1024))
	want := int(math.Round(10 * 125e6 / (1000 * 1024)))
	if got := s.SampleCount(1000, 10); got != want {
		t.Errorf("SampleCount = %d, want %d", got, want)
	}
}

func TestPlan(t *testing.T) {
	win, err := Plan(1000, 10)
	if err != nil {
		t.Fatal(err)
	}

	if win.Setting.Factor != 1024 {
		t.Errorf("factor = %d, want 1024", win.Setting.Factor)
	}

	if win.Size != win.Setting.SampleCount(1000, 10) {
		t.Errorf("size = %d, want %d", win.Size, win.Setting.SampleCount(1000, 10))
	}

	wantT := 1024.0 / 125e6
	if got := win.SamplePeriod(); got != wantT {
		t.Errorf("period = %g, want %g", got, wantT)
	}
}

func TestPlanInvalidMinCycles(t *testing.T) {
	if _, err := Plan(1000, 0); !errors.Is(err, ErrMinCycles) {
		t.Errorf("error = %v, want ErrMinCycles", err)
	}
}

func TestMinCycles(t *testing.T) {
	tests := []struct {
		start       float64
		measurement bool
		want        int
	}{
		{1000, false, 10},
		{1000, true, 10},
		{50, false, 10},
		{50, true, 2},
		{99.9, true, 2},
		{100, true, 10},
	}

	for _, tt := range tests {
		if got := MinCycles(tt.start, tt.measurement); got != tt.want {
			t.Errorf("MinCycles(%g, %v) = %d, want %d", tt.start, tt.measurement, got, tt.want)
		}
	}
}
