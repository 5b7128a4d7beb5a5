package lockin

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/jeanminet/redpitaya-lcr/dsp/decimate"
	"github.com/jeanminet/redpitaya-lcr/internal/testutil"
)

// makeRecord synthesizes the two acquisition channels for a DUT of
// impedance z above a shunt resistor, excited with amplitude volts.
func makeRecord(z complex128, shunt, amplitude, dcBias, freq float64, win decimate.Window) Record {
	omega := 2 * math.Pi * freq
	T := win.SamplePeriod()

	// Current phasor relative to a sin(wt) excitation.
	ip := complex(amplitude, 0) / (z + complex(shunt, 0))
	u2Amp := shunt * cmplx.Abs(ip)
	u2Phase := cmplx.Phase(ip)

	return Record{
		Voltage: testutil.SineCodes(omega, T, amplitude, 0, dcBias, win.Size),
		Shunt:   testutil.SineCodes(omega, T, u2Amp, u2Phase, dcBias, win.Size),
	}
}

func TestAnalyzeResistor(t *testing.T) {
	const (
		freq  = 1000.0
		shunt = 1000.0
		r     = 750.0
	)

	win, err := decimate.Plan(freq, 10)
	if err != nil {
		t.Fatal(err)
	}

	rec := makeRecord(complex(r, 0), shunt, 0.5, 0, freq, win)

	z, err := Analyze(rec, win, 0, shunt, 2*math.Pi*freq)
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireRelNearlyEqual(t, cmplx.Abs(z), r, 1e-2)
	testutil.RequireNearlyEqual(t, cmplx.Phase(z), 0, 1e-2)
}

func TestAnalyzeSeriesRC(t *testing.T) {
	const (
		freq  = 1000.0
		shunt = 1000.0
		r     = 500.0
		c     = 200e-9
	)

	omega := 2 * math.Pi * freq
	zTrue := complex(r, -1/(omega*c))

	win, err := decimate.Plan(freq, 10)
	if err != nil {
		t.Fatal(err)
	}

	rec := makeRecord(zTrue, shunt, 0.5, 0, freq, win)

	z, err := Analyze(rec, win, 0, shunt, omega)
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireRelNearlyEqual(t, cmplx.Abs(z), cmplx.Abs(zTrue), 2e-2)
	testutil.RequireNearlyEqual(t, cmplx.Phase(z), cmplx.Phase(zTrue), 2e-2)
}

func TestAnalyzeWithDCBias(t *testing.T) {
	const (
		freq  = 10e3
		shunt = 100.0
		r     = 250.0
		bias  = 0.3
	)

	win, err := decimate.Plan(freq, 10)
	if err != nil {
		t.Fatal(err)
	}

	rec := makeRecord(complex(r, 0), shunt, 0.4, bias, freq, win)

	z, err := Analyze(rec, win, bias, shunt, 2*math.Pi*freq)
	if err != nil {
		t.Fatal(err)
	}

	testutil.RequireRelNearlyEqual(t, cmplx.Abs(z), r, 1e-2)
}

func TestAnalyzeDegenerate(t *testing.T) {
	win, err := decimate.Plan(1000, 10)
	if err != nil {
		t.Fatal(err)
	}

	// A silent shunt channel means zero current.
	rec := Record{
		Voltage: testutil.SineCodes(2*math.Pi*1000, win.SamplePeriod(), 0.5, 0, 0, win.Size),
		Shunt:   make([]float64, win.Size),
	}

	_, err = Analyze(rec, win, 0, 1000, 2*math.Pi*1000)
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("error = %v, want ErrDegenerate", err)
	}
}

func TestAnalyzeInputErrors(t *testing.T) {
	win, err := decimate.Plan(1000, 10)
	if err != nil {
		t.Fatal(err)
	}

	short := Record{
		Voltage: make([]float64, win.Size-1),
		Shunt:   make([]float64, win.Size-1),
	}

	if _, err := Analyze(short, win, 0, 1000, 1); !errors.Is(err, ErrRecordLength) {
		t.Errorf("error = %v, want ErrRecordLength", err)
	}

	full := Record{
		Voltage: make([]float64, win.Size),
		Shunt:   make([]float64, win.Size),
	}

	if _, err := Analyze(full, win, 0, 0, 1); !errors.Is(err, ErrShuntValue) {
		t.Errorf("error = %v, want ErrShuntValue", err)
	}
}

func TestWrapPhase(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
	}

	for _, tt := range tests {
		testutil.RequireNearlyEqual(t, wrapPhase(tt.in), tt.want, 1e-12)
	}
}
