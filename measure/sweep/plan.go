package sweep

import (
	"errors"
	"fmt"
	"math"

	"github.com/jeanminet/redpitaya-lcr/dsp/synth"
	"github.com/jeanminet/redpitaya-lcr/hw"
	"github.com/jeanminet/redpitaya-lcr/measure/calibrate"
)

// Validation errors. All are detected before any hardware interaction;
// a plan that fails validation produces no partial run.
var (
	ErrChannel        = errors.New("sweep: invalid output channel")
	ErrAmplitude      = errors.New("sweep: amplitude out of range")
	ErrBias           = errors.New("sweep: dc bias out of range")
	ErrExcitation     = errors.New("sweep: amplitude plus bias out of range")
	ErrShunt          = errors.New("sweep: shunt resistance must be positive")
	ErrAveraging      = errors.New("sweep: averaging count must be at least 1")
	ErrCalibration    = errors.New("sweep: invalid calibration mode")
	ErrZRef           = errors.New("sweep: reference impedance real part must not be negative")
	ErrSteps          = errors.New("sweep: invalid step count")
	ErrMode           = errors.New("sweep: invalid sweep mode")
	ErrScale          = errors.New("sweep: invalid scale type")
	ErrFrequency      = errors.New("sweep: frequency out of range")
	ErrFrequencyOrder = errors.New("sweep: end frequency below start frequency")
)

// defaultTransientSteps is the warm-up budget for transient-effect
// elimination.
const defaultTransientSteps = 10

// Mode selects what is swept.
type Mode int

// Sweep modes.
const (
	// MeasurementSweep repeats the start frequency Steps times.
	MeasurementSweep Mode = iota

	// FrequencySweep steps through Steps frequencies between the start
	// and end frequency.
	FrequencySweep
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case MeasurementSweep:
		return "measurement"
	case FrequencySweep:
		return "frequency"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Scale selects the frequency stepping law.
type Scale int

// Scale types.
const (
	Linear Scale = iota
	Log
)

// String returns the scale name.
func (s Scale) String() string {
	switch s {
	case Linear:
		return "linear"
	case Log:
		return "log"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// Plan is the immutable configuration of one measurement run.
type Plan struct {
	Channel     hw.Channel
	Amplitude   float64 // excitation amplitude, V [0, 1]
	DCBias      float64 // excitation DC offset, V [0, 1]
	Shunt       float64 // shunt resistor, ohm
	Averaging   int     // demodulation trials per measurement point
	Calibration calibrate.Mode
	ZRef        complex128 // load standard impedance (OpenShortLoad mode)
	Steps       int        // frequency points or measurement repeats
	Mode        Mode
	StartFreq   float64 // Hz
	EndFreq     float64 // Hz, frequency sweep and chirp shape only
	Scale       Scale
	Shape       synth.Shape // excitation shape, Sine by default

	// TransientSteps overrides the warm-up budget for transient-effect
	// elimination; zero selects the default of 10. The effective value
	// never exceeds Steps.
	TransientSteps int

	// WaitForUser pauses before each calibration phase through the
	// controller's prompt hook, giving the operator time to connect the
	// standard.
	WaitForUser bool
}

// Validate checks every plan field against the device limits.
func (p Plan) Validate() error {
	if !p.Channel.Valid() {
		return fmt.Errorf("%w: %d", ErrChannel, int(p.Channel))
	}

	if p.Amplitude < 0 || p.Amplitude > 1 {
		return fmt.Errorf("%w: %g V", ErrAmplitude, p.Amplitude)
	}

	if p.DCBias < 0 || p.DCBias > 1 {
		return fmt.Errorf("%w: %g V", ErrBias, p.DCBias)
	}

	if sum := p.Amplitude + p.DCBias; sum <= 0 || sum > 1 {
		return fmt.Errorf("%w: %g V", ErrExcitation, sum)
	}

	if p.Shunt <= 0 {
		return fmt.Errorf("%w: %g", ErrShunt, p.Shunt)
	}

	if p.Averaging < 1 {
		return fmt.Errorf("%w: %d", ErrAveraging, p.Averaging)
	}

	if !p.Calibration.Valid() {
		return fmt.Errorf("%w: %d", ErrCalibration, int(p.Calibration))
	}

	if real(p.ZRef) < 0 {
		return fmt.Errorf("%w: %g", ErrZRef, real(p.ZRef))
	}

	if p.Mode != MeasurementSweep && p.Mode != FrequencySweep {
		return fmt.Errorf("%w: %d", ErrMode, int(p.Mode))
	}

	if p.Steps < 1 {
		return fmt.Errorf("%w: %d", ErrSteps, p.Steps)
	}

	// A frequency sweep needs at least two points to define a step.
	if p.Mode == FrequencySweep && p.Steps < 2 {
		return fmt.Errorf("%w: %d (frequency sweep needs at least 2)", ErrSteps, p.Steps)
	}

	if p.StartFreq <= 0 || p.StartFreq > synth.MaxFrequency {
		return fmt.Errorf("%w: start %g Hz", ErrFrequency, p.StartFreq)
	}

	if p.Mode == FrequencySweep || p.Shape == synth.Sweep {
		if p.EndFreq <= 0 || p.EndFreq > synth.MaxFrequency {
			return fmt.Errorf("%w: end %g Hz", ErrFrequency, p.EndFreq)
		}
	}

	if p.Mode == FrequencySweep && p.EndFreq < p.StartFreq {
		return fmt.Errorf("%w: %g < %g Hz", ErrFrequencyOrder, p.EndFreq, p.StartFreq)
	}

	if p.Scale != Linear && p.Scale != Log {
		return fmt.Errorf("%w: %d", ErrScale, int(p.Scale))
	}

	if p.Shape < synth.Sine || p.Shape > synth.Const {
		return fmt.Errorf("%w: %d", synth.ErrShape, int(p.Shape))
	}

	return nil
}

// resultDim is the number of reported rows.
func (p Plan) resultDim() int {
	return p.Steps
}

// transientSteps returns the effective warm-up budget.
func (p Plan) transientSteps() int {
	ts := p.TransientSteps
	if ts <= 0 {
		ts = defaultTransientSteps
	}

	if p.Steps < ts {
		ts = p.Steps
	}

	return ts
}

// frequencies returns the committed frequency schedule, integer-rounded
// in Hz. A measurement sweep uses only the start frequency; a frequency
// sweep steps linearly in frequency or in log10(frequency).
//
// With Steps == 1 the log increment degenerates to the full span rather
// than dividing by zero; the schedule is then just the start frequency.
func (p Plan) frequencies() []float64 {
	if p.Mode == MeasurementSweep {
		return []float64{math.Round(p.StartFreq)}
	}

	out := make([]float64, p.Steps)

	if p.Scale == Log {
		a := math.Log10(p.StartFreq)
		b := math.Log10(p.EndFreq)

		c := b - a
		if p.Steps > 1 {
			c = (b - a) / float64(p.Steps-1)
		}

		for i := range out {
			out[i] = math.Round(math.Pow(10, a+c*float64(i)))
		}

		return out
	}

	step := p.EndFreq - p.StartFreq
	if p.Steps > 1 {
		step = (p.EndFreq - p.StartFreq) / float64(p.Steps-1)
	}

	for i := range out {
		out[i] = math.Round(p.StartFreq + step*float64(i))
	}

	return out
}
