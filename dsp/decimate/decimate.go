// Package decimate selects acquisition decimation and sample counts for
// a target excitation frequency.
//
// The digitizer samples at a fixed 125 MHz base clock and offers a small
// set of hardware decimation factors. For a lock-in measurement the
// acquisition window must cover a minimum number of excitation cycles,
// so the planner picks the slowest decimation whose band contains the
// frequency and derives the sample count from
//
//	size = round(minCycles * baseClock / (freq * factor))
package decimate

import (
	"errors"
	"fmt"
	"math"
)

// BaseClock is the digitizer sample clock in Hz before decimation.
const BaseClock = 125e6

// Errors returned by the planner.
var (
	ErrOutOfRange = errors.New("decimate: frequency outside decimation bands")
	ErrMinCycles  = errors.New("decimate: min cycles must be positive")
)

// Setting is one hardware decimation choice.
type Setting struct {
	Index  int // hardware register index
	Factor int // downsampling factor
}

// band maps a lower frequency threshold to a decimation table index.
type band struct {
	threshold float64
	index     int
}

var factors = [...]int{1, 8, 64, 1024, 8192, 65536}

// Bands are evaluated top down; the first threshold at or below the
// frequency wins.
var bands = [...]band{
	{160e3, 0},
	{20e3, 1},
	{2.5e3, 2},
	{160, 3},
	{20, 4},
	{2.5, 5},
}

// MinFrequency is the lowest frequency covered by any decimation band.
const MinFrequency = 2.5

// Pick returns the decimation setting for the given frequency.
func Pick(freqHz float64) (Setting, error) {
	for _, b := range bands {
		if freqHz >= b.threshold {
			return Setting{Index: b.index, Factor: factors[b.index]}, nil
		}
	}
	return Setting{}, fmt.Errorf("%w: %g Hz", ErrOutOfRange, freqHz)
}

// SamplePeriod returns the effective sampling period in seconds.
func (s Setting) SamplePeriod() float64 {
	return float64(s.Factor) / BaseClock
}

// SampleCount returns the acquisition length covering minCycles cycles
// of freqHz at this decimation.
func (s Setting) SampleCount(freqHz float64, minCycles int) int {
	return int(math.Round(float64(minCycles) * BaseClock / (freqHz * float64(s.Factor))))
}

// Window is a planned acquisition: a sample count at a decimation setting.
type Window struct {
	Size    int
	Setting Setting
}

// Plan combines Pick and SampleCount into one acquisition window.
func Plan(freqHz float64, minCycles int) (Window, error) {
	if minCycles <= 0 {
		return Window{}, fmt.Errorf("%w: %d", ErrMinCycles, minCycles)
	}

	s, err := Pick(freqHz)
	if err != nil {
		return Window{}, err
	}

	return Window{Size: s.SampleCount(freqHz, minCycles), Setting: s}, nil
}

// SamplePeriod returns the window's effective sampling period in seconds.
func (w Window) SamplePeriod() float64 {
	return w.Setting.SamplePeriod()
}

// MinCycles returns the minimum-cycles policy for a run. The default is
// 10 cycles; below 100 Hz in measurement-sweep mode it drops to 2 to
// bound the acquisition time of very long records.
func MinCycles(startFreqHz float64, measurementSweep bool) int {
	if measurementSweep && startFreqHz < 100 {
		return 2
	}
	return 10
}
