// Package lockin converts raw two-channel acquisitions into complex
// impedance estimates by synchronous demodulation.
//
// Both channel signals are correlated against in-phase and quadrature
// references at the excitation frequency and integrated over the
// acquisition window. The ratio of the recovered voltage and current
// phasors is the device impedance:
//
//	|Z| = |U| / |I|,  arg(Z) = arg(U) - arg(I)
package lockin

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/integrate"

	"github.com/jeanminet/redpitaya-lcr/dsp/decimate"
)

// adcSpan is the raw code span of the 14-bit digitizer.
const adcSpan = 16384

// Errors returned by Analyze.
var (
	// ErrDegenerate marks a vanishing current amplitude. The returned
	// impedance is still populated (non-finite) so callers may record
	// the degenerate point without aborting a sweep.
	ErrDegenerate = errors.New("lockin: degenerate current amplitude")

	ErrRecordLength = errors.New("lockin: record shorter than acquisition window")
	ErrShuntValue   = errors.New("lockin: shunt resistance must be positive")
)

// Record holds one synchronized two-channel acquisition in raw ADC codes.
// Voltage is the excitation-side channel, Shunt the channel across the
// shunt resistor.
type Record struct {
	Voltage []float64
	Shunt   []float64
}

// Analyze demodulates one record into a complex impedance.
//
// dcBias is the excitation DC offset in volts, shunt the shunt resistor
// in ohms and omega the angular excitation frequency. The sample period
// is taken from the acquisition window's decimation setting.
func Analyze(rec Record, win decimate.Window, dcBias, shunt, omega float64) (complex128, error) {
	if shunt <= 0 {
		return 0, fmt.Errorf("%w: %g", ErrShuntValue, shunt)
	}

	size := win.Size
	if len(rec.Voltage) < size || len(rec.Shunt) < size {
		return 0, fmt.Errorf("%w: need %d, have %d/%d",
			ErrRecordLength, size, len(rec.Voltage), len(rec.Shunt))
	}

	T := win.SamplePeriod()

	// Raw codes to volts, corrected for the excitation DC bias.
	scale := (2 - dcBias) / adcSpan
	uDUT := make([]float64, size)
	iDUT := make([]float64, size)

	// Differential voltage across the DUT; current through the shunt by
	// Ohm's law.
	for i := 0; i < size; i++ {
		u1 := rec.Voltage[i] * scale
		u2 := rec.Shunt[i] * scale
		uDUT[i] = u1 - u2
		iDUT[i] = u2 / shunt
	}

	// In-phase and quadrature references sampled at the actual period.
	refX := make([]float64, size)
	refY := make([]float64, size)

	for i := 0; i < size; i++ {
		ang := float64(i) * T * omega
		refX[i] = math.Sin(ang)
		refY[i] = math.Sin(ang + math.Pi/2)
	}

	ux := make([]float64, size)
	uy := make([]float64, size)
	ix := make([]float64, size)
	iy := make([]float64, size)

	vecmath.MulBlock(ux, uDUT, refX)
	vecmath.MulBlock(uy, uDUT, refY)
	vecmath.MulBlock(ix, iDUT, refX)
	vecmath.MulBlock(iy, iDUT, refY)

	// Trapezoidal integration over the acquisition window.
	abscissas := make([]float64, size)
	for i := range abscissas {
		abscissas[i] = float64(i) * T
	}

	uX := integrate.Trapezoidal(abscissas, ux)
	uY := integrate.Trapezoidal(abscissas, uy)
	iX := integrate.Trapezoidal(abscissas, ix)
	iY := integrate.Trapezoidal(abscissas, iy)

	uAmp := 2 * math.Hypot(uX, uY)
	uPhase := math.Atan2(uY, uX)
	iAmp := 2 * math.Hypot(iX, iY)
	iPhase := math.Atan2(iY, iX)

	zAmp := uAmp / iAmp
	zPhase := wrapPhase(uPhase - iPhase)

	z := complex(zAmp*math.Cos(zPhase), zAmp*math.Sin(zPhase))

	if iAmp == 0 || math.IsNaN(zAmp) || math.IsInf(zAmp, 0) {
		return z, fmt.Errorf("%w: |I| = %g", ErrDegenerate, iAmp)
	}

	return z, nil
}

// wrapPhase limits a phase difference to (-pi, pi].
func wrapPhase(phase float64) float64 {
	for phase <= -math.Pi {
		phase += 2 * math.Pi
	}

	for phase > math.Pi {
		phase -= 2 * math.Pi
	}

	return phase
}
