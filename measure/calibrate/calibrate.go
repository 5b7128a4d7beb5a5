// Package calibrate corrects raw impedance measurements against
// open/short/load calibration standards and derives the secondary
// electrical parameters of the device under test.
package calibrate

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Mode selects the calibration combination rule.
type Mode int

// Calibration modes.
const (
	// None passes the measured impedance through unchanged.
	None Mode = iota

	// OpenShortLoad combines open, short and load standards with the
	// known reference impedance of the load standard.
	OpenShortLoad

	// OpenShort combines open and short standards without a load
	// reference.
	OpenShort
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case OpenShortLoad:
		return "open-short-load"
	case OpenShort:
		return "open-short"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a defined calibration mode.
func (m Mode) Valid() bool {
	return m >= None && m <= OpenShort
}

// Combine applies the calibration rule to the per-index phase
// representatives and returns the corrected impedance.
//
// OpenShortLoad inverts the fixture's bilinear error model:
//
//	Z = ((Zs-Zm)(Zl-Zo)) / ((Zm-Zo)(Zs-Zl)) * Zref
//
// OpenShort uses the open standard in place of the load reference:
//
//	Z = (Zs-Zm)*Zo / ((Zm-Zo)(Zs-Zl))
//
// Degenerate standards make the result non-finite; they never fail.
func Combine(mode Mode, zOpen, zShort, zLoad, zMeasure, zRef complex128) complex128 {
	switch mode {
	case OpenShortLoad:
		return (zShort - zMeasure) * (zLoad - zOpen) /
			((zMeasure - zOpen) * (zShort - zLoad)) * zRef
	case OpenShort:
		return (zShort - zMeasure) * zOpen /
			((zMeasure - zOpen) * (zShort - zLoad))
	default:
		return zMeasure
	}
}

// Result is one fully derived measurement row.
type Result struct {
	Frequency  float64 // Hz
	PhaseZ     float64 // impedance phase, degrees
	AmplitudeZ float64 // |Z|, ohm
	AmplitudeY float64 // |Y|, siemens
	PhaseY     float64 // admittance phase, degrees
	Rs         float64 // series resistance, ohm
	Xs         float64 // series reactance, ohm
	Gp         float64 // parallel conductance, siemens
	Bp         float64 // parallel susceptance, siemens
	Cs         float64 // series capacitance, farad
	Cp         float64 // parallel capacitance, farad
	Ls         float64 // series inductance, henry
	Lp         float64 // parallel inductance, henry
	Rp         float64 // parallel resistance, ohm
	Q          float64 // quality factor
	D          float64 // dissipation factor
}

// Derive computes every secondary parameter from a calibrated impedance
// at the given frequency. Divisions by zero (purely resistive or purely
// reactive devices) produce non-finite values in the affected fields
// only.
func Derive(z complex128, freqHz float64) Result {
	omega := 2 * math.Pi * freqHz

	y := 1 / z

	rs := real(z)
	xs := imag(z)
	gp := real(y)
	bp := imag(y)

	phaseZ := 180 / math.Pi * math.Atan2(xs, rs)
	q := xs / rs

	return Result{
		Frequency:  freqHz,
		PhaseZ:     phaseZ,
		AmplitudeZ: cmplx.Abs(z),
		AmplitudeY: cmplx.Abs(y),
		PhaseY:     -phaseZ,
		Rs:         rs,
		Xs:         xs,
		Gp:         gp,
		Bp:         bp,
		Cs:         -1 / (omega * xs),
		Cp:         bp / omega,
		Ls:         xs / omega,
		Lp:         -1 / (omega * bp),
		Rp:         1 / gp,
		Q:          q,
		D:          -1 / q,
	}
}
