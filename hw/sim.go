package hw

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/jeanminet/redpitaya-lcr/dsp/decimate"
	"github.com/jeanminet/redpitaya-lcr/dsp/synth"
	"github.com/jeanminet/redpitaya-lcr/measure/lockin"
)

// ErrNothingPlayed is returned when the simulator is asked to acquire
// before any excitation buffer has been played.
var ErrNothingPlayed = errors.New("hw: simulator has no excitation to sample")

// ImpedanceModel returns a DUT impedance at an angular frequency.
type ImpedanceModel func(omega float64) complex128

// Resistor models an ideal resistor.
func Resistor(r float64) ImpedanceModel {
	return func(float64) complex128 {
		return complex(r, 0)
	}
}

// SeriesRC models a resistor in series with a capacitor.
func SeriesRC(r, c float64) ImpedanceModel {
	return func(omega float64) complex128 {
		return complex(r, -1/(omega*c))
	}
}

// SeriesRL models a resistor in series with an inductor.
func SeriesRL(r, l float64) ImpedanceModel {
	return func(omega float64) complex128 {
		return complex(r, omega*l)
	}
}

// Simulator is an in-memory Device: Play captures the excitation, and
// Acquire synthesizes the two channel records a real digitizer would see
// with the modelled DUT wired above the shunt resistor.
type Simulator struct {
	DUT    ImpedanceModel
	Shunt  float64 // ohm
	DCBias float64 // V, must match the plan's bias

	freq   float64
	amp    float64 // V
	played bool
}

// NewSimulator wires a DUT model above a shunt resistor.
func NewSimulator(dut ImpedanceModel, shunt, dcBias float64) *Simulator {
	return &Simulator{DUT: dut, Shunt: shunt, DCBias: dcBias}
}

// Play records the excitation frequency and amplitude implied by the
// buffer and clocking words.
func (s *Simulator) Play(ch Channel, buffer []int32, awg synth.AWGParams) error {
	if !ch.Valid() {
		return ErrChannel
	}

	s.freq = float64(awg.Step) * synth.SampleClock / (65536 * synth.BufferSize)

	peak := 0.0
	for _, v := range synth.Decode(buffer) {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	s.amp = peak

	s.played = true

	return nil
}

// Acquire synthesizes raw ADC codes for both channels at the window's
// sample period. Channel 1 sees the excitation, channel 2 the voltage
// across the shunt below the DUT.
func (s *Simulator) Acquire(win decimate.Window) (lockin.Record, error) {
	if !s.played {
		return lockin.Record{}, ErrNothingPlayed
	}

	omega := 2 * math.Pi * s.freq
	z := s.DUT(omega)

	// Current phasor relative to a sin(wt) excitation of s.amp volts.
	ip := complex(s.amp, 0) / (z + complex(s.Shunt, 0))
	iMag := cmplx.Abs(ip)
	iArg := cmplx.Phase(ip)

	T := win.SamplePeriod()
	toCodes := 16384 / (2 - s.DCBias)

	rec := lockin.Record{
		Voltage: make([]float64, win.Size),
		Shunt:   make([]float64, win.Size),
	}

	for k := 0; k < win.Size; k++ {
		t := float64(k) * T
		u1 := s.amp * math.Sin(omega*t)
		u2 := s.Shunt * iMag * math.Sin(omega*t+iArg)
		rec.Voltage[k] = u1 * toCodes
		rec.Shunt[k] = u2 * toCodes
	}

	return rec, nil
}
