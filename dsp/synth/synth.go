package synth

import (
	"errors"
	"fmt"
	"math"
)

// Hardware characteristics of the playback path.
const (
	// BufferSize is the AWG buffer length in samples, one playback cycle.
	BufferSize = 16 * 1024

	// SampleClock is the DAC playback clock in Hz.
	SampleClock = 125e6

	// MaxFrequency is the highest representable excitation frequency.
	MaxFrequency = 62.5e6

	// countsPerVolt converts amplitude volts to DAC counts.
	countsPerVolt = 4000

	// maxCounts is the DAC full-scale clamp.
	maxCounts = 8191

	// dcOffsetCounts is the hardware DC offset correction word.
	dcOffsetCounts = -155

	// Square-wave transition ramp: 300 samples per ramp at 1 MHz, scaled
	// with frequency and never narrower than 30 samples.
	transPerMHz   = 300
	transMin      = 30
	transMinScale = 10

	// firstSwitchFrac places the falling transition of the square wave.
	firstSwitchFrac = 0.249
)

// Errors returned by Generate.
var (
	ErrAmplitude    = errors.New("synth: amplitude out of range")
	ErrFrequency    = errors.New("synth: frequency out of range")
	ErrEndFrequency = errors.New("synth: end frequency out of range")
	ErrShape        = errors.New("synth: unknown shape")
)

// Shape selects the excitation waveform.
type Shape int

// Supported shapes.
const (
	Sine Shape = iota
	Square
	Triangle
	Sweep // exponential frequency chirp across one buffer
	Const
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Sweep:
		return "sweep"
	case Const:
		return "const"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// AWGParams are the clocking words written alongside a buffer.
type AWGParams struct {
	OffsGain int32  // DC offset and gain word
	Wrap     uint32 // buffer address wrap value
	Step     uint32 // phase increment per playback clock
}

// Params describes one excitation buffer.
type Params struct {
	Amplitude    float64 // V, fraction of full scale [0, 1]
	Frequency    float64 // Hz
	EndFrequency float64 // Hz, chirp end frequency (Sweep only)
	Shape        Shape
}

// Validate checks the parameters against the device limits. Zero
// amplitude is allowed so the output can be silenced.
func (p Params) Validate() error {
	if p.Amplitude < 0 || p.Amplitude > 1 {
		return fmt.Errorf("%w: %g V", ErrAmplitude, p.Amplitude)
	}

	if p.Frequency <= 0 || p.Frequency > MaxFrequency {
		return fmt.Errorf("%w: %g Hz", ErrFrequency, p.Frequency)
	}

	if p.Shape == Sweep && (p.EndFrequency <= 0 || p.EndFrequency > MaxFrequency) {
		return fmt.Errorf("%w: %g Hz", ErrEndFrequency, p.EndFrequency)
	}

	if p.Shape < Sine || p.Shape > Const {
		return fmt.Errorf("%w: %d", ErrShape, int(p.Shape))
	}

	return nil
}

// Generate synthesizes one buffer cycle plus the clocking words for the
// requested frequency.
func (p Params) Generate() ([]int32, AWGParams, error) {
	if err := p.Validate(); err != nil {
		return nil, AWGParams{}, err
	}

	awg := AWGParams{
		OffsGain: (dcOffsetCounts << 16) + 0x1fff,
		Step:     uint32(math.Round(65536 * p.Frequency / SampleClock * BufferSize)),
		Wrap:     uint32(65536 * (BufferSize - 1)),
	}

	amp := math.Round(p.Amplitude * countsPerVolt)
	if amp > maxCounts {
		amp = maxCounts
	}

	data := make([]int32, BufferSize)

	switch p.Shape {
	case Sine:
		fillSine(data, amp)
	case Square:
		fillSquare(data, amp, p.Frequency)
	case Triangle:
		fillTriangle(data, amp)
	case Sweep:
		fillChirp(data, amp, p.Frequency, p.EndFrequency)
	case Const:
		fillConst(data, amp)
	}

	// Bias shift into the unsigned sample encoding.
	for i, v := range data {
		if v < 0 {
			data[i] = v + (1 << 14)
		}
	}

	return data, awg, nil
}

func fillSine(data []int32, amp float64) {
	n := float64(len(data))
	for i := range data {
		data[i] = int32(math.Round(amp * math.Cos(2*math.Pi*float64(i)/n)))
	}
}

func fillConst(data []int32, amp float64) {
	for i := range data {
		data[i] = int32(amp)
	}
}

// fillTriangle derives a linear ramp from the arc-cosine of the cosine.
func fillTriangle(data []int32, amp float64) {
	n := float64(len(data))
	for i := range data {
		tri := math.Acos(math.Cos(2*math.Pi*float64(i)/n))/math.Pi*2 - 1
		data[i] = int32(math.Round(-amp * tri))
	}
}

// fillSquare builds a cosine-derived square wave with soft linear ramps
// around the two polarity switches so the analog front end does not ring.
func fillSquare(data []int32, amp, freq float64) {
	n := float64(len(data))

	trans := freq / 1e6 * transPerMHz
	if trans <= transMinScale {
		trans = transMin
	}

	for i := range data {
		x := float64(i)

		v := amp
		if math.Cos(2*math.Pi*x/n) <= 0 {
			v = -amp
		}

		// Falling edge ramp.
		if x1 := n * firstSwitchFrac; x > x1 && x <= x1+trans {
			m := -2 * amp / trans
			v = m*x + (amp - m*x1)
		}

		// Rising edge ramp.
		if x1 := n * 0.75; x > x1 && x <= x1+trans {
			m := 2 * amp / trans
			v = m*x + (-amp - m*x1)
		}

		data[i] = int32(math.Round(clampCounts(v)))
	}
}

// fillChirp sweeps exponentially from freq to endFreq across the buffer
// duration using the closed-form logarithmic chirp phase
//
//	x(t) = sin(w1*T/ln(w2/w1) * (exp(t/T*ln(w2/w1)) - 1))
func fillChirp(data []int32, amp, freq, endFreq float64) {
	wStart := 2 * math.Pi * freq
	wEnd := 2 * math.Pi * endFreq
	T := float64(len(data)) / SampleClock
	lnRatio := math.Log(wEnd / wStart)

	for i := range data {
		t := float64(i) / SampleClock
		phase := wStart * T / lnRatio * (math.Exp(t/T*lnRatio) - 1)
		data[i] = int32(math.Round(clampCounts(amp * math.Sin(phase))))
	}
}

func clampCounts(v float64) float64 {
	if v > maxCounts {
		return maxCounts
	}

	if v < -maxCounts {
		return -maxCounts
	}

	return v
}

// Decode converts a bias-shifted buffer back to volts. It is the inverse
// of the encoding applied by Generate and is used by simulation and
// verification code.
func Decode(data []int32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if v > maxCounts {
			v -= 1 << 14
		}
		out[i] = float64(v) / countsPerVolt
	}
	return out
}
