package testutil

import "math"

// adcSpan matches the digitizer's 14-bit code span.
const adcSpan = 16384

// VoltsToCodes converts a voltage sample to the raw ADC code the
// demodulator expects, given the excitation DC bias.
func VoltsToCodes(volts, dcBias float64) float64 {
	return volts * adcSpan / (2 - dcBias)
}

// SineCodes builds one channel of raw ADC codes for a sine of the given
// amplitude (volts) and phase offset, sampled at period T.
func SineCodes(omega, T, amplitude, phase, dcBias float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		v := amplitude * math.Sin(omega*float64(i)*T+phase)
		out[i] = VoltsToCodes(v, dcBias)
	}
	return out
}
