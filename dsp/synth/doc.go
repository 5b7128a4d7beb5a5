// Package synth builds excitation waveform buffers for the arbitrary
// waveform generator.
//
// A buffer holds exactly one playback cycle (16384 samples) of the
// requested shape; the hardware re-reads it at a phase increment derived
// from the ratio of the target frequency to the 125 MHz playback clock,
// so the buffer itself is frequency independent except for the square
// wave's transition ramps and the chirp shape.
//
// Samples are synthesized in signed DAC counts (4000 counts per volt,
// clamped to ±8191) and then bias-shifted into the unsigned 14-bit
// encoding the playback hardware expects.
package synth
