// Package sweep orchestrates a full impedance measurement campaign.
//
// A validated Plan fixes every run parameter up front. The controller
// then iterates calibration phases (open, short, load, measure),
// frequency points and averaging trials, driving one
// synthesize → play → acquire → demodulate cycle per trial through the
// injected hardware device. Results are combined per index by the
// calibration engine into the final derived parameter rows.
//
// Two sweep modes exist. A frequency sweep measures every scheduled
// frequency once per calibration phase; a measurement sweep repeats the
// start frequency for the requested number of measurements. In both
// modes the leading transient-settling work (warm-up frequencies ramping
// up to the start frequency, or discarded leading repeats) never reaches
// the reported results.
package sweep
