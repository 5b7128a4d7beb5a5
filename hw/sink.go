package hw

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeanminet/redpitaya-lcr/measure/calibrate"
)

// resultFiles maps the per-parameter stream files to row accessors, in
// the order the instrument historically created them.
var resultFiles = []struct {
	name string
	get  func(calibrate.Result) float64
}{
	{"data_frequency", func(r calibrate.Result) float64 { return r.Frequency }},
	{"data_amplitude", func(r calibrate.Result) float64 { return r.AmplitudeZ }},
	{"data_phase", func(r calibrate.Result) float64 { return r.PhaseZ }},
	{"data_R_s", func(r calibrate.Result) float64 { return r.Rs }},
	{"data_X_s", func(r calibrate.Result) float64 { return r.Xs }},
	{"data_G_p", func(r calibrate.Result) float64 { return r.Gp }},
	{"data_B_p", func(r calibrate.Result) float64 { return r.Bp }},
	{"data_C_s", func(r calibrate.Result) float64 { return r.Cs }},
	{"data_C_p", func(r calibrate.Result) float64 { return r.Cp }},
	{"data_L_s", func(r calibrate.Result) float64 { return r.Ls }},
	{"data_L_p", func(r calibrate.Result) float64 { return r.Lp }},
	{"data_R_p", func(r calibrate.Result) float64 { return r.Rp }},
	{"data_Q", func(r calibrate.Result) float64 { return r.Q }},
	{"data_D", func(r calibrate.Result) float64 { return r.D }},
	{"data_Y_abs", func(r calibrate.Result) float64 { return r.AmplitudeY }},
	{"data_phaseY", func(r calibrate.Result) float64 { return r.PhaseY }},
}

// DirResultSink writes each derived parameter to its own stream file
// under a directory, one value per line per frequency index.
type DirResultSink struct {
	files []*os.File
}

// NewDirResultSink creates (or truncates) the per-parameter files.
func NewDirResultSink(dir string) (*DirResultSink, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("hw: create result dir: %w", err)
	}

	s := &DirResultSink{files: make([]*os.File, 0, len(resultFiles))}

	for _, rf := range resultFiles {
		f, err := os.Create(filepath.Join(dir, rf.name))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("hw: create %s: %w", rf.name, err)
		}
		s.files = append(s.files, f)
	}

	return s, nil
}

// Write appends one row across all parameter files.
func (s *DirResultSink) Write(_ int, res calibrate.Result) error {
	for i, rf := range resultFiles {
		if _, err := fmt.Fprintf(s.files[i], "%.5f\n", rf.get(res)); err != nil {
			return fmt.Errorf("hw: write %s: %w", rf.name, err)
		}
	}
	return nil
}

// Close closes every parameter file.
func (s *DirResultSink) Close() error {
	var firstErr error
	for _, f := range s.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FileProgressSink rewrites a single file with the latest percent value.
type FileProgressSink struct {
	Path string
}

// Progress overwrites the file with the percent value.
func (s FileProgressSink) Progress(percent int) error {
	return os.WriteFile(s.Path, []byte(fmt.Sprintf("%d\n", percent)), 0o666)
}
