// Package hw defines the collaborator interfaces between the measurement
// core and the playback/acquisition hardware, together with an in-memory
// simulator used for testing and demonstration.
//
// The core never touches device registers; everything hardware-specific
// hides behind Playback and Acquisition so a sweep can run unchanged
// against real hardware or the simulator.
package hw

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeanminet/redpitaya-lcr/dsp/decimate"
	"github.com/jeanminet/redpitaya-lcr/dsp/synth"
	"github.com/jeanminet/redpitaya-lcr/measure/calibrate"
	"github.com/jeanminet/redpitaya-lcr/measure/lockin"
)

// Errors surfaced by the collaborator layer.
var (
	ErrNotTriggered = errors.New("hw: acquisition was not triggered")
	ErrChannel      = errors.New("hw: invalid channel")
)

// Channel identifies a generator output channel.
type Channel int

// Output channels.
const (
	ChannelA Channel = iota
	ChannelB
)

// Valid reports whether c names an existing channel.
func (c Channel) Valid() bool {
	return c == ChannelA || c == ChannelB
}

// Playback drives the waveform generator. Play must apply the buffer and
// clocking words atomically with respect to the output state machine;
// a Play failure is fatal to the run.
type Playback interface {
	Play(ch Channel, buffer []int32, awg synth.AWGParams) error
}

// Acquisition samples both analog channels once. A single attempt may
// legitimately fail with ErrNotTriggered; callers are expected to poll
// through AcquireWithRetry.
type Acquisition interface {
	Acquire(win decimate.Window) (lockin.Record, error)
}

// Device combines both hardware roles.
type Device interface {
	Playback
	Acquisition
}

// ProgressSink receives percent-complete updates. Failures are non-fatal.
type ProgressSink interface {
	Progress(percent int) error
}

// ResultSink persists one derived result row per frequency index.
// Failures do not invalidate the in-memory sweep but are reported to the
// caller.
type ResultSink interface {
	Write(index int, res calibrate.Result) error
}

// RetryPolicy bounds the acquisition polling loop.
type RetryPolicy struct {
	Attempts int           // trigger polls before giving up
	Delay    time.Duration // pause between polls
	Settle   time.Duration // pause before the first poll
	Hold     time.Duration // pause after a successful acquisition
}

// DefaultRetryPolicy mirrors the instrument's historical polling budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 150000,
		Delay:    time.Millisecond,
		Settle:   50 * time.Millisecond,
		Hold:     30 * time.Millisecond,
	}
}

// AcquireWithRetry polls src until it returns a record or the retry
// budget is exhausted, in which case the last ErrNotTriggered is
// wrapped and returned.
func AcquireWithRetry(src Acquisition, win decimate.Window, pol RetryPolicy) (lockin.Record, error) {
	if pol.Attempts <= 0 {
		pol.Attempts = 1
	}

	time.Sleep(pol.Settle)

	var lastErr error

	for attempt := 0; attempt < pol.Attempts; attempt++ {
		rec, err := src.Acquire(win)
		if err == nil {
			time.Sleep(pol.Hold)
			return rec, nil
		}

		lastErr = err

		time.Sleep(pol.Delay)
	}

	return lockin.Record{}, fmt.Errorf("%w after %d attempts: %v",
		ErrNotTriggered, pol.Attempts, lastErr)
}
