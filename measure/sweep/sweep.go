package sweep

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/jeanminet/redpitaya-lcr/dsp/decimate"
	"github.com/jeanminet/redpitaya-lcr/dsp/synth"
	"github.com/jeanminet/redpitaya-lcr/hw"
	"github.com/jeanminet/redpitaya-lcr/measure/calibrate"
	"github.com/jeanminet/redpitaya-lcr/measure/lockin"
)

// Phase is one calibration condition of the measurement campaign.
type Phase int

// Calibration phases, in execution order.
const (
	PhaseOpen Phase = iota
	PhaseShort
	PhaseLoad
	PhaseMeasure

	phaseCount
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseShort:
		return "short"
	case PhaseLoad:
		return "load"
	case PhaseMeasure:
		return "measure"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Controller runs one sweep against an injected hardware device. All
// per-run state is owned by the controller; independent runs never share
// accumulators.
type Controller struct {
	plan     Plan
	dev      hw.Device
	log      *zap.Logger
	progress hw.ProgressSink
	results  hw.ResultSink
	retry    hw.RetryPolicy
	prompt   func(Phase) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithProgress sets the percent-complete sink. Sink failures are logged
// and otherwise ignored.
func WithProgress(s hw.ProgressSink) Option {
	return func(c *Controller) {
		c.progress = s
	}
}

// WithResults sets the per-row persistence sink. Sink failures do not
// invalidate the in-memory sweep; they are joined into Run's returned
// error.
func WithResults(s hw.ResultSink) Option {
	return func(c *Controller) {
		c.results = s
	}
}

// WithRetryPolicy overrides the acquisition polling budget.
func WithRetryPolicy(p hw.RetryPolicy) Option {
	return func(c *Controller) {
		c.retry = p
	}
}

// WithPrompt installs the operator hook called before each calibration
// phase when the plan's WaitForUser flag is set. A prompt error aborts
// the run.
func WithPrompt(f func(Phase) error) Option {
	return func(c *Controller) {
		c.prompt = f
	}
}

// New validates the plan and builds a controller.
func New(plan Plan, dev hw.Device, opts ...Option) (*Controller, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		plan:  plan,
		dev:   dev,
		log:   zap.NewNop(),
		retry: hw.DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// Run executes the full campaign and returns one derived result row per
// reported index, ascending. The returned error is nil, a fatal
// hardware/decimation error (rows produced so far are discarded), or a
// joined result-sink error with the rows still valid.
func (c *Controller) Run() ([]calibrate.Result, error) {
	plan := c.plan
	dim := plan.resultDim()
	freqs := plan.frequencies()
	stepsTE := plan.transientSteps()
	minCycles := decimate.MinCycles(plan.StartFreq, plan.Mode == MeasurementSweep)

	phases := []Phase{PhaseOpen, PhaseShort, PhaseLoad, PhaseMeasure}
	if plan.Calibration == calibrate.None {
		phases = []Phase{PhaseMeasure}
	}

	// Phase accumulators. Unmeasured phases keep the zero impedance,
	// which is exactly what the combination formulas expect.
	var acc [phaseCount][]complex128
	for i := range acc {
		acc[i] = make([]complex128, dim)
	}

	prog := newProgress(c, phases, plan, stepsTE, dim)

	for _, ph := range phases {
		c.log.Info("starting calibration phase",
			zap.Stringer("phase", ph),
			zap.Stringer("mode", plan.Mode))

		if plan.WaitForUser && c.prompt != nil {
			if err := c.prompt(ph); err != nil {
				return nil, fmt.Errorf("sweep: phase %s aborted: %w", ph, err)
			}
		}

		if err := c.runPhase(ph, acc[ph], freqs, stepsTE, minCycles, prog); err != nil {
			return nil, err
		}
	}

	c.silence()

	rows := make([]calibrate.Result, dim)

	var sinkErr error

	for i := range rows {
		z := calibrate.Combine(plan.Calibration,
			acc[PhaseOpen][i], acc[PhaseShort][i], acc[PhaseLoad][i],
			acc[PhaseMeasure][i], plan.ZRef)

		f := freqs[0]
		if plan.Mode == FrequencySweep {
			f = freqs[i]
		}

		rows[i] = calibrate.Derive(z, f)

		if c.results != nil {
			if err := c.results.Write(i, rows[i]); err != nil {
				c.log.Warn("result sink failed", zap.Int("index", i), zap.Error(err))
				sinkErr = errors.Join(sinkErr, err)
			}
		}
	}

	return rows, sinkErr
}

// runPhase fills one phase accumulator.
func (c *Controller) runPhase(ph Phase, out []complex128, freqs []float64,
	stepsTE, minCycles int, prog *progress) error {
	plan := c.plan

	if plan.Mode == FrequencySweep {
		// Warm-up frequencies ramp from half the start frequency up to
		// the start frequency; their results are discarded.
		for k := 1; k <= stepsTE; k++ {
			f := warmupFrequency(plan.StartFreq, k, stepsTE)
			if _, err := c.measurePoint(f, minCycles); err != nil {
				return err
			}
			prog.step()
		}

		for i, f := range freqs {
			z, err := c.measurePoint(f, minCycles)
			if err != nil {
				return err
			}
			out[i] = z
			prog.step()
		}

		return nil
	}

	f := freqs[0]

	if ph != PhaseMeasure {
		// One representative per calibration standard, replicated over
		// every measurement index.
		z, err := c.measurePoint(f, minCycles)
		if err != nil {
			return err
		}
		for i := range out {
			out[i] = z
		}
		prog.step()

		return nil
	}

	// Leading repeats settle the fixture and are discarded.
	for k := 0; k < stepsTE; k++ {
		if _, err := c.measurePoint(f, minCycles); err != nil {
			return err
		}
		prog.step()
	}

	for i := range out {
		z, err := c.measurePoint(f, minCycles)
		if err != nil {
			return err
		}
		out[i] = z
		prog.step()
	}

	return nil
}

// measurePoint runs one full synthesize → play → acquire → demodulate
// cycle per averaging trial and returns the mean impedance. Degenerate
// demodulations are kept as non-finite contributions and logged; every
// other failure is fatal.
func (c *Controller) measurePoint(freqHz float64, minCycles int) (complex128, error) {
	plan := c.plan

	win, err := decimate.Plan(freqHz, minCycles)
	if err != nil {
		return 0, err
	}

	buf, awg, err := synth.Params{
		Amplitude:    plan.Amplitude,
		Frequency:    freqHz,
		EndFrequency: plan.EndFreq,
		Shape:        plan.Shape,
	}.Generate()
	if err != nil {
		return 0, err
	}

	if err := c.dev.Play(plan.Channel, buf, awg); err != nil {
		return 0, fmt.Errorf("sweep: playback at %g Hz: %w", freqHz, err)
	}

	omega := 2 * math.Pi * freqHz
	re := make([]float64, plan.Averaging)
	im := make([]float64, plan.Averaging)

	for trial := 0; trial < plan.Averaging; trial++ {
		rec, err := hw.AcquireWithRetry(c.dev, win, c.retry)
		if err != nil {
			return 0, fmt.Errorf("sweep: acquisition at %g Hz: %w", freqHz, err)
		}

		z, err := lockin.Analyze(rec, win, plan.DCBias, plan.Shunt, omega)
		if err != nil {
			if !errors.Is(err, lockin.ErrDegenerate) {
				return 0, err
			}
			// Degenerate trials stay in the average as non-finite
			// values; only the affected output scalars suffer.
			c.log.Warn("degenerate demodulation",
				zap.Float64("frequency", freqHz), zap.Error(err))
		}

		re[trial] = real(z)
		im[trial] = imag(z)
	}

	c.log.Debug("measured point",
		zap.Float64("frequency", freqHz),
		zap.Int("samples", win.Size),
		zap.Int("decimation", win.Setting.Factor))

	return complex(stat.Mean(re, nil), stat.Mean(im, nil)), nil
}

// silence plays a zero-amplitude constant buffer so the generator output
// does not keep exciting the fixture after the run.
func (c *Controller) silence() {
	buf, awg, err := synth.Params{
		Amplitude: 0,
		Frequency: 1000,
		Shape:     synth.Const,
	}.Generate()
	if err == nil {
		err = c.dev.Play(c.plan.Channel, buf, awg)
	}

	if err != nil {
		c.log.Warn("failed to silence output", zap.Error(err))
	}
}

// warmupFrequency returns the k-th of stepsTE warm-up points, ramping
// from half the start frequency up to exactly the start frequency, never
// below the lowest decimation band.
func warmupFrequency(startHz float64, k, stepsTE int) float64 {
	half := startHz / 2
	f := math.Round(half + half*float64(k)/float64(stepsTE))

	if f < decimate.MinFrequency {
		f = decimate.MinFrequency
	}

	return f
}

// progress converts completed measurement points into integer percent
// updates for the optional sink.
type progress struct {
	c     *Controller
	done  int
	total int
	last  int
}

func newProgress(c *Controller, phases []Phase, plan Plan, stepsTE, dim int) *progress {
	if plan.Mode == FrequencySweep {
		return &progress{c: c, total: len(phases) * (stepsTE + plan.Steps), last: -1}
	}

	// Measurement sweep: calibration phases run once, the measure phase
	// runs the warm-up repeats plus every reported repeat.
	total := stepsTE + dim
	for _, ph := range phases {
		if ph != PhaseMeasure {
			total++
		}
	}

	return &progress{c: c, total: total, last: -1}
}

func (p *progress) step() {
	p.done++

	if p.c.progress == nil || p.total == 0 {
		return
	}

	percent := 100 * p.done / p.total
	if percent == p.last {
		return
	}
	p.last = percent

	if err := p.c.progress.Progress(percent); err != nil {
		p.c.log.Warn("progress sink failed", zap.Error(err))
	}
}
