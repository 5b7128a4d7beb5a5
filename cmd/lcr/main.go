// Command lcr runs an impedance sweep against a simulated analog front
// end and prints one row of derived parameters per measured point.
//
// Usage:
//
//	lcr [flags]
//
// Examples:
//
//	lcr -start 1000 -steps 1 -dut-r 500
//	lcr -sweep frequency -start 100 -end 100000 -steps 10 -scale log -dut-r 200 -dut-c 100e-9
//	lcr -calibration open-short-load -zref-real 100 -wait -outdir /tmp/lcr_data
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/jeanminet/redpitaya-lcr/dsp/synth"
	"github.com/jeanminet/redpitaya-lcr/hw"
	"github.com/jeanminet/redpitaya-lcr/measure/calibrate"
	"github.com/jeanminet/redpitaya-lcr/measure/sweep"
)

func main() {
	channel := flag.Int("channel", 1, "output channel (1 or 2)")
	amplitude := flag.Float64("amplitude", 0.5, "excitation amplitude in V (0, 1]")
	bias := flag.Float64("bias", 0, "excitation DC bias in V [0, 1]")
	shunt := flag.Float64("shunt", 1000, "shunt resistor in ohm")
	averaging := flag.Int("averaging", 1, "demodulation trials per point")
	calibration := flag.String("calibration", "none", "calibration mode: none, open-short-load, open-short")
	zrefReal := flag.Float64("zref-real", 0, "load standard resistance in ohm (open-short-load mode)")
	zrefImag := flag.Float64("zref-imag", 0, "load standard reactance in ohm (open-short-load mode)")
	steps := flag.Int("steps", 1, "frequency points or measurement repeats")
	mode := flag.String("sweep", "measurement", "sweep mode: measurement, frequency")
	start := flag.Float64("start", 1000, "start frequency in Hz")
	end := flag.Float64("end", 0, "end frequency in Hz (frequency sweep)")
	scale := flag.String("scale", "linear", "frequency stepping: linear, log")
	shape := flag.String("shape", "sine", "excitation shape: sine, square, triangle, sweep")
	wait := flag.Bool("wait", false, "pause for Enter before each calibration phase")
	outdir := flag.String("outdir", "", "write per-column data files into this directory")
	progress := flag.String("progress", "", "write percent-complete updates to this file")
	dutR := flag.Float64("dut-r", 500, "simulated DUT resistance in ohm")
	dutC := flag.Float64("dut-c", 0, "simulated DUT series capacitance in F (0 disables)")
	dutL := flag.Float64("dut-l", 0, "simulated DUT series inductance in H (0 disables)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lcr [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Measures complex impedance over a frequency or repetition sweep\n")
		fmt.Fprintf(os.Stderr, "and prints the derived circuit parameters per point.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lcr -start 1000 -steps 1 -dut-r 500\n")
		fmt.Fprintf(os.Stderr, "  lcr -sweep frequency -start 100 -end 100000 -steps 10 -scale log\n")
		fmt.Fprintf(os.Stderr, "  lcr -calibration open-short-load -zref-real 100 -wait\n")
	}
	flag.Parse()

	plan := sweep.Plan{
		Channel:     hw.Channel(*channel - 1),
		Amplitude:   *amplitude,
		DCBias:      *bias,
		Shunt:       *shunt,
		Averaging:   *averaging,
		ZRef:        complex(*zrefReal, *zrefImag),
		Steps:       *steps,
		StartFreq:   *start,
		EndFreq:     *end,
		WaitForUser: *wait,
	}

	var ok bool
	if plan.Calibration, ok = parseCalibration(*calibration); !ok {
		fatalf("unknown calibration mode %q", *calibration)
	}
	if plan.Mode, ok = parseMode(*mode); !ok {
		fatalf("unknown sweep mode %q", *mode)
	}
	if plan.Scale, ok = parseScale(*scale); !ok {
		fatalf("unknown scale %q", *scale)
	}
	if plan.Shape, ok = parseShape(*shape); !ok {
		fatalf("unknown shape %q", *shape)
	}

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fatalf("logger: %v", err)
		}
		log = l
		defer func() { _ = log.Sync() }()
	}

	dev := hw.NewSimulator(dutModel(*dutR, *dutC, *dutL), *shunt, *bias)

	opts := []sweep.Option{sweep.WithLogger(log)}

	if *outdir != "" {
		sink, err := hw.NewDirResultSink(*outdir)
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = sink.Close() }()
		opts = append(opts, sweep.WithResults(sink))
	}

	if *progress != "" {
		opts = append(opts, sweep.WithProgress(hw.FileProgressSink{Path: *progress}))
	}

	if *wait {
		opts = append(opts, sweep.WithPrompt(promptOperator))
	}

	ctrl, err := sweep.New(plan, dev, opts...)
	if err != nil {
		fatalf("%v", err)
	}

	rows, err := ctrl.Run()
	if rows == nil && err != nil {
		fatalf("%v", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	printRows(rows)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func parseCalibration(s string) (calibrate.Mode, bool) {
	switch strings.ToLower(s) {
	case "none":
		return calibrate.None, true
	case "open-short-load", "osl":
		return calibrate.OpenShortLoad, true
	case "open-short", "os":
		return calibrate.OpenShort, true
	}
	return 0, false
}

func parseMode(s string) (sweep.Mode, bool) {
	switch strings.ToLower(s) {
	case "measurement":
		return sweep.MeasurementSweep, true
	case "frequency":
		return sweep.FrequencySweep, true
	}
	return 0, false
}

func parseScale(s string) (sweep.Scale, bool) {
	switch strings.ToLower(s) {
	case "linear":
		return sweep.Linear, true
	case "log":
		return sweep.Log, true
	}
	return 0, false
}

func parseShape(s string) (synth.Shape, bool) {
	switch strings.ToLower(s) {
	case "sine":
		return synth.Sine, true
	case "square":
		return synth.Square, true
	case "triangle":
		return synth.Triangle, true
	case "sweep", "chirp":
		return synth.Sweep, true
	}
	return 0, false
}

// dutModel builds the simulated device under test. Capacitance and
// inductance add in series with the resistance.
func dutModel(r, c, l float64) hw.ImpedanceModel {
	switch {
	case c > 0 && l > 0:
		return func(omega float64) complex128 {
			return complex(r, omega*l-1/(omega*c))
		}
	case c > 0:
		return hw.SeriesRC(r, c)
	case l > 0:
		return hw.SeriesRL(r, l)
	default:
		return hw.Resistor(r)
	}
}

func promptOperator(ph sweep.Phase) error {
	fmt.Fprintf(os.Stderr, "connect the %s standard and press Enter to continue...\n", ph)
	_, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return err
}

func printRows(rows []calibrate.Result) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Freq [Hz]\t|Z| [ohm]\tPhase Z [deg]\t|Y| [S]\tPhase Y [deg]\tRs [ohm]\tXs [ohm]\tGp [S]\tBp [S]\tCs [F]\tCp [F]\tLs [H]\tLp [H]\tRp [ohm]\tQ\tD\n")

	for _, r := range rows {
		fmt.Fprintf(tw, "%.0f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Frequency,
			cell(r.AmplitudeZ), cell(r.PhaseZ),
			cell(r.AmplitudeY), cell(r.PhaseY),
			cell(r.Rs), cell(r.Xs),
			cell(r.Gp), cell(r.Bp),
			cell(r.Cs), cell(r.Cp),
			cell(r.Ls), cell(r.Lp),
			cell(r.Rp), cell(r.Q), cell(r.D),
		)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

// cell formats one table value, keeping non-finite results readable.
func cell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.5g", v)
}
