// Command remapinfo prints the geometry of the spectral remapper and
// tabulates what a mapping script does to each bin.
//
// Usage:
//
//	remapinfo [flags]
//
// Examples:
//
//	remapinfo -size 1024
//	remapinfo -size 4096 -shape 0.3 -offset 512
//	remapinfo -script octave.lua -bins 16
//	remapinfo -default -macros 0.5,0,0,1
//	remapinfo -script octave.lua -probe 440
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-remap/dsp/core"
	"github.com/cwbudde/algo-remap/dsp/pvoc"
	"github.com/cwbudde/algo-remap/dsp/remap"
	"github.com/cwbudde/algo-remap/dsp/window"
	"github.com/cwbudde/algo-remap/host"
	"github.com/cwbudde/algo-remap/measure/probe"
)

type options struct {
	size       int
	rate       float64
	shape      float64
	offset     int
	script     string
	useDefault bool
	bins       int
	first      int
	macros     [4]float64
	channel    int
	probe      float64
	logLevel   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	logger, err := newLogger(opts.logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	v, err := pvoc.New(opts.size, opts.rate)
	if err != nil {
		logger.Error("engine setup failed", "error", err)
		return 1
	}
	defer v.Close()

	if err := printGeometry(stdout, v, opts); err != nil {
		logger.Error("window analysis failed", "error", err)
		return 1
	}

	path := opts.script
	if path == "" && opts.useDefault {
		path, err = host.DefaultMappingPath()
		if err != nil {
			logger.Error("no default mapping path", "error", err)
			return 1
		}
	}
	if path == "" {
		return runProbe(stdout, logger, v, opts)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		logger.Error("cannot read mapping", "path", path, "error", err)
		return 1
	}

	if err := v.InstallMapping(string(src)); err != nil {
		fmt.Fprintf(stdout, "\nmapping %s rejected:\n%v\n", path, err)
		return 1
	}

	logger.Debug("mapping installed", "path", path, "hash", fmt.Sprintf("%016x", v.MappingHash()))
	fmt.Fprintf(stdout, "\nmapping %s (hash %016x)\n\n", path, v.MappingHash())

	if err := printMapping(stdout, v, string(src), opts); err != nil {
		logger.Error("mapping failed", "error", err)
		return 1
	}

	return runProbe(stdout, logger, v, opts)
}

func runProbe(w io.Writer, logger *slog.Logger, v *pvoc.Vocoder, opts options) int {
	if opts.probe == 0 {
		return 0
	}

	ctl := pvoc.DefaultControls(v.WindowSize(), v.SampleRate())
	ctl.Macros = opts.macros
	ctl.Channel = opts.channel
	ctl.WindowOffset = opts.offset
	ctl.WindowShape = opts.shape

	r, err := probe.Run(v, ctl, probe.Config{Frequency: opts.probe})
	if err != nil {
		logger.Error("probe failed", "frequency", opts.probe, "error", err)
		return 1
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nprobe\t%.2f Hz\n", opts.probe)
	fmt.Fprintf(tw, "gain\t%s\n", r.GainDB())
	fmt.Fprintf(tw, "peak\t%.4f\n", r.Peak)
	fmt.Fprintf(tw, "dominant\t%.2f Hz\n", r.Dominant)
	fmt.Fprintf(tw, "residual\t%s\n", core.FormatGainDB(r.Residual))
	fmt.Fprintf(tw, "centroid\t%.2f Hz\n", r.Centroid)
	fmt.Fprintf(tw, "flatness\t%.4f\n", r.Flatness)
	if err := tw.Flush(); err != nil {
		logger.Error("write failed", "error", err)
		return 1
	}

	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		opts   options
		macros string
	)

	fs := flag.NewFlagSet("remapinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.size, "size", 2048, "window size in samples (rounded up to a power of two)")
	fs.Float64Var(&opts.rate, "rate", 48000, "sample rate in Hz")
	fs.Float64Var(&opts.shape, "shape", window.DefaultShape, "window shape factor in [0,1]")
	fs.IntVar(&opts.offset, "offset", 0, "window phase offset in samples")
	fs.StringVar(&opts.script, "script", "", "mapping script to validate and tabulate")
	fs.BoolVar(&opts.useDefault, "default", false, "use the default mapping file ("+host.DefaultMappingFile+" in Documents)")
	fs.IntVar(&opts.bins, "bins", 8, "number of bins to tabulate")
	fs.IntVar(&opts.first, "first", 1, "first bin to tabulate")
	fs.StringVar(&macros, "macros", "0,0,0,0", "macro values a,b,c,d")
	fs.IntVar(&opts.channel, "channel", 0, "sound_channel_id passed to the script")
	fs.Float64Var(&opts.probe, "probe", 0, "render a sine at this frequency (Hz) through the mapping and measure it")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: remapinfo [flags]\n\n")
		fmt.Fprintf(stderr, "Prints remapper geometry and, with -script, the per-bin mapping.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  remapinfo -size 1024\n")
		fmt.Fprintf(stderr, "  remapinfo -script octave.lua -bins 16\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.shape < 0 || opts.shape > 1 || math.IsNaN(opts.shape) {
		return opts, fmt.Errorf("shape %v outside [0,1]", opts.shape)
	}
	if opts.bins < 0 {
		return opts, fmt.Errorf("bins %d is negative", opts.bins)
	}

	m, err := parseMacros(macros)
	if err != nil {
		return opts, err
	}
	opts.macros = m

	return opts, nil
}

func parseMacros(s string) ([4]float64, error) {
	var out [4]float64

	fields := strings.Split(s, ",")
	if len(fields) > len(out) {
		return out, fmt.Errorf("at most %d macros, got %d", len(out), len(fields))
	}

	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, fmt.Errorf("macro %c: %w", 'a'+i, err)
		}
		out[i] = core.Clamp(v, 0, 1)
	}

	return out, nil
}

func printGeometry(w io.Writer, v *pvoc.Vocoder, opts options) error {
	coeffs, err := window.Generate(v.WindowSize(), opts.offset, opts.shape)
	if err != nil {
		return err
	}

	a, err := window.Analyze(coeffs, v.HopSize())
	if err != nil {
		return err
	}

	overlap := float64(pvoc.OverlapFactor)
	identity := overlap * overlap * a.CoherentGain * a.CoherentGain

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "window size\t%d\n", v.WindowSize())
	fmt.Fprintf(tw, "hop size\t%d\n", v.HopSize())
	fmt.Fprintf(tw, "latency\t%d samples (%.2f ms)\n", v.Latency(), 1000*float64(v.Latency())/v.SampleRate())
	fmt.Fprintf(tw, "bin spacing\t%.3f Hz\n", v.BinFrequency(1))
	fmt.Fprintf(tw, "shape / offset\t%.2f / %d\n", opts.shape, opts.offset)
	fmt.Fprintf(tw, "coherent gain\t%.4f\n", a.CoherentGain)
	fmt.Fprintf(tw, "ENBW\t%.4f bins\n", a.ENBW)
	fmt.Fprintf(tw, "overlap gain\t%.4f (ripple %.2e)\n", a.OverlapGain, a.OverlapRipple)
	fmt.Fprintf(tw, "identity gain\t%s\n", core.FormatGainDB(identity))

	return tw.Flush()
}

func printMapping(w io.Writer, v *pvoc.Vocoder, src string, opts options) error {
	compiler := remap.NewCompiler(1)
	script, err := compiler.Compile(src)
	if err != nil {
		return err
	}
	defer script.Close()

	params := remap.Params{
		Macros:     opts.macros,
		Channel:    opts.channel,
		WindowSize: v.WindowSize(),
		SampleRate: v.SampleRate(),
	}

	half := v.WindowSize() / 2
	nyquist := v.SampleRate() / 2
	scale := float64(v.WindowSize()) / v.SampleRate()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "bin\tfrequency\tmapped\tmagnitude\ttarget\t")

	last := min(opts.first+opts.bins, half+1)
	for k := max(opts.first, 1); k < last; k++ {
		in := v.BinFrequency(k)

		freq, mag, err := script.Map(&params, in, 1)
		if err != nil {
			return fmt.Errorf("bin %d: %w", k, err)
		}

		target := "dropped"
		if freq >= 0 && freq < nyquist && !math.IsNaN(mag) && !math.IsInf(mag, 0) {
			target = fmt.Sprintf("%.2f", freq*scale)
		}

		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.3f\t%s\t\n", k, in, freq, mag, target)
	}

	return tw.Flush()
}
