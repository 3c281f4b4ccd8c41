package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/theckman/yacspin"

	"github.com/benchtop/adcdac/bench"
	"github.com/benchtop/adcdac/dwf"
	"github.com/benchtop/adcdac/instrument"
	"github.com/benchtop/adcdac/metrics"
	"github.com/benchtop/adcdac/report"
	"github.com/benchtop/adcdac/sweep"
	"github.com/benchtop/adcdac/usbhint"
)

// Config holds the initialization parameters for a bench run.  It is to be
// populated by a yaml/unmarshal call
type Config struct {
	// Mock runs against a simulated instrument instead of real hardware
	Mock bool `yaml:"Mock"`

	// MockGain and MockDelaySamples shape the simulated passthrough
	MockGain         float64 `yaml:"MockGain"`
	MockDelaySamples int     `yaml:"MockDelaySamples"`

	// GenChannel drives the ADC input, ScopeChannel watches the DAC output.
	// Both are zero-indexed; the WaveForms UI labels them 1-indexed
	GenChannel   int `yaml:"GenChannel"`
	ScopeChannel int `yaml:"ScopeChannel"`

	// Range is the scope full voltage range
	Range float64 `yaml:"Range"`

	// Amplitude and Offset shape every stimulus.  The defaults center a
	// 2.5 Vpp swing in the converters' 0-3.3V window
	Amplitude float64 `yaml:"Amplitude"`
	Offset    float64 `yaml:"Offset"`

	// SweepFrequencies is the list of sine frequencies for the Bode test
	SweepFrequencies []float64 `yaml:"SweepFrequencies"`

	// CaptureTimeoutS bounds each capture's host-side wait, in seconds
	CaptureTimeoutS float64 `yaml:"CaptureTimeoutS"`

	// SettleMS is the post-stimulus settling time, in milliseconds
	SettleMS int `yaml:"SettleMS"`

	// OutputDir receives plot and CSV artifacts
	OutputDir string `yaml:"OutputDir"`
}

// DefaultConfig returns the configuration used when no yaml file overrides it
func DefaultConfig() Config {
	return Config{
		MockGain:         1,
		Range:            5,
		Amplitude:        1.25,
		Offset:           1.25,
		SweepFrequencies: sweep.DefaultFrequencies,
		CaptureTimeoutS:  5,
		SettleMS:         100,
		OutputDir:        "artifacts",
	}
}

func (c Config) benchOptions() bench.Options {
	return bench.Options{
		GenChannel:     c.GenChannel,
		ScopeChannel:   c.ScopeChannel,
		Range:          c.Range,
		VerticalOffset: c.Offset,
		TriggerLevel:   c.Offset,
		Timeout:        time.Duration(c.CaptureTimeoutS * float64(time.Second)),
		Settle:         time.Duration(c.SettleMS) * time.Millisecond,
	}
}

// connect opens the instrument session described by the config.  For real
// hardware it enumerates, logs what it found and takes the first device
func connect(c Config) (instrument.Session, error) {
	if c.Mock {
		log.Println("Mock=true, using simulated instrument")
		sim := instrument.NewSim()
		sim.OutputChannel = c.ScopeChannel
		sim.Gain = c.MockGain
		sim.DelaySamples = c.MockDelaySamples
		return sim, nil
	}
	ver, err := dwf.Version()
	if err != nil {
		return nil, fmt.Errorf("query SDK version: %w", err)
	}
	log.Println("WaveForms SDK version", ver)
	n, err := dwf.Enumerate()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, instrument.ErrNoDevice
	}
	name, err := dwf.DeviceName(0)
	if err != nil {
		return nil, err
	}
	log.Printf("found %d device(s), opening %q\n", n, name)
	return dwf.Open(dwf.FirstDevice)
}

// noDeviceHelp prints troubleshooting context when enumeration comes up empty
func noDeviceHelp() {
	for _, line := range usbhint.NoDeviceLines(dwf.InstallHint) {
		log.Println(line)
	}
}

func printMetrics(label string, m metrics.Metrics, timedOut bool) {
	fmt.Println("---", label, "---")
	if timedOut {
		fmt.Println("WARNING: capture timed out, data is best-effort")
	}
	fmt.Printf("input   AC-RMS  %.4f V\n", m.RMSIn)
	fmt.Printf("output  AC-RMS  %.4f V\n", m.RMSOut)
	fmt.Printf("gain            %.4f (%.2f dB)\n", m.Gain, m.GainDB)
	fmt.Printf("delay           %.1f us\n", m.Delay*1e6)
	fmt.Printf("input   DC      %.4f V\n", m.DCIn)
	fmt.Printf("output  DC      %.4f V\n", m.DCOut)
}

func runCase(s instrument.Session, c Config, tc bench.Case) (bench.Result, error) {
	log.Printf("%s: %v, %g Hz, %g V amplitude, %g V offset, %g s window\n",
		tc.Name, tc.Spec.Shape, tc.Spec.Frequency, tc.Spec.Amplitude,
		tc.Spec.Offset, tc.Duration)
	res, err := bench.Run(s, tc, c.benchOptions())
	if err != nil {
		return res, err
	}
	printMetrics(tc.Name, res.Metrics, res.TimedOut)

	png := filepath.Join(c.OutputDir, tc.Name+".png")
	if err := report.Overlay(png, tc.Name, res.Input, res.Output); err != nil {
		return res, err
	}
	csv := filepath.Join(c.OutputDir, tc.Name+".csv")
	if err := report.WriteCSV(csv, res.Input, res.Output); err != nil {
		return res, err
	}
	log.Println("wrote", png, "and", csv)
	return res, nil
}

func runSweep(s instrument.Session, c Config) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " frequency sweep",
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if err != nil {
		return err
	}
	spinner.Start()
	r := sweep.Runner{
		Session:   s,
		Amplitude: c.Amplitude,
		Offset:    c.Offset,
		Options:   c.benchOptions(),
		Progress: func(i, total int, f float64) {
			spinner.Message(fmt.Sprintf("%d/%d  %g Hz", i+1, total, f))
		},
	}
	pts, err := r.Run(c.SweepFrequencies)
	if err != nil {
		spinner.StopFail()
		return err
	}
	spinner.Stop()

	fmt.Println("--- test_sweep ---")
	fmt.Println("freq (Hz)   gain     gain (dB)  phase (deg)")
	for _, pt := range pts {
		fmt.Printf("%9g   %.4f   %8.2f   %10.1f\n", pt.Frequency, pt.Gain, pt.GainDB, pt.PhaseDeg)
	}
	if flat := flatnessDB(pts); !math.IsInf(flat, 0) {
		fmt.Printf("passband flatness: %.2f dB spread\n", flat)
	}

	png := filepath.Join(c.OutputDir, "test_sweep_bode.png")
	if err := report.Bode(png, pts); err != nil {
		return err
	}
	log.Println("wrote", png)
	return nil
}

// flatnessDB is the max-min spread of the sweep's gain in dB
func flatnessDB(pts []sweep.Point) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pt := range pts {
		lo = math.Min(lo, pt.GainDB)
		hi = math.Max(hi, pt.GainDB)
	}
	return hi - lo
}

// runTests executes the full bench suite.  It recovers panics so a crash
// mid-run still stops the generator and releases the device
func runTests(c Config) {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		log.Println("create output dir:", err)
		return
	}
	s, err := connect(c)
	if err != nil {
		if errors.Is(err, instrument.ErrNoDevice) {
			noDeviceHelp()
			return
		}
		log.Println("connect:", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Println("panic during bench run:", r)
			debug.PrintStack()
		}
		s.StopGenerator(c.GenChannel)
		if d, ok := s.(*dwf.Device); ok {
			d.ResetGenerators()
		}
		if err := s.Close(); err != nil {
			log.Println("closing session:", err)
		}
	}()

	_, err = runCase(s, c, bench.Case{
		Name: "test_sine_100hz",
		Spec: instrument.WaveformSpec{
			Shape:     instrument.Sine,
			Frequency: 100,
			Amplitude: c.Amplitude,
			Offset:    c.Offset,
		},
		Duration: 0.05,
	})
	if err != nil {
		log.Println("test_sine_100hz:", err)
		return
	}

	_, err = runCase(s, c, bench.Case{
		Name: "test_triangle_50hz",
		Spec: instrument.WaveformSpec{
			Shape:     instrument.Triangle,
			Frequency: 50,
			Amplitude: c.Amplitude,
			Offset:    c.Offset,
		},
		Duration: 0.1,
	})
	if err != nil {
		log.Println("test_triangle_50hz:", err)
		return
	}

	if err := runSweep(s, c); err != nil {
		log.Println("test_sweep:", err)
		return
	}
	log.Println("bench run complete")
}
