// Package bench runs single passthrough test cases: apply a stimulus, let
// the analog path settle, capture the output, synthesize the ideal input on
// the same time grid, and compute fidelity metrics.
package bench

import (
	"fmt"
	"math"
	"time"

	"github.com/benchtop/adcdac/acquire"
	"github.com/benchtop/adcdac/instrument"
	"github.com/benchtop/adcdac/metrics"
	"github.com/benchtop/adcdac/stimulus"
)

// minSampleRate is the floor for planned captures, matching the reference
// tooling
const minSampleRate = 10e3

// Case is one passthrough test
type Case struct {
	// Name labels artifacts produced for this case
	Name string

	// Spec is the stimulus waveform
	Spec instrument.WaveformSpec

	// Duration is the capture window in seconds
	Duration float64
}

// Options tunes how a case runs.  The zero value is usable; unset fields
// take the defaults noted on each
type Options struct {
	// GenChannel is the generator channel driving the ADC input
	GenChannel int

	// ScopeChannel is the scope channel watching the DAC output
	ScopeChannel int

	// Range is the scope full voltage range; default 5 V
	Range float64

	// VerticalOffset is the scope vertical offset
	VerticalOffset float64

	// TriggerLevel is the analog detector threshold; default VerticalOffset.
	// Captures always trigger on a rising edge through this level; for
	// free-running captures use the acquire package directly
	TriggerLevel float64

	// PollInterval overrides the acquisition poll interval
	PollInterval time.Duration

	// Timeout is the host-side capture deadline; default 5 s
	Timeout time.Duration

	// Settle is how long to wait after starting the stimulus before
	// arming, letting the analog output stabilize; default 100 ms
	Settle time.Duration

	// AutoTimeout is the instrument's trigger-wait bound; default 1 s
	AutoTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Range == 0 {
		o.Range = 5.0
	}
	if o.TriggerLevel == 0 {
		o.TriggerLevel = o.VerticalOffset
	}
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Settle == 0 {
		o.Settle = 100 * time.Millisecond
	}
	if o.AutoTimeout == 0 {
		o.AutoTimeout = time.Second
	}
	return o
}

// Result is the outcome of one case
type Result struct {
	Case Case

	// Input is the ideal stimulus synthesized on the capture grid
	Input instrument.CaptureBuffer

	// Output is the measured DAC output
	Output instrument.CaptureBuffer

	// Metrics compares Output against Input
	Metrics metrics.Metrics

	// TimedOut marks best-effort data from a capture that hit the host
	// deadline
	TimedOut bool
}

// Plan picks a sample rate and buffer length for a capture window: at least
// 100 samples per stimulus cycle with a 10 kHz floor, and a length capped at
// the device buffer.  Callers wanting a different rate configure the
// acquisition themselves
func Plan(frequency, duration float64, maxBuffer int) (sampleRate float64, bufferLength int) {
	sampleRate = math.Max(frequency*100, minSampleRate)
	bufferLength = int(sampleRate * duration)
	if bufferLength < 1 {
		bufferLength = 1
	}
	if bufferLength > maxBuffer {
		bufferLength = maxBuffer
	}
	return sampleRate, bufferLength
}

// Run executes one passthrough case against the session.  The stimulus is
// left running on return; callers own stopping it, typically in their
// cleanup path
func Run(s instrument.Session, tc Case, opt Options) (Result, error) {
	var res Result
	res.Case = tc
	opt = opt.withDefaults()

	maxBuf, err := s.MaxBuffer()
	if err != nil {
		return res, fmt.Errorf("query device buffer depth: %w", err)
	}
	sampleRate, n := Plan(tc.Spec.Frequency, tc.Duration, maxBuf)

	stim := stimulus.Configurator{Session: s}
	if err := stim.Apply(opt.GenChannel, tc.Spec); err != nil {
		return res, err
	}
	time.Sleep(opt.Settle)

	ctl := acquire.New(s)
	if opt.PollInterval > 0 {
		ctl.PollInterval = opt.PollInterval
	}
	err = ctl.Configure(instrument.AcquisitionConfig{
		Channels:       []int{opt.ScopeChannel},
		Range:          opt.Range,
		VerticalOffset: opt.VerticalOffset,
		SampleRate:     sampleRate,
		BufferLength:   n,
		TriggerSource:  instrument.TriggerAnalogDetector,
		TriggerEdge:    instrument.EdgeRising,
		TriggerChannel: opt.ScopeChannel,
		TriggerLevel:   opt.TriggerLevel,
		AutoTimeout:    opt.AutoTimeout,
	})
	if err != nil {
		return res, err
	}
	capt, err := ctl.Capture(opt.Timeout)
	if err != nil {
		return res, err
	}
	res.TimedOut = capt.TimedOut
	res.Output = capt.Buffers[0]

	ideal, err := tc.Spec.Series(sampleRate, len(res.Output.Samples))
	if err != nil {
		return res, fmt.Errorf("synthesize ideal input: %w", err)
	}
	res.Input = instrument.CaptureBuffer{
		Channel:    opt.GenChannel,
		Samples:    ideal,
		SampleRate: sampleRate,
	}
	res.Metrics, err = metrics.Compute(res.Input, res.Output)
	if err != nil {
		return res, err
	}
	return res, nil
}
