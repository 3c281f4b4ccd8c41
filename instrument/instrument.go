// Package instrument provides type and interface definitions for the
// test-and-measurement device that drives the passthrough bench: waveform
// specifications for the generator, acquisition configuration for the scope,
// and the Session interface that both the vendor-backed and simulated
// implementations satisfy.
package instrument

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
)

var (
	// ErrNoDevice is generated when enumeration finds zero devices
	ErrNoDevice = errors.New("no test and measurement device found")

	// ErrSessionClosed is generated when a call is made on a session that is
	// not open.  Callers must treat this as a precondition violation, not a
	// transient condition
	ErrSessionClosed = errors.New("session is not open")
)

// Shape is the functional form of a generated waveform
type Shape int

// Waveform shapes supported by the generator
const (
	DC Shape = iota
	Sine
	Square
	Triangle
	RampUp
	RampDown
)

func (s Shape) String() string {
	switch s {
	case DC:
		return "DC"
	case Sine:
		return "Sine"
	case Square:
		return "Square"
	case Triangle:
		return "Triangle"
	case RampUp:
		return "RampUp"
	case RampDown:
		return "RampDown"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// WaveformSpec describes a stimulus waveform.  Once applied to a generator
// channel it is immutable; reconfigure and restart the channel to change it.
// Frequency must be positive for any shape other than DC, and Amplitude must
// be nonnegative.  Amplitude + |Offset| staying inside the instrument's safe
// output range is the caller's responsibility; nothing here clamps it.
type WaveformSpec struct {
	Shape Shape

	// Frequency is the repetition rate in Hz
	Frequency float64

	// Amplitude is the peak deviation from Offset in volts
	Amplitude float64

	// Offset is the DC offset in volts
	Offset float64
}

// Sample evaluates the ideal waveform at time t (seconds)
func (w WaveformSpec) Sample(t float64) float64 {
	switch w.Shape {
	case Sine:
		return w.Offset + w.Amplitude*math.Sin(2*math.Pi*w.Frequency*t)
	case Square:
		if math.Sin(2*math.Pi*w.Frequency*t) >= 0 {
			return w.Offset + w.Amplitude
		}
		return w.Offset - w.Amplitude
	case Triangle:
		x := t * w.Frequency
		return w.Offset + w.Amplitude*(2*math.Abs(2*(x-math.Floor(x+0.5)))-1)
	case RampUp:
		x := t * w.Frequency
		frac := x - math.Floor(x)
		return w.Offset + w.Amplitude*(2*frac-1)
	case RampDown:
		x := t * w.Frequency
		frac := x - math.Floor(x)
		return w.Offset + w.Amplitude*(1-2*frac)
	default: // DC
		return w.Offset
	}
}

// Series synthesizes n samples of the ideal waveform on the regular grid
// t_i = i / sampleRate.  This is the reference signal the metrics compare
// captured data against
func (w WaveformSpec) Series(sampleRate float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("series length must be > 0: %d", n)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}
	if w.Shape != DC && w.Frequency <= 0 {
		return nil, fmt.Errorf("frequency must be > 0 for shape %v: %f", w.Shape, w.Frequency)
	}
	if w.Shape == Sine {
		g := signal.NewGenerator(core.WithSampleRate(sampleRate))
		out, err := g.Sine(w.Frequency, w.Amplitude, n)
		if err != nil {
			return nil, err
		}
		if w.Offset != 0 {
			for i := range out {
				out[i] += w.Offset
			}
		}
		return out, nil
	}
	out := make([]float64, n)
	dt := 1 / sampleRate
	for i := range out {
		out[i] = w.Sample(float64(i) * dt)
	}
	return out, nil
}

// TriggerSource gates when sampling begins
type TriggerSource int

// Trigger sources
const (
	// TriggerNone free-runs the acquisition; the instrument's auto timeout
	// alone decides when it completes
	TriggerNone TriggerSource = iota

	// TriggerAnalogDetector triggers on an edge condition seen by the
	// analog-in detector
	TriggerAnalogDetector
)

// TriggerEdge selects the edge polarity for the analog detector
type TriggerEdge int

// Trigger edges
const (
	EdgeRising TriggerEdge = iota
	EdgeFalling
)

// AcquisitionState is the lifecycle of one capture operation.  It is polled
// from the device, never pushed.  Numeric values follow the vendor SDK
type AcquisitionState int

// Acquisition states
const (
	StateReady     AcquisitionState = 0
	StateArmed     AcquisitionState = 1
	StateDone      AcquisitionState = 2
	StateTriggered AcquisitionState = 3
	StateConfig    AcquisitionState = 4
	StatePrefill   AcquisitionState = 5
	StateWaiting   AcquisitionState = 7
)

func (s AcquisitionState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateArmed:
		return "Armed"
	case StateDone:
		return "Done"
	case StateTriggered:
		return "Triggered"
	case StateConfig:
		return "Config"
	case StatePrefill:
		return "Prefill"
	case StateWaiting:
		return "Waiting"
	default:
		return fmt.Sprintf("AcquisitionState(%d)", int(s))
	}
}

// AcquisitionConfig describes one capture window.  It determines the shape of
// the resulting CaptureBuffer(s)
type AcquisitionConfig struct {
	// Channels are the scope channel indices to enable and read back
	Channels []int

	// Range is the full voltage range of each enabled channel in volts
	Range float64

	// VerticalOffset is the vertical offset of each enabled channel in volts
	VerticalOffset float64

	// SampleRate is the acquisition rate in Hz.  Choosing it high enough for
	// the stimulus (>= ~20-100x the signal frequency) is the caller's job;
	// no automatic rate selection happens downstream
	SampleRate float64

	// BufferLength is the number of samples to capture, 1..device max
	BufferLength int

	// TriggerSource gates the start of sampling
	TriggerSource TriggerSource

	// TriggerEdge is the edge polarity when TriggerSource is the analog
	// detector
	TriggerEdge TriggerEdge

	// TriggerChannel is the channel the detector watches
	TriggerChannel int

	// TriggerLevel is the detector threshold in volts
	TriggerLevel float64

	// AutoTimeout bounds only the trigger-wait phase inside the instrument;
	// it is independent of any host-side capture deadline
	AutoTimeout time.Duration
}

// Session is the capability interface over one open hardware handle.  All
// calls are synchronous.  Exactly one session owns the handle at a time; a
// closed session fails every call with ErrSessionClosed.  The simulated
// implementation in this package satisfies it, which is what keeps the
// acquisition and metrics layers testable without bench hardware
type Session interface {
	// ConfigureGenerator applies a waveform spec to a generator channel
	ConfigureGenerator(channel int, spec WaveformSpec) error

	// StartGenerator starts analog output on the channel.  Re-issuing start
	// with an unchanged spec is electrically a no-op, but the call is always
	// re-sent
	StartGenerator(channel int) error

	// StopGenerator stops analog output on the channel
	StopGenerator(channel int) error

	// ConfigureAcquisition applies a capture configuration
	ConfigureAcquisition(cfg AcquisitionConfig) error

	// ArmAcquisition starts the configured capture
	ArmAcquisition() error

	// PollState reads the current acquisition state from the device
	PollState() (AcquisitionState, error)

	// ReadChannel reads n samples of the most recent capture from a channel
	ReadChannel(channel, n int) ([]float64, error)

	// MaxBuffer reports the device's maximum capture buffer length
	MaxBuffer() (int, error)

	// Close releases the hardware handle.  It must run on every exit path so
	// the vendor driver's device lock is not leaked across process restarts
	Close() error
}
