package instrument

import (
	"fmt"
)

// DefaultMaxBuffer is the capture buffer depth of the reference instrument
const DefaultMaxBuffer = 8192

// Sim is a synthetic Session for hardware-free runs and tests.  It models the
// bench wiring: every scope channel sees the stimulus of the first running
// generator; OutputChannel additionally passes through a configurable gain
// and sample delay, standing in for the ADC -> FPGA -> DAC path
type Sim struct {
	// MaxBufferLength is the simulated device buffer depth
	MaxBufferLength int

	// OutputChannel is the scope channel wired to the simulated DAC output
	OutputChannel int

	// Gain is the passthrough gain applied on OutputChannel
	Gain float64

	// DelaySamples shifts OutputChannel later in time by whole samples
	DelaySamples int

	// StatePolls is how many polls the state machine takes to reach Done
	StatePolls int

	// Stall, when set, keeps PollState from ever returning Done.  Used to
	// exercise host-side capture deadlines
	Stall bool

	generators map[int]WaveformSpec
	running    map[int]bool
	starts     map[int]int

	cfg        AcquisitionConfig
	configured bool
	armed      bool
	polls      int
	closed     bool
}

var _ Session = (*Sim)(nil)

// NewSim returns a Sim with unity gain, no delay and the reference buffer
// depth
func NewSim() *Sim {
	return &Sim{
		MaxBufferLength: DefaultMaxBuffer,
		Gain:            1,
		StatePolls:      3,
		generators:      map[int]WaveformSpec{},
		running:         map[int]bool{},
		starts:          map[int]int{},
	}
}

func (s *Sim) guard() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// ConfigureGenerator stores the spec for a channel
func (s *Sim) ConfigureGenerator(channel int, spec WaveformSpec) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.generators[channel] = spec
	return nil
}

// StartGenerator marks a configured channel as running
func (s *Sim) StartGenerator(channel int) error {
	if err := s.guard(); err != nil {
		return err
	}
	if _, ok := s.generators[channel]; !ok {
		return fmt.Errorf("generator channel %d has no waveform configured", channel)
	}
	s.running[channel] = true
	s.starts[channel]++
	return nil
}

// StopGenerator marks a channel as stopped
func (s *Sim) StopGenerator(channel int) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.running[channel] = false
	return nil
}

// ConfigureAcquisition validates and stores a capture configuration.  The
// simulated hardware rejects buffer lengths past its depth; clamping is the
// acquisition controller's job, and this is what catches it not doing so
func (s *Sim) ConfigureAcquisition(cfg AcquisitionConfig) error {
	if err := s.guard(); err != nil {
		return err
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.BufferLength < 1 {
		return fmt.Errorf("buffer length must be >= 1: %d", cfg.BufferLength)
	}
	if cfg.BufferLength > s.MaxBufferLength {
		return fmt.Errorf("buffer length %d exceeds device maximum %d", cfg.BufferLength, s.MaxBufferLength)
	}
	s.cfg = cfg
	s.configured = true
	return nil
}

// ArmAcquisition resets the simulated capture state machine
func (s *Sim) ArmAcquisition() error {
	if err := s.guard(); err != nil {
		return err
	}
	if !s.configured {
		return fmt.Errorf("acquisition not configured")
	}
	s.armed = true
	s.polls = 0
	return nil
}

// PollState advances the simulated lifecycle one step per call:
// Config -> Prefill -> Armed -> Triggered -> Done
func (s *Sim) PollState() (AcquisitionState, error) {
	if err := s.guard(); err != nil {
		return StateReady, err
	}
	if !s.armed {
		return StateReady, nil
	}
	if s.Stall {
		return StateArmed, nil
	}
	s.polls++
	if s.polls > s.StatePolls {
		return StateDone, nil
	}
	seq := []AcquisitionState{StateConfig, StatePrefill, StateArmed, StateTriggered}
	i := s.polls - 1
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return seq[i], nil
}

// ReadChannel synthesizes the capture for a channel from the running
// stimulus.  With no generator running the buffer is all zeros
func (s *Sim) ReadChannel(channel, n int) ([]float64, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if !s.configured {
		return nil, fmt.Errorf("acquisition not configured")
	}
	if n <= 0 {
		return nil, fmt.Errorf("read length must be > 0: %d", n)
	}
	if n > s.MaxBufferLength {
		return nil, fmt.Errorf("read length %d exceeds device buffer %d", n, s.MaxBufferLength)
	}
	out := make([]float64, n)
	spec, ok := s.runningSpec()
	if !ok {
		return out, nil
	}
	dt := 1 / s.cfg.SampleRate
	delay := 0.0
	gain := 1.0
	if channel == s.OutputChannel {
		delay = float64(s.DelaySamples) * dt
		gain = s.Gain
	}
	for i := range out {
		v := spec.Sample(float64(i)*dt - delay)
		out[i] = spec.Offset + gain*(v-spec.Offset)
	}
	return out, nil
}

func (s *Sim) runningSpec() (WaveformSpec, bool) {
	for ch, on := range s.running {
		if on {
			return s.generators[ch], true
		}
	}
	return WaveformSpec{}, false
}

// MaxBuffer reports the simulated buffer depth
func (s *Sim) MaxBuffer() (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	return s.MaxBufferLength, nil
}

// Close releases the simulated handle; every later call fails
func (s *Sim) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}

// Generator reports the spec currently applied to a channel
func (s *Sim) Generator(channel int) (WaveformSpec, bool) {
	spec, ok := s.generators[channel]
	return spec, ok
}

// Running reports whether a generator channel is outputting
func (s *Sim) Running(channel int) bool {
	return s.running[channel]
}

// Starts counts how many times StartGenerator was issued for a channel
func (s *Sim) Starts(channel int) int {
	return s.starts[channel]
}
