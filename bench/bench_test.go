package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop/adcdac/instrument"
)

func TestPlan(t *testing.T) {
	cases := []struct {
		name      string
		freq, dur float64
		maxBuf    int
		wantRate  float64
		wantN     int
	}{
		{"low frequency hits the rate floor", 50, 0.1, 8192, 10e3, 1000},
		{"high frequency scales the rate", 2000, 0.01, 8192, 200e3, 2000},
		{"long window clamps to the device buffer", 100, 10, 8192, 10e3, 8192},
		{"tiny window still captures one sample", 100, 1e-9, 8192, 10e3, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate, n := Plan(tc.freq, tc.dur, tc.maxBuf)
			assert.Equal(t, tc.wantRate, rate)
			assert.Equal(t, tc.wantN, n)
		})
	}
}

func fastOptions() Options {
	return Options{
		ScopeChannel: 1,
		PollInterval: time.Millisecond,
		Settle:       time.Millisecond,
		Timeout:      time.Second,
	}
}

func TestRunPassthrough(t *testing.T) {
	sim := instrument.NewSim()
	sim.OutputChannel = 1
	sim.Gain = 0.5
	sim.DelaySamples = 2

	res, err := Run(sim, Case{
		Name: "sine",
		Spec: instrument.WaveformSpec{
			Shape:     instrument.Sine,
			Frequency: 100,
			Amplitude: 1.25,
			Offset:    1.25,
		},
		Duration: 0.05,
	}, fastOptions())
	require.NoError(t, err)

	assert.False(t, res.TimedOut)
	assert.Len(t, res.Output.Samples, 500)
	assert.Len(t, res.Input.Samples, 500)
	assert.Equal(t, res.Input.SampleRate, res.Output.SampleRate)

	assert.InDelta(t, 0.5, res.Metrics.Gain, 1e-6)
	assert.InDelta(t, 2.0/10e3, res.Metrics.Delay, 1e-12)
	assert.InDelta(t, 1.25, res.Metrics.DCOut, 1e-6)

	// the stimulus is left running for the caller to stop
	assert.True(t, sim.Running(0))
}

func TestRunClampsLongWindows(t *testing.T) {
	sim := instrument.NewSim()
	res, err := Run(sim, Case{
		Name: "long",
		Spec: instrument.WaveformSpec{
			Shape:     instrument.Sine,
			Frequency: 10,
			Amplitude: 1,
			Offset:    1,
		},
		Duration: 10,
	}, fastOptions())
	require.NoError(t, err)
	assert.Len(t, res.Output.Samples, instrument.DefaultMaxBuffer)
}

func TestRunTimedOutStillReports(t *testing.T) {
	sim := instrument.NewSim()
	sim.Stall = true
	opt := fastOptions()
	opt.Timeout = 20 * time.Millisecond

	res, err := Run(sim, Case{
		Name: "stalled",
		Spec: instrument.WaveformSpec{
			Shape:     instrument.Sine,
			Frequency: 100,
			Amplitude: 1,
			Offset:    1,
		},
		Duration: 0.05,
	}, opt)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.NotEmpty(t, res.Output.Samples)
}

func TestRunRejectsBadSpec(t *testing.T) {
	sim := instrument.NewSim()
	_, err := Run(sim, Case{
		Name: "bad",
		Spec: instrument.WaveformSpec{Shape: instrument.Sine, Amplitude: -1, Frequency: 100},
	}, fastOptions())
	assert.Error(t, err)
}

func TestRunClosedSession(t *testing.T) {
	sim := instrument.NewSim()
	require.NoError(t, sim.Close())
	_, err := Run(sim, Case{
		Name: "closed",
		Spec: instrument.WaveformSpec{Shape: instrument.DC},
	}, fastOptions())
	assert.ErrorIs(t, err, instrument.ErrSessionClosed)
}
