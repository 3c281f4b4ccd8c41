package sweep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop/adcdac/bench"
	"github.com/benchtop/adcdac/instrument"
)

func fastRunner(s instrument.Session) Runner {
	return Runner{
		Session:   s,
		Amplitude: 1.25,
		Offset:    1.25,
		Options: bench.Options{
			PollInterval: time.Millisecond,
			Settle:       time.Millisecond,
			Timeout:      time.Second,
		},
	}
}

func TestDuration(t *testing.T) {
	// five cycles, floored at 20 ms
	assert.InDelta(t, 0.5, duration(10), 1e-12)
	assert.InDelta(t, 0.05, duration(100), 1e-12)
	assert.InDelta(t, 0.02, duration(500), 1e-12)
	assert.InDelta(t, 0.02, duration(2000), 1e-12)
}

func TestRunHalfGain(t *testing.T) {
	sim := instrument.NewSim()
	sim.Gain = 0.5

	freqs := []float64{10, 100, 1000}
	var seen []float64
	r := fastRunner(sim)
	r.Progress = func(i, total int, f float64) {
		assert.Equal(t, len(freqs), total)
		seen = append(seen, f)
	}

	pts, err := r.Run(freqs)
	require.NoError(t, err)
	require.Len(t, pts, len(freqs))
	assert.Equal(t, freqs, seen)

	for _, pt := range pts {
		assert.InDelta(t, 0.5, pt.Gain, 1e-6, "at %g Hz", pt.Frequency)
		assert.InDelta(t, -6.0206, pt.GainDB, 1e-3, "at %g Hz", pt.Frequency)
		assert.InDelta(t, 0, pt.PhaseDeg, 1e-6, "at %g Hz", pt.Frequency)
	}
}

func TestRunDefaultFrequencies(t *testing.T) {
	sim := instrument.NewSim()
	pts, err := fastRunner(sim).Run(nil)
	require.NoError(t, err)
	require.Len(t, pts, len(DefaultFrequencies))
	for i, pt := range pts {
		assert.Equal(t, DefaultFrequencies[i], pt.Frequency)
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	sim := instrument.NewSim()
	require.NoError(t, sim.Close())
	pts, err := fastRunner(sim).Run([]float64{10, 20})
	assert.Error(t, err)
	assert.Empty(t, pts)
}
