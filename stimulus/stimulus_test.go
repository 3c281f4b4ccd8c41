package stimulus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop/adcdac/instrument"
)

func TestApply(t *testing.T) {
	sim := instrument.NewSim()
	c := Configurator{Session: sim}
	spec := instrument.WaveformSpec{Shape: instrument.Sine, Frequency: 100, Amplitude: 1.25, Offset: 1.25}

	require.NoError(t, c.Apply(1, spec))
	got, ok := sim.Generator(1)
	require.True(t, ok)
	assert.Equal(t, spec, got)
	assert.True(t, sim.Running(1))
	assert.Equal(t, 1, sim.Starts(1))

	// re-applying the same spec re-sends start
	require.NoError(t, c.Apply(1, spec))
	assert.Equal(t, 2, sim.Starts(1))
}

func TestApplyValidation(t *testing.T) {
	c := Configurator{Session: instrument.NewSim()}

	err := c.Apply(0, instrument.WaveformSpec{Shape: instrument.Sine, Frequency: 100, Amplitude: -1})
	assert.Error(t, err, "negative amplitude")

	err = c.Apply(0, instrument.WaveformSpec{Shape: instrument.Sine, Amplitude: 1})
	assert.Error(t, err, "zero frequency on a periodic shape")

	// DC needs no frequency
	err = c.Apply(0, instrument.WaveformSpec{Shape: instrument.DC, Offset: 1.0})
	assert.NoError(t, err)
}

func TestApplyDoesNotClampRange(t *testing.T) {
	// out-of-range combinations pass through; the instrument owns its limits
	sim := instrument.NewSim()
	c := Configurator{Session: sim}
	err := c.Apply(0, instrument.WaveformSpec{Shape: instrument.Sine, Frequency: 1, Amplitude: 100, Offset: 100})
	assert.NoError(t, err)
}

func TestStop(t *testing.T) {
	sim := instrument.NewSim()
	c := Configurator{Session: sim}
	spec := instrument.WaveformSpec{Shape: instrument.Sine, Frequency: 100, Amplitude: 1}
	require.NoError(t, c.Apply(0, spec))
	require.NoError(t, c.Stop(0))
	assert.False(t, sim.Running(0))
}

func TestApplyClosedSession(t *testing.T) {
	sim := instrument.NewSim()
	require.NoError(t, sim.Close())
	c := Configurator{Session: sim}
	err := c.Apply(0, instrument.WaveformSpec{Shape: instrument.DC})
	assert.ErrorIs(t, err, instrument.ErrSessionClosed)
}
