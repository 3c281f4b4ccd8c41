package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop/adcdac/instrument"
	"github.com/benchtop/adcdac/sweep"
)

func sineBuffer(t *testing.T, channel int) instrument.CaptureBuffer {
	t.Helper()
	spec := instrument.WaveformSpec{Shape: instrument.Sine, Frequency: 100, Amplitude: 1.25, Offset: 1.25}
	samples, err := spec.Series(10e3, 200)
	require.NoError(t, err)
	return instrument.CaptureBuffer{Channel: channel, Samples: samples, SampleRate: 10e3}
}

func requirePNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(b), 8)
	assert.Equal(t, "\x89PNG", string(b[:4]))
}

func TestOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.png")
	require.NoError(t, Overlay(path, "sine 100 Hz", sineBuffer(t, 0), sineBuffer(t, 1)))
	requirePNG(t, path)
}

func TestBode(t *testing.T) {
	pts := []sweep.Point{
		{Frequency: 10, Gain: 1, GainDB: 0, PhaseDeg: -1},
		{Frequency: 100, Gain: 1, GainDB: -0.1, PhaseDeg: -5},
		{Frequency: 1000, Gain: 0.7, GainDB: -3.1, PhaseDeg: -40},
	}
	path := filepath.Join(t.TempDir(), "bode.png")
	require.NoError(t, Bode(path, pts))
	requirePNG(t, path)
}

func TestBodeEmpty(t *testing.T) {
	err := Bode(filepath.Join(t.TempDir(), "bode.png"), nil)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.csv")
	require.NoError(t, WriteCSV(path, sineBuffer(t, 0), sineBuffer(t, 1)))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 201)
	assert.Equal(t, "time,ch1,ch2", lines[0])
}

func TestBufferXYs(t *testing.T) {
	b := instrument.CaptureBuffer{Samples: []float64{1, 2, 3}, SampleRate: 100}
	xys := bufferXYs(b)
	require.Len(t, xys, 3)
	assert.InDelta(t, 0.02, xys[2].X, 1e-12)
	assert.InDelta(t, 3, xys[2].Y, 1e-12)
}
