// Package sweep measures passthrough frequency response by running a sine
// bench case at each requested frequency and collecting gain and phase.
package sweep

import (
	"fmt"

	"github.com/benchtop/adcdac/bench"
	"github.com/benchtop/adcdac/instrument"
	"github.com/benchtop/adcdac/metrics"
)

// DefaultFrequencies spans the passthrough audio band with a few points per
// decade
var DefaultFrequencies = []float64{10, 20, 50, 100, 200, 500, 1000, 2000}

// Point is the response at one frequency
type Point struct {
	Frequency float64
	Gain      float64
	GainDB    float64
	PhaseDeg  float64
}

// Runner sweeps a sine stimulus across frequencies
type Runner struct {
	// Session is the instrument the sweep runs against
	Session instrument.Session

	// Amplitude and Offset shape the sine at every frequency
	Amplitude float64
	Offset    float64

	// Options passes through to each bench case
	Options bench.Options

	// Progress, when set, is called before each frequency is measured
	Progress func(i, total int, frequency float64)
}

// duration picks the capture window for one frequency: at least five cycles,
// never shorter than 20 ms
func duration(frequency float64) float64 {
	d := 5.0 / frequency
	if d < 0.02 {
		d = 0.02
	}
	return d
}

// Run measures each frequency in order and returns one Point per frequency.
// The stimulus is stopped between points by the next Apply; the caller stops
// the final one
func (r Runner) Run(frequencies []float64) ([]Point, error) {
	if len(frequencies) == 0 {
		frequencies = DefaultFrequencies
	}
	pts := make([]Point, 0, len(frequencies))
	for i, f := range frequencies {
		if r.Progress != nil {
			r.Progress(i, len(frequencies), f)
		}
		res, err := bench.Run(r.Session, bench.Case{
			Name: fmt.Sprintf("sweep_%gHz", f),
			Spec: instrument.WaveformSpec{
				Shape:     instrument.Sine,
				Frequency: f,
				Amplitude: r.Amplitude,
				Offset:    r.Offset,
			},
			Duration: duration(f),
		}, r.Options)
		if err != nil {
			return pts, fmt.Errorf("sweep at %g Hz: %w", f, err)
		}
		pts = append(pts, Point{
			Frequency: f,
			Gain:      res.Metrics.Gain,
			GainDB:    res.Metrics.GainDB,
			PhaseDeg:  metrics.PhaseDegrees(res.Metrics.Delay, f),
		})
	}
	return pts, nil
}
