// Package metrics derives signal-fidelity figures from captured buffer
// pairs.  Everything here is a pure function of its inputs: deterministic,
// side-effect free, safe to unit test directly.
package metrics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/core"
	timestats "github.com/cwbudde/algo-dsp/stats/time"

	"github.com/benchtop/adcdac/instrument"
)

// Metrics summarizes the fidelity of a passthrough capture.  All voltages
// are in volts, the delay in seconds
type Metrics struct {
	// RMSIn and RMSOut are AC-coupled (DC removed before squaring)
	RMSIn  float64
	RMSOut float64

	// Gain is RMSOut / RMSIn, 0 when RMSIn is 0
	Gain float64

	// GainDB is 20*log10(Gain); -Inf when Gain is 0
	GainDB float64

	// Delay is the cross-correlation lag converted to seconds.  Positive
	// means the output lags the input.  Resolution is one sample period;
	// noise and waveform asymmetry bias it, and no correction is applied
	Delay float64

	// DCIn and DCOut are the arithmetic means of each series
	DCIn  float64
	DCOut float64
}

// Compute derives Metrics for a captured (or ideal) input buffer and the
// measured output buffer.  The buffers must be nonempty, of equal length,
// and share a sample rate
func Compute(in, out instrument.CaptureBuffer) (Metrics, error) {
	var m Metrics
	if len(in.Samples) == 0 {
		return m, fmt.Errorf("input buffer is empty")
	}
	if len(in.Samples) != len(out.Samples) {
		return m, fmt.Errorf("buffer lengths differ: %d vs %d", len(in.Samples), len(out.Samples))
	}
	if in.SampleRate != out.SampleRate {
		return m, fmt.Errorf("sample rates differ: %f vs %f", in.SampleRate, out.SampleRate)
	}
	inStats := timestats.Calculate(in.Samples)
	outStats := timestats.Calculate(out.Samples)
	m.DCIn = inStats.DC
	m.DCOut = outStats.DC
	m.RMSIn = math.Sqrt(inStats.Variance)
	m.RMSOut = math.Sqrt(outStats.Variance)
	if m.RMSIn != 0 {
		m.Gain = m.RMSOut / m.RMSIn
	}
	m.GainDB = core.LinearToDB(m.Gain)
	lag, err := DelayLag(in.Samples, out.Samples)
	if err != nil {
		return m, err
	}
	m.Delay = float64(lag) / in.SampleRate
	return m, nil
}

// DelayLag estimates the propagation delay between two series as the peak
// lag of their full cross-correlation, both series DC-removed first.  A
// positive lag means out trails in.  When several lags share the maximum
// correlation, the smallest |lag| wins; among equal magnitudes the negative
// one does, by scan order.  This keeps the estimator deterministic where
// periodic inputs would otherwise leave it to float noise
func DelayLag(in, out []float64) (int, error) {
	if len(in) == 0 || len(out) == 0 {
		return 0, fmt.Errorf("cannot correlate an empty series")
	}
	inAC := detrend(in)
	outAC := detrend(out)
	corr, err := conv.CorrelateDirect(outAC, inAC)
	if err != nil {
		return 0, fmt.Errorf("cross-correlation: %w", err)
	}
	bestLag := conv.LagFromIndex(0, len(inAC))
	bestVal := corr[0]
	for i, v := range corr[1:] {
		lag := conv.LagFromIndex(i+1, len(inAC))
		if v > bestVal || (v == bestVal && abs(lag) < abs(bestLag)) {
			bestVal = v
			bestLag = lag
		}
	}
	return bestLag, nil
}

// PhaseDegrees converts a measured delay at frequency f into phase wrapped
// to (-180, 180], negative for a lagging output
func PhaseDegrees(delay, freq float64) float64 {
	phase := math.Mod(-delay*freq*360, 360)
	if phase < 0 {
		phase += 360
	}
	if phase > 180 {
		phase -= 360
	}
	return phase
}

func detrend(x []float64) []float64 {
	mean := timestats.DC(x)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
