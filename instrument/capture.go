package instrument

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CaptureBuffer holds the samples read back from one channel of one armed
// acquisition.  It is produced exactly once per capture and never mutated
// afterwards.  Sample i was taken at time i / SampleRate; the grid is
// regular, with no jitter model
type CaptureBuffer struct {
	// Channel is the scope channel index the data came from
	Channel int

	// Samples are the voltage readings
	Samples []float64

	// SampleRate is the acquisition rate in Hz
	SampleRate float64
}

// DT is the temporal sample spacing in seconds
func (b CaptureBuffer) DT() float64 {
	return 1 / b.SampleRate
}

// Times returns the time of each sample in seconds
func (b CaptureBuffer) Times() []float64 {
	dt := b.DT()
	out := make([]float64, len(b.Samples))
	for i := range out {
		out[i] = float64(i) * dt
	}
	return out
}

// EncodeCSV writes one or more capture buffers to a CSV in streaming fashion,
// a time column followed by one voltage column per buffer.  The buffers must
// share a length and sample rate
func EncodeCSV(w io.Writer, bufs ...CaptureBuffer) error {
	if len(bufs) == 0 {
		return fmt.Errorf("no buffers to encode")
	}
	n := len(bufs[0].Samples)
	rate := bufs[0].SampleRate
	for _, b := range bufs[1:] {
		if len(b.Samples) != n || b.SampleRate != rate {
			return fmt.Errorf("buffers do not share a time grid")
		}
	}
	labels := make([]string, len(bufs)+1)
	labels[0] = "time"
	for i, b := range bufs {
		labels[i+1] = fmt.Sprintf("ch%d", b.Channel+1)
	}
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write(labels); err != nil {
		return err
	}
	dt := 1 / rate
	record := make([]string, len(labels))
	for i := 0; i < n; i++ {
		record[0] = strconv.FormatFloat(float64(i)*dt, 'G', -1, 64)
		for j, b := range bufs {
			record[j+1] = strconv.FormatFloat(b.Samples[i], 'G', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
