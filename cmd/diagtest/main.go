// diagtest is an interactive bring-up aid for the passthrough bench.  It
// applies slow sines one at a time, captures the output untriggered, and
// prints raw statistics so miswiring shows up before the automated suite runs.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	timestats "github.com/cwbudde/algo-dsp/stats/time"

	"github.com/benchtop/adcdac/acquire"
	"github.com/benchtop/adcdac/dwf"
	"github.com/benchtop/adcdac/instrument"
	"github.com/benchtop/adcdac/stimulus"
	"github.com/benchtop/adcdac/usbhint"
)

const (
	amplitude = 1.25
	offset    = 1.25
	nSamples  = 8192
)

var frequencies = []float64{5, 10, 20}

func connect() (instrument.Session, error) {
	if os.Getenv("ADCDAC_MOCK") != "" {
		log.Println("ADCDAC_MOCK set, using simulated instrument")
		return instrument.NewSim(), nil
	}
	n, err := dwf.Enumerate()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, instrument.ErrNoDevice
	}
	name, err := dwf.DeviceName(0)
	if err != nil {
		return nil, err
	}
	log.Printf("opening %q\n", name)
	return dwf.Open(dwf.FirstDevice)
}

// checkFrequency drives one sine, captures untriggered, and prints the raw
// statistics with a wiring verdict
func checkFrequency(stim stimulus.Configurator, ctl *acquire.Controller, freq float64) error {
	err := stim.Apply(0, instrument.WaveformSpec{
		Shape:     instrument.Sine,
		Frequency: freq,
		Amplitude: amplitude,
		Offset:    offset,
	})
	if err != nil {
		return fmt.Errorf("apply %g Hz stimulus: %w", freq, err)
	}
	time.Sleep(100 * time.Millisecond)

	sampleRate := math.Max(freq*200, 10e3)
	err = ctl.Configure(instrument.AcquisitionConfig{
		Channels:       []int{0},
		Range:          5,
		VerticalOffset: offset,
		SampleRate:     sampleRate,
		BufferLength:   nSamples,
		TriggerSource:  instrument.TriggerNone,
		AutoTimeout:    2 * time.Second,
	})
	if err != nil {
		return err
	}
	capt, err := ctl.Capture(5 * time.Second)
	if err != nil {
		return err
	}
	if capt.TimedOut {
		log.Println("WARNING: capture timed out in state", capt.State)
	}

	buf := capt.Buffers[0]
	stats := timestats.Calculate(buf.Samples)
	log.Printf("%g Hz: n=%d min=%.4f max=%.4f Vpp=%.4f mean=%.4f rms(ac)=%.4f\n",
		freq, len(buf.Samples), stats.Min, stats.Max, stats.Range,
		stats.DC, math.Sqrt(stats.Variance))

	switch {
	case stats.Range < 0.05:
		log.Println("  output is flat; check DAC output wiring and FPGA configuration")
	case stats.Range < amplitude:
		log.Println("  output swing is low; check ADC input wiring and supply rails")
	default:
		log.Println("  output swing looks healthy")
	}
	return nil
}

// runDiag walks the frequency list, pacing on reader between steps.  Any
// failure returns an error so the caller's cleanup still runs
func runDiag(s instrument.Session, reader *bufio.Reader) error {
	log.Println("wiring check:")
	log.Println("  W1 (generator) -> ADC input, 1+ (scope) -> DAC output, grounds common")
	log.Printf("each step drives a %g V sine about %g V and captures %d samples untriggered\n",
		amplitude, offset, nSamples)

	stim := stimulus.Configurator{Session: s}
	ctl := acquire.New(s)
	for _, freq := range frequencies {
		log.Printf("press enter to test %g Hz", freq)
		reader.ReadString('\n')
		if err := checkFrequency(stim, ctl, freq); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	reader := bufio.NewReader(os.Stdin)
	log.Println("connecting to the instrument")
	s, err := connect()
	if err != nil {
		if errors.Is(err, instrument.ErrNoDevice) {
			for _, line := range usbhint.NoDeviceLines(dwf.InstallHint) {
				log.Println(line)
			}
			return
		}
		log.Println("connect:", err)
		return
	}
	defer func() {
		s.StopGenerator(0)
		if d, ok := s.(*dwf.Device); ok {
			d.ResetGenerators()
		}
		s.Close()
	}()

	if err := runDiag(s, reader); err != nil {
		log.Println("diagnostic failed:", err)
		return
	}
	log.Println("diagnostic complete")
}
