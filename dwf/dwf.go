/*Package dwf exposes control of Digilent test and measurement devices in Go
via the WaveForms SDK (libdwf).

Only the subset of the SDK this bench needs is wrapped: device enumeration
and open/close, carrier-node analog output (the waveform generator), and
single-shot analog input with edge triggering (the oscilloscope).  The
WaveForms 3.x runtime must be installed on the host; without it the binary
fails to load.
*/
package dwf

/*
#cgo CFLAGS: -I/usr/include -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -ldwf
#include <stdlib.h>
#include <dwf.h>
*/
import "C"

import (
	"fmt"

	"github.com/benchtop/adcdac/instrument"
)

// FirstDevice opens the first available device when passed to Open
const FirstDevice = -1

// InstallHint is printed when the SDK cannot find any hardware, since the
// most common cause on a fresh host is a missing WaveForms install
const InstallHint = "install Digilent WaveForms from https://digilent.com/shop/software/digilent-waveforms/"

// Device is an open handle to a Digilent device.  It satisfies
// instrument.Session
type Device struct {
	handle C.HDWF
	open   bool

	// maxBuffer caches the analog-in buffer depth so we do not go to the
	// SDK for it on every capture
	maxBuffer int
}

var _ instrument.Session = (*Device)(nil)

// Enumerate returns the number of connected devices
func Enumerate() (int, error) {
	var n C.int
	if C.FDwfEnum(C.enumfilterAll, &n) == 0 {
		return 0, enrich(lastError(), "FDwfEnum")
	}
	return int(n), nil
}

// DeviceName returns the user-facing name of an enumerated device
func DeviceName(index int) (string, error) {
	var buf [32]C.char
	if C.FDwfEnumDeviceName(C.int(index), &buf[0]) == 0 {
		return "", enrich(lastError(), "FDwfEnumDeviceName")
	}
	return C.GoString(&buf[0]), nil
}

// Version returns the SDK runtime version string
func Version() (string, error) {
	var buf [32]C.char
	if C.FDwfGetVersion(&buf[0]) == 0 {
		return "", enrich(lastError(), "FDwfGetVersion")
	}
	return C.GoString(&buf[0]), nil
}

// Open acquires the hardware handle for one device.  Use FirstDevice for the
// index to take whatever is attached.  The vendor driver holds an exclusive
// lock on the device until Close
func Open(index int) (*Device, error) {
	var h C.HDWF
	if C.FDwfDeviceOpen(C.int(index), &h) == 0 || h == C.hdwfNone {
		return nil, enrich(lastError(), "FDwfDeviceOpen")
	}
	return &Device{handle: h, open: true}, nil
}

func (d *Device) guard() error {
	if d == nil || !d.open {
		return instrument.ErrSessionClosed
	}
	return nil
}

// ConfigureGenerator applies a waveform spec to the carrier node of an
// analog-out channel
func (d *Device) ConfigureGenerator(channel int, spec instrument.WaveformSpec) error {
	if err := d.guard(); err != nil {
		return err
	}
	fn, err := funcOf(spec.Shape)
	if err != nil {
		return err
	}
	ch := C.int(channel)
	if C.FDwfAnalogOutNodeEnableSet(d.handle, ch, C.AnalogOutNodeCarrier, 1) == 0 {
		return enrich(lastError(), "FDwfAnalogOutNodeEnableSet")
	}
	if C.FDwfAnalogOutNodeFunctionSet(d.handle, ch, C.AnalogOutNodeCarrier, fn) == 0 {
		return enrich(lastError(), "FDwfAnalogOutNodeFunctionSet")
	}
	if C.FDwfAnalogOutNodeFrequencySet(d.handle, ch, C.AnalogOutNodeCarrier, C.double(spec.Frequency)) == 0 {
		return enrich(lastError(), "FDwfAnalogOutNodeFrequencySet")
	}
	if C.FDwfAnalogOutNodeAmplitudeSet(d.handle, ch, C.AnalogOutNodeCarrier, C.double(spec.Amplitude)) == 0 {
		return enrich(lastError(), "FDwfAnalogOutNodeAmplitudeSet")
	}
	if C.FDwfAnalogOutNodeOffsetSet(d.handle, ch, C.AnalogOutNodeCarrier, C.double(spec.Offset)) == 0 {
		return enrich(lastError(), "FDwfAnalogOutNodeOffsetSet")
	}
	return nil
}

// StartGenerator starts analog output on a channel
func (d *Device) StartGenerator(channel int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if C.FDwfAnalogOutConfigure(d.handle, C.int(channel), 1) == 0 {
		return enrich(lastError(), "FDwfAnalogOutConfigure")
	}
	return nil
}

// StopGenerator stops analog output on a channel
func (d *Device) StopGenerator(channel int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if C.FDwfAnalogOutConfigure(d.handle, C.int(channel), 0) == 0 {
		return enrich(lastError(), "FDwfAnalogOutConfigure")
	}
	return nil
}

// ResetGenerators returns all analog-out channels to their default state
func (d *Device) ResetGenerators() error {
	if err := d.guard(); err != nil {
		return err
	}
	if C.FDwfAnalogOutReset(d.handle, -1) == 0 {
		return enrich(lastError(), "FDwfAnalogOutReset")
	}
	return nil
}

// ConfigureAcquisition applies a capture configuration: channel enables,
// vertical range and offset, sample rate, buffer depth and trigger
func (d *Device) ConfigureAcquisition(cfg instrument.AcquisitionConfig) error {
	if err := d.guard(); err != nil {
		return err
	}
	for _, ch := range cfg.Channels {
		c := C.int(ch)
		if C.FDwfAnalogInChannelEnableSet(d.handle, c, 1) == 0 {
			return enrich(lastError(), "FDwfAnalogInChannelEnableSet")
		}
		if C.FDwfAnalogInChannelRangeSet(d.handle, c, C.double(cfg.Range)) == 0 {
			return enrich(lastError(), "FDwfAnalogInChannelRangeSet")
		}
		if C.FDwfAnalogInChannelOffsetSet(d.handle, c, C.double(cfg.VerticalOffset)) == 0 {
			return enrich(lastError(), "FDwfAnalogInChannelOffsetSet")
		}
	}
	if C.FDwfAnalogInFrequencySet(d.handle, C.double(cfg.SampleRate)) == 0 {
		return enrich(lastError(), "FDwfAnalogInFrequencySet")
	}
	if C.FDwfAnalogInBufferSizeSet(d.handle, C.int(cfg.BufferLength)) == 0 {
		return enrich(lastError(), "FDwfAnalogInBufferSizeSet")
	}
	if C.FDwfAnalogInTriggerAutoTimeoutSet(d.handle, C.double(cfg.AutoTimeout.Seconds())) == 0 {
		return enrich(lastError(), "FDwfAnalogInTriggerAutoTimeoutSet")
	}
	switch cfg.TriggerSource {
	case instrument.TriggerNone:
		if C.FDwfAnalogInTriggerSourceSet(d.handle, C.trigsrcNone) == 0 {
			return enrich(lastError(), "FDwfAnalogInTriggerSourceSet")
		}
	case instrument.TriggerAnalogDetector:
		if C.FDwfAnalogInTriggerSourceSet(d.handle, C.trigsrcDetectorAnalogIn) == 0 {
			return enrich(lastError(), "FDwfAnalogInTriggerSourceSet")
		}
		if C.FDwfAnalogInTriggerTypeSet(d.handle, C.trigtypeEdge) == 0 {
			return enrich(lastError(), "FDwfAnalogInTriggerTypeSet")
		}
		if C.FDwfAnalogInTriggerChannelSet(d.handle, C.int(cfg.TriggerChannel)) == 0 {
			return enrich(lastError(), "FDwfAnalogInTriggerChannelSet")
		}
		if C.FDwfAnalogInTriggerLevelSet(d.handle, C.double(cfg.TriggerLevel)) == 0 {
			return enrich(lastError(), "FDwfAnalogInTriggerLevelSet")
		}
		slope := C.DwfTriggerSlopeRise
		if cfg.TriggerEdge == instrument.EdgeFalling {
			slope = C.DwfTriggerSlopeFall
		}
		if C.FDwfAnalogInTriggerConditionSet(d.handle, slope) == 0 {
			return enrich(lastError(), "FDwfAnalogInTriggerConditionSet")
		}
	default:
		return fmt.Errorf("unknown trigger source %d", cfg.TriggerSource)
	}
	return nil
}

// ArmAcquisition starts the configured capture
func (d *Device) ArmAcquisition() error {
	if err := d.guard(); err != nil {
		return err
	}
	if C.FDwfAnalogInConfigure(d.handle, 1, 1) == 0 {
		return enrich(lastError(), "FDwfAnalogInConfigure")
	}
	return nil
}

// PollState reads the acquisition state from the device.  The read-data flag
// is set so sample data follows the state over USB
func (d *Device) PollState() (instrument.AcquisitionState, error) {
	if err := d.guard(); err != nil {
		return instrument.StateReady, err
	}
	var st C.DwfState
	if C.FDwfAnalogInStatus(d.handle, 1, &st) == 0 {
		return instrument.StateReady, enrich(lastError(), "FDwfAnalogInStatus")
	}
	return stateOf(st), nil
}

// ReadChannel copies n samples of the most recent capture out of the device
func (d *Device) ReadChannel(channel, n int) ([]float64, error) {
	if err := d.guard(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("read length must be > 0: %d", n)
	}
	buf := make([]C.double, n)
	if C.FDwfAnalogInStatusData(d.handle, C.int(channel), &buf[0], C.int(n)) == 0 {
		return nil, enrich(lastError(), "FDwfAnalogInStatusData")
	}
	out := make([]float64, n)
	for i := range buf {
		out[i] = float64(buf[i])
	}
	return out, nil
}

// MaxBuffer reports the analog-in buffer depth, 8192 on the reference
// instrument
func (d *Device) MaxBuffer() (int, error) {
	if err := d.guard(); err != nil {
		return 0, err
	}
	if d.maxBuffer == 0 {
		var min, max C.int
		if C.FDwfAnalogInBufferSizeInfo(d.handle, &min, &max) == 0 {
			return 0, enrich(lastError(), "FDwfAnalogInBufferSizeInfo")
		}
		d.maxBuffer = int(max)
	}
	return d.maxBuffer, nil
}

// Close releases the hardware handle
func (d *Device) Close() error {
	if err := d.guard(); err != nil {
		return err
	}
	d.open = false
	if C.FDwfDeviceClose(d.handle) == 0 {
		return enrich(lastError(), "FDwfDeviceClose")
	}
	return nil
}

func funcOf(s instrument.Shape) (C.FUNC, error) {
	switch s {
	case instrument.DC:
		return C.funcDC, nil
	case instrument.Sine:
		return C.funcSine, nil
	case instrument.Square:
		return C.funcSquare, nil
	case instrument.Triangle:
		return C.funcTriangle, nil
	case instrument.RampUp:
		return C.funcRampUp, nil
	case instrument.RampDown:
		return C.funcRampDown, nil
	default:
		return C.funcDC, fmt.Errorf("shape %v has no generator function", s)
	}
}

func stateOf(st C.DwfState) instrument.AcquisitionState {
	switch st {
	case C.DwfStateReady:
		return instrument.StateReady
	case C.DwfStateConfig:
		return instrument.StateConfig
	case C.DwfStatePrefill:
		return instrument.StatePrefill
	case C.DwfStateArmed:
		return instrument.StateArmed
	case C.DwfStateWait:
		return instrument.StateWaiting
	case C.DwfStateTriggered:
		return instrument.StateTriggered
	case C.DwfStateDone:
		return instrument.StateDone
	default:
		return instrument.AcquisitionState(st)
	}
}
