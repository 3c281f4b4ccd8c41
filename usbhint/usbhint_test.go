package usbhint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpLinesScanError(t *testing.T) {
	lines := helpLines("install the runtime", nil, errors.New("libusb: not found"))
	require.Len(t, lines, 2)
	assert.Equal(t, "no device found; install the runtime", lines[0])
	assert.Contains(t, lines[1], "could not scan the USB bus")
	assert.Contains(t, lines[1], "libusb: not found")
}

func TestHelpLinesNothingAttached(t *testing.T) {
	lines := helpLines("install the runtime", nil, nil)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "check the cable")
}

func TestHelpLinesDevicesAttached(t *testing.T) {
	devs := []string{
		"bus 001 addr 004 1443:0003 Digilent",
		"bus 001 addr 005 0403:6010 FTDI",
	}
	lines := helpLines("install the runtime", devs, nil)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "candidate USB devices attached")
	assert.Contains(t, lines[2], "Digilent")
	assert.Contains(t, lines[3], "FTDI")
}
