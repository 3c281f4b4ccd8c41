// Package usbhint helps diagnose a bench with no enumerable instrument by
// listing attached USB devices from the vendors the reference hardware
// enumerates under.  It distinguishes "not plugged in" from "runtime or
// driver missing": if the device shows up here but the SDK sees nothing,
// the WaveForms install is the problem.
package usbhint

import (
	"fmt"

	"github.com/google/gousb"
	"github.com/google/gousb/usbid"
)

const (
	// DigilentVID is Digilent's USB vendor ID
	DigilentVID = 0x1443

	// FTDIVID is the FTDI bridge vendor ID older Analog Discovery units
	// enumerate under
	FTDIVID = 0x0403
)

// Attached returns one line per attached USB device with a Digilent or FTDI
// vendor ID.  An empty slice with a nil error means nothing is plugged in
func Attached() ([]string, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(DigilentVID) || desc.Vendor == gousb.ID(FTDIVID)
	})
	var out []string
	for _, d := range devs {
		out = append(out, fmt.Sprintf("bus %03d addr %03d %s:%s %s",
			d.Desc.Bus, d.Desc.Address, d.Desc.Vendor, d.Desc.Product, usbid.Describe(d.Desc)))
		d.Close()
	}
	if len(out) == 0 && err != nil {
		return nil, err
	}
	// some matching devices may have failed to open; the list is still useful
	return out, nil
}

// NoDeviceLines builds the troubleshooting text for an empty enumeration:
// the install hint, then whatever the USB bus scan turned up
func NoDeviceLines(hint string) []string {
	lines, err := Attached()
	return helpLines(hint, lines, err)
}

func helpLines(hint string, devs []string, err error) []string {
	out := []string{"no device found; " + hint}
	switch {
	case err != nil:
		out = append(out, "could not scan the USB bus: "+err.Error())
	case len(devs) == 0:
		out = append(out, "no candidate USB devices attached; check the cable")
	default:
		out = append(out, "candidate USB devices attached:")
		for _, d := range devs {
			out = append(out, "  "+d)
		}
	}
	return out
}
