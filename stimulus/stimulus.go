// Package stimulus maps logical waveform specs onto generator channels and
// manages their output state.
package stimulus

import (
	"fmt"

	"github.com/benchtop/adcdac/instrument"
)

// Configurator applies waveform specs to generator channels on a session.
// Applying a spec alters live analog output on the physical channel.  The
// configurator does not clamp Amplitude + |Offset| to the instrument's safe
// output range; staying inside it is the caller's responsibility
type Configurator struct {
	Session instrument.Session
}

// Apply configures a channel with the spec and starts its output.  Start is
// re-sent even when the spec is unchanged; electrically that is a no-op
func (c Configurator) Apply(channel int, spec instrument.WaveformSpec) error {
	if err := validate(spec); err != nil {
		return err
	}
	if err := c.Session.ConfigureGenerator(channel, spec); err != nil {
		return fmt.Errorf("configure generator channel %d: %w", channel, err)
	}
	if err := c.Session.StartGenerator(channel); err != nil {
		return fmt.Errorf("start generator channel %d: %w", channel, err)
	}
	return nil
}

// Stop stops output on a channel
func (c Configurator) Stop(channel int) error {
	return c.Session.StopGenerator(channel)
}

func validate(spec instrument.WaveformSpec) error {
	if spec.Amplitude < 0 {
		return fmt.Errorf("amplitude must be >= 0: %f", spec.Amplitude)
	}
	if spec.Shape != instrument.DC && spec.Frequency <= 0 {
		return fmt.Errorf("frequency must be > 0 for shape %v: %f", spec.Shape, spec.Frequency)
	}
	return nil
}
