// Package acquire drives one capture-then-read cycle on an instrument
// session to completion or timeout.
package acquire

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/benchtop/adcdac/instrument"
)

// DefaultPollInterval is the sleep between state polls.  It trades wakeup
// latency against CPU; it is not a correctness knob
const DefaultPollInterval = 10 * time.Millisecond

// Controller owns one capture cycle: configure, arm, poll until done or a
// host-side deadline passes, then read the buffers back.  The deadline is a
// wall-clock bound checked between polls, not preemptive cancellation; an
// in-flight SDK call cannot be interrupted once issued
type Controller struct {
	Session instrument.Session

	// PollInterval overrides DefaultPollInterval when positive
	PollInterval time.Duration

	cfg        instrument.AcquisitionConfig
	configured bool
}

// Capture is the outcome of one armed acquisition
type Capture struct {
	// Buffers holds one CaptureBuffer per configured channel, in channel
	// order
	Buffers []instrument.CaptureBuffer

	// State is the last acquisition state observed before readback
	State instrument.AcquisitionState

	// TimedOut marks a capture whose polling loop hit the host deadline
	// before the device reported Done.  The buffers hold whatever the
	// device had; treat the data as best-effort
	TimedOut bool
}

// New returns a Controller for the session with the default poll interval
func New(s instrument.Session) *Controller {
	return &Controller{Session: s, PollInterval: DefaultPollInterval}
}

// Configure validates the config, clamps the buffer length to the device
// maximum, and applies it to the session.  Requests past the maximum are
// clamped rather than rejected, matching the reference instrument
func (c *Controller) Configure(cfg instrument.AcquisitionConfig) error {
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("at least one channel must be enabled")
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.BufferLength < 1 {
		return fmt.Errorf("buffer length must be >= 1: %d", cfg.BufferLength)
	}
	max, err := c.Session.MaxBuffer()
	if err != nil {
		return fmt.Errorf("query device buffer depth: %w", err)
	}
	if cfg.BufferLength > max {
		cfg.BufferLength = max
	}
	if err := c.Session.ConfigureAcquisition(cfg); err != nil {
		return fmt.Errorf("configure acquisition: %w", err)
	}
	c.cfg = cfg
	c.configured = true
	return nil
}

// Config returns the configuration as applied, after clamping
func (c *Controller) Config() instrument.AcquisitionConfig {
	return c.cfg
}

// Capture arms the configured acquisition and polls until the device reports
// Done or timeout elapses, whichever is first.  The loop exits within
// timeout plus one poll interval, after a final state poll at the deadline.
// On timeout the capture is flagged, not failed, and readback still happens:
// bench tooling must never silently hang, and partial data is better than
// none
func (c *Controller) Capture(timeout time.Duration) (Capture, error) {
	var out Capture
	if !c.configured {
		return out, fmt.Errorf("capture before Configure")
	}
	if err := c.Session.ArmAcquisition(); err != nil {
		return out, fmt.Errorf("arm acquisition: %w", err)
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		st, err := c.Session.PollState()
		if err != nil {
			return out, fmt.Errorf("poll acquisition state: %w", err)
		}
		out.State = st
		if st == instrument.StateDone {
			break
		}
		if err := lim.Wait(ctx); err != nil {
			// Wait fails as soon as the remaining deadline cannot cover a
			// full interval; the device gets one last look so a capture
			// finishing inside that window is not flagged
			st, perr := c.Session.PollState()
			if perr != nil {
				return out, fmt.Errorf("poll acquisition state: %w", perr)
			}
			out.State = st
			if st != instrument.StateDone {
				out.TimedOut = true
			}
			break
		}
	}
	for _, ch := range c.cfg.Channels {
		samples, err := c.Session.ReadChannel(ch, c.cfg.BufferLength)
		if err != nil {
			return out, fmt.Errorf("read channel %d: %w", ch, err)
		}
		out.Buffers = append(out.Buffers, instrument.CaptureBuffer{
			Channel:    ch,
			Samples:    samples,
			SampleRate: c.cfg.SampleRate,
		})
	}
	return out, nil
}
