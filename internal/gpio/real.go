//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/hydro-controller/internal/logic"
)

const consumer = "hydro-controller"

// RealButtons reads the pushbuttons from actual hardware using the Linux GPIO character device.
type RealButtons struct {
	chip  *gpiocdev.Chip
	lines [logic.NumCommands]*gpiocdev.Line
}

// NewRealButtons requests every button line as an input with pull-up.
func NewRealButtons(chipName string, pins PinMap) (*RealButtons, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealButtons{chip: chip}
	for c, offset := range pins.Buttons {
		line, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s button pin %d: %w", logic.Command(c), offset, err)
		}
		b.lines[c] = line
	}
	return b, nil
}

// Read returns the logical pressed state of every button.
// Inverts raw GPIO: raw low (0) = pressed.
func (b *RealButtons) Read() (logic.Buttons, error) {
	var out logic.Buttons
	for c, line := range b.lines {
		raw, err := line.Value()
		if err != nil {
			return logic.Buttons{}, fmt.Errorf("read %s button: %w", logic.Command(c), err)
		}
		out[c] = raw == 0
	}
	return out, nil
}

// Close releases GPIO resources.
func (b *RealButtons) Close() error {
	var errs []error
	for c, line := range b.lines {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s button: %w", logic.Command(c), err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealRelays drives relay outputs on actual hardware.
type RealRelays struct {
	chip  *gpiocdev.Chip
	lines [logic.NumRelays]*gpiocdev.Line
}

// NewRealRelays requests every relay line as an output, initially de-energized.
// activeLow suits relay boards that energize on a low level.
func NewRealRelays(chipName string, pins PinMap, activeLow bool) (*RealRelays, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	r := &RealRelays{chip: chip}
	for role, offset := range pins.Relays {
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s relay pin %d: %w", logic.Relay(role), offset, err)
		}
		r.lines[role] = line
	}
	return r, nil
}

// Set energizes or de-energizes one relay.
func (r *RealRelays) Set(role logic.Relay, on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.lines[role].SetValue(v); err != nil {
		return fmt.Errorf("set %s relay: %w", role, err)
	}
	return nil
}

// Close de-energizes every relay before releasing the lines, so nothing is
// left running when the daemon exits.
func (r *RealRelays) Close() error {
	var errs []error
	for role, line := range r.lines {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release %s relay: %w", logic.Relay(role), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s relay: %w", logic.Relay(role), err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
