// Package gpio provides button input and relay output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/hydro-controller/internal/logic"
)

// Buttons reads the command pushbuttons.
type Buttons interface {
	// Read returns the logical pressed state of every button.
	// Buttons pull to ground: raw low = logical pressed.
	Read() (logic.Buttons, error)

	// Close releases GPIO resources.
	Close() error
}

// Relays drives the relay outputs.
type Relays interface {
	// Set energizes (on) or de-energizes a relay.
	Set(r logic.Relay, on bool) error

	// Close de-energizes every relay and releases GPIO resources.
	Close() error
}

// PinMap resolves logical roles to line offsets (BCM numbering).
type PinMap struct {
	Buttons [logic.NumCommands]int
	Relays  [logic.NumRelays]int
}

// DefaultPins is the wiring of the reference rig.
var DefaultPins = PinMap{
	Buttons: [logic.NumCommands]int{
		logic.CommandCycle:  5,
		logic.CommandFlood1: 6,
		logic.CommandFlood2: 13,
		logic.CommandDrain1: 19,
		logic.CommandDrain2: 26,
		logic.CommandFill:   12,
		logic.CommandEmpty:  16,
		logic.CommandAbort:  20,
	},
	Relays: [logic.NumRelays]int{
		logic.RelayPump:      17,
		logic.RelayLights:    27,
		logic.RelayRO:        22,
		logic.RelayZone1Pump: 23,
		logic.RelayZone1Suck: 24,
		logic.RelayZone2Pump: 25,
		logic.RelayZone2Suck: 4,
		logic.RelayTankPump1: 18,
		logic.RelayTankPump2: 21,
		logic.RelayTankSuck1: 7,
		logic.RelayTankSuck2: 8,
	},
}

// Validate rejects maps that assign one line to two roles.
func (m PinMap) Validate() error {
	seen := make(map[int]string)
	claim := func(offset int, role string) error {
		if offset < 0 {
			return fmt.Errorf("gpio: %s: negative offset %d", role, offset)
		}
		if prev, ok := seen[offset]; ok {
			return fmt.Errorf("gpio: line %d assigned to both %s and %s", offset, prev, role)
		}
		seen[offset] = role
		return nil
	}
	for c, off := range m.Buttons {
		if err := claim(off, "button "+logic.Command(c).String()); err != nil {
			return err
		}
	}
	for r, off := range m.Relays {
		if err := claim(off, "relay "+logic.Relay(r).String()); err != nil {
			return err
		}
	}
	return nil
}
