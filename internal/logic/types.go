// Package logic contains the pure domain model of the hydroponic rig: command
// identities, relay roles, zones, control state and the button debouncer.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"strings"
	"time"
)

// Command is one of the eight operator commands, independent of its origin.
type Command int

const (
	CommandCycle Command = iota
	CommandFlood1
	CommandFlood2
	CommandDrain1
	CommandDrain2
	CommandFill
	CommandEmpty
	CommandAbort
)

// NumCommands is the number of command inputs (one pushbutton each).
const NumCommands = 8

var commandNames = [NumCommands]string{
	"CYCLE", "FLOOD_1", "FLOOD_2", "DRAIN_1", "DRAIN_2", "FILL", "EMPTY", "ABORT",
}

func (c Command) String() string {
	if c < 0 || int(c) >= NumCommands {
		return fmt.Sprintf("COMMAND(%d)", int(c))
	}
	return commandNames[c]
}

// ParseCommand resolves a command from its name, ignoring case.
func ParseCommand(name string) (Command, bool) {
	for i, n := range commandNames {
		if strings.EqualFold(n, name) {
			return Command(i), true
		}
	}
	return 0, false
}

// Relay identifies the logical role of an output. Physical pins are mapped
// onto roles once at startup by the gpio layer.
type Relay int

const (
	RelayPump Relay = iota
	RelayLights
	RelayRO
	RelayZone1Pump
	RelayZone1Suck
	RelayZone2Pump
	RelayZone2Suck
	RelayTankPump1
	RelayTankPump2
	RelayTankSuck1
	RelayTankSuck2
)

// NumRelays is the number of relay roles.
const NumRelays = 11

var relayNames = [NumRelays]string{
	"pump",
	"lights",
	"ro_valve",
	"zone1_pump_valve",
	"zone1_suck_valve",
	"zone2_pump_valve",
	"zone2_suck_valve",
	"tank_pump_valve1",
	"tank_pump_valve2",
	"tank_suck_valve1",
	"tank_suck_valve2",
}

func (r Relay) String() string {
	if r < 0 || int(r) >= NumRelays {
		return fmt.Sprintf("relay(%d)", int(r))
	}
	return relayNames[r]
}

// ParseRelay resolves a relay role from its configuration name.
func ParseRelay(name string) (Relay, bool) {
	for i, n := range relayNames {
		if n == name {
			return Relay(i), true
		}
	}
	return 0, false
}

// IsValve reports whether the relay drives a valve. The pump and lights are not valves.
func (r Relay) IsValve() bool {
	return r != RelayPump && r != RelayLights
}

// Valves returns every valve relay in role order.
func Valves() []Relay {
	out := make([]Relay, 0, NumRelays-2)
	for r := Relay(0); r < NumRelays; r++ {
		if r.IsValve() {
			out = append(out, r)
		}
	}
	return out
}

// Zone indexes one of the two planting beds.
type Zone int

// NumZones is the number of planting zones on the rig.
const NumZones = 2

// Valid reports whether z addresses an existing zone.
func (z Zone) Valid() bool {
	return z >= 0 && z < NumZones
}

// PumpValve returns the directional valve that lets the pump push into the zone.
func (z Zone) PumpValve() Relay {
	if z == 1 {
		return RelayZone2Pump
	}
	return RelayZone1Pump
}

// SuckValve returns the directional valve that lets the pump draw from the zone.
func (z Zone) SuckValve() Relay {
	if z == 1 {
		return RelayZone2Suck
	}
	return RelayZone1Suck
}

// String returns the 1-based label printed on the panel.
func (z Zone) String() string {
	return fmt.Sprintf("zone%d", int(z)+1)
}

// ControlMode records which command source acted last.
// Values match the wire constants of the remote protocol.
type ControlMode int

const (
	ControlRemote ControlMode = 0
	ControlLocal  ControlMode = 1
)

func (m ControlMode) String() string {
	if m == ControlRemote {
		return "REMOTE"
	}
	return "LOCAL"
}

// ControlState is the process-wide control state shared by the dispatcher,
// the cycle machine and status reporting.
type ControlState struct {
	IsMainCycle bool
	Control     ControlMode
}

// State represents the logical state of a button channel.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Buttons is one sample of all command inputs, indexed by Command.
// true = pressed (already inverted from the raw pull-up level).
type Buttons [NumCommands]bool

// Input represents a single sample of button states.
type Input struct {
	Buttons Buttons
	Time    time.Time
}

// Event is a debounced button press.
type Event struct {
	Timestamp time.Time
	Command   Command
}

// ChannelState tracks debounce state for a single button.
type ChannelState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// PressCounts tracks debounced presses per command since startup.
type PressCounts [NumCommands]int
