package cycle

import (
	"fmt"

	"github.com/sweeney/hydro-controller/internal/logic"
)

// Kind is the coarse state of the machine.
type Kind int

const (
	Idle Kind = iota
	Flooding
	Draining
	Filling
	Emptying
	MainCycle
	// Aborting covers the pump run-down after an abort closed the valves.
	Aborting
	// Stopping covers the pump run-down after a timed action completed.
	Stopping
)

var kindNames = [...]string{"IDLE", "FLOODING", "DRAINING", "FILLING", "EMPTYING", "MAIN_CYCLE", "ABORTING", "STOPPING"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("KIND(%d)", int(k))
	}
	return kindNames[k]
}

// Phase is the half of the main cycle currently asserted.
type Phase int

const (
	PhasePump Phase = iota
	PhaseSuck
)

func (p Phase) String() string {
	if p == PhaseSuck {
		return "SUCK"
	}
	return "PUMP"
}

// State is the full machine state. Zone is meaningful for Flooding and
// Draining, Phase for MainCycle.
type State struct {
	Kind  Kind
	Zone  logic.Zone
	Phase Phase
}

func (s State) String() string {
	switch s.Kind {
	case Flooding, Draining:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Zone)
	case MainCycle:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Phase)
	default:
		return s.Kind.String()
	}
}
