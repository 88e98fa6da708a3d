// Package dispatch maps operator commands onto the cycle state machine and
// the parameter table. Button presses and decoded remote commands arrive as
// the same Request type and go through one dispatch table; only the Source
// field says where they came from.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/cycle"
	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/params"
)

// Action is the closed set of operations the controller accepts.
// The first eight match logic.Command one to one.
type Action int

const (
	ActionCycle Action = iota
	ActionFlood1
	ActionFlood2
	ActionDrain1
	ActionDrain2
	ActionFill
	ActionEmpty
	ActionAbort
	ActionStopCycle
	ActionSetParam
	ActionResetConfig
	ActionDescribeConfig
	ActionKeepalive
	ActionControl
	ActionLights
)

// NumActions is the number of actions.
const NumActions = 15

var actionNames = [NumActions]string{
	"cycle", "flood_1", "flood_2", "drain_1", "drain_2", "fill", "empty", "abort",
	"stop_cycle", "set_param", "reset_config", "describe_config", "keepalive", "control", "lights",
}

func (a Action) String() string {
	if a < 0 || a >= NumActions {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// drivesRelays reports whether the action moves valves, the pump or lights
// and is therefore subject to the control policy.
func (a Action) drivesRelays() bool {
	return a <= ActionStopCycle || a == ActionLights
}

// FromCommand returns the action for a pushbutton command.
func FromCommand(c logic.Command) Action {
	return Action(c)
}

// Policy decides whether control_mode restricts which source is obeyed.
type Policy int

const (
	// PolicyShared accepts both sources; control_mode only records who acted last.
	PolicyShared Policy = iota
	// PolicyExclusive accepts relay actions only from the authoritative
	// source. Abort is always accepted.
	PolicyExclusive
)

// ParsePolicy resolves a policy from its configuration name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "shared":
		return PolicyShared, nil
	case "exclusive":
		return PolicyExclusive, nil
	}
	return 0, fmt.Errorf("dispatch: unknown control policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyExclusive {
		return "exclusive"
	}
	return "shared"
}

// ErrNotAuthoritative is returned when the exclusive policy rejects a
// command from the source that does not hold control.
var ErrNotAuthoritative = errors.New("dispatch: source does not hold control")

// Request is one decoded command.
type Request struct {
	Action Action
	Source logic.ControlMode

	// ActionSetParam
	Index params.Index
	Value int64

	// ActionControl
	Mode logic.ControlMode

	// ActionLights
	On bool
}

// Result carries what the caller should report back.
type Result struct {
	// Config is set after any parameter operation: the table as it now stands.
	Config []params.Param

	// Keepalive is set when the request was an inbound heartbeat.
	Keepalive bool
}

// Dispatcher routes requests. It is owned by the control loop.
type Dispatcher struct {
	machine *cycle.Machine
	params  *params.Params
	policy  Policy
	log     *log.Entry

	counts   [NumActions]int
	rejected int
}

type handler func(d *Dispatcher, ctx context.Context, req Request) (Result, error)

var table = [NumActions]handler{
	ActionCycle:          machine((*cycle.Machine).StartCycle),
	ActionFlood1:         machine(func(m *cycle.Machine) { m.Flood(0) }),
	ActionFlood2:         machine(func(m *cycle.Machine) { m.Flood(1) }),
	ActionDrain1:         machine(func(m *cycle.Machine) { m.Drain(0) }),
	ActionDrain2:         machine(func(m *cycle.Machine) { m.Drain(1) }),
	ActionFill:           machine((*cycle.Machine).Fill),
	ActionEmpty:          machine((*cycle.Machine).Empty),
	ActionAbort:          machine((*cycle.Machine).Abort),
	ActionStopCycle:      machine((*cycle.Machine).StopCycle),
	ActionSetParam:       (*Dispatcher).setParam,
	ActionResetConfig:    (*Dispatcher).resetConfig,
	ActionDescribeConfig: (*Dispatcher).describeConfig,
	ActionKeepalive:      (*Dispatcher).keepalive,
	ActionControl:        (*Dispatcher).control,
	ActionLights:         (*Dispatcher).lights,
}

// machine adapts a parameterless state machine action to a handler.
func machine(fn func(*cycle.Machine)) handler {
	return func(d *Dispatcher, _ context.Context, _ Request) (Result, error) {
		fn(d.machine)
		return Result{}, nil
	}
}

// New creates a Dispatcher.
func New(m *cycle.Machine, p *params.Params, policy Policy) *Dispatcher {
	return &Dispatcher{
		machine: m,
		params:  p,
		policy:  policy,
		log:     log.WithField("component", "dispatch"),
	}
}

// Dispatch executes one request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.Action < 0 || req.Action >= NumActions {
		return Result{}, fmt.Errorf("dispatch: unknown action %d", int(req.Action))
	}
	if req.Action.drivesRelays() {
		if err := d.authorize(req); err != nil {
			d.rejected++
			d.log.Warnf("%s from %s rejected: %v", req.Action, req.Source, err)
			return Result{}, err
		}
	}

	d.counts[req.Action]++
	if req.Action != ActionKeepalive {
		d.log.Debugf("%s from %s", req.Action, req.Source)
	}
	return table[req.Action](d, ctx, req)
}

// authorize applies the control policy and records the acting source.
func (d *Dispatcher) authorize(req Request) error {
	switch d.policy {
	case PolicyExclusive:
		if req.Action != ActionAbort && req.Source != d.machine.Control().Control {
			return fmt.Errorf("%w (%s holds control)", ErrNotAuthoritative, d.machine.Control().Control)
		}
	default:
		d.machine.SetControl(req.Source)
	}
	return nil
}

func (d *Dispatcher) setParam(ctx context.Context, req Request) (Result, error) {
	err := d.params.Set(ctx, req.Index, req.Value)
	if err != nil {
		d.log.Warnf("set_param %d=%d rejected: %v", int(req.Index), req.Value, err)
	} else {
		d.log.Infof("%s set to %d", req.Index, req.Value)
	}
	return Result{Config: d.params.Describe()}, err
}

func (d *Dispatcher) resetConfig(ctx context.Context, _ Request) (Result, error) {
	err := d.params.Reset(ctx)
	if err != nil {
		d.log.Warnf("reset_config: %v", err)
	} else {
		d.log.Info("parameters reset to defaults")
	}
	return Result{Config: d.params.Describe()}, err
}

func (d *Dispatcher) describeConfig(context.Context, Request) (Result, error) {
	return Result{Config: d.params.Describe()}, nil
}

func (d *Dispatcher) keepalive(context.Context, Request) (Result, error) {
	return Result{Keepalive: true}, nil
}

func (d *Dispatcher) lights(_ context.Context, req Request) (Result, error) {
	d.machine.SetLights(req.On)
	return Result{}, nil
}

func (d *Dispatcher) control(_ context.Context, req Request) (Result, error) {
	if req.Mode != logic.ControlLocal && req.Mode != logic.ControlRemote {
		return Result{}, fmt.Errorf("dispatch: unknown control mode %d", int(req.Mode))
	}
	if d.machine.Control().Control != req.Mode {
		d.log.Infof("control handed to %s by %s", req.Mode, req.Source)
	}
	d.machine.SetControl(req.Mode)
	return Result{}, nil
}

// Counts returns how many requests of each action were executed.
func (d *Dispatcher) Counts() [NumActions]int {
	return d.counts
}

// Rejected returns how many requests the control policy refused.
func (d *Dispatcher) Rejected() int {
	return d.rejected
}
