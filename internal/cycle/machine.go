// Package cycle sequences the rig's valves and pump.
//
// Every public action is abort-then-act: the previous action-set is
// cancelled and all valves are closed before the new action writes its own
// relays. At most one action-set holds scheduled callbacks at any time, so a
// stale callback can never reassert a relay the current action has moved.
//
// Machine is driven from the single control loop and is not safe for
// concurrent use.
package cycle

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/gpio"
	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/params"
	"github.com/sweeney/hydro-controller/internal/sched"
)

var (
	pumpSide = []logic.Relay{logic.RelayZone1Pump, logic.RelayZone2Pump}
	suckSide = []logic.Relay{logic.RelayZone1Suck, logic.RelayZone2Suck}
	fillPath = []logic.Relay{logic.RelayRO, logic.RelayTankPump1}
	// nutrient tank to waste
	emptyPath = []logic.Relay{logic.RelayTankSuck1, logic.RelayTankPump2}
)

// Machine is the cycle state machine.
type Machine struct {
	relays gpio.Relays
	sched  *sched.Scheduler
	params *params.Params
	log    *log.Entry

	ctl     logic.ControlState
	state   State
	outputs [logic.NumRelays]bool

	active     *sched.Set
	cycle      sched.Handle
	cycleCount int
}

// New creates an idle machine.
func New(relays gpio.Relays, s *sched.Scheduler, p *params.Params) *Machine {
	return &Machine{
		relays: relays,
		sched:  s,
		params: p,
		log:    log.WithField("component", "cycle"),
		ctl:    logic.ControlState{Control: logic.ControlLocal},
	}
}

// ValveReset cancels the active action-set and closes every valve. The pump
// is left as it is.
func (m *Machine) ValveReset() {
	m.cancelActive()
	m.closeValves()
	m.state = State{Kind: Idle}
}

// Abort cancels whatever is in progress, closes every valve and stops the
// pump after pump_delay_interval so the valves can seat.
func (m *Machine) Abort() {
	m.cancelActive()
	m.closeValves()
	m.runDown(m.begin("abort"), Aborting)
	m.log.Info("abort")
}

// Flood pumps into zone z for flood_interval.
func (m *Machine) Flood(z logic.Zone) {
	if !z.Valid() {
		m.log.Warnf("flood: invalid zone %d", int(z))
		return
	}
	m.timed("flood", State{Kind: Flooding, Zone: z}, params.FloodInterval, z.PumpValve())
}

// Drain draws from zone z for drain_interval.
func (m *Machine) Drain(z logic.Zone) {
	if !z.Valid() {
		m.log.Warnf("drain: invalid zone %d", int(z))
		return
	}
	m.timed("drain", State{Kind: Draining, Zone: z}, params.DrainInterval, z.SuckValve())
}

// Fill transfers RO water into the nutrient tank for fill_interval.
func (m *Machine) Fill() {
	m.timed("fill", State{Kind: Filling}, params.FillInterval, fillPath...)
}

// Empty pumps the nutrient tank to waste for empty_interval.
func (m *Machine) Empty() {
	m.timed("empty", State{Kind: Emptying}, params.EmptyInterval, emptyPath...)
}

// StartCycle starts the pump/suck main cycle. A running main cycle is left
// undisturbed.
func (m *Machine) StartCycle() {
	if m.ctl.IsMainCycle {
		m.log.Debug("start cycle: already running")
		return
	}
	m.Abort()

	set := m.begin("main cycle")
	m.ctl.IsMainCycle = true
	m.cycleCount = 0
	m.phase()
	m.cycle = set.Every(m.params.Interval(params.MainInterval), func(time.Time) { m.phase() })
	m.log.Infof("main cycle started, interval %v", m.params.Interval(params.MainInterval))
}

// StopCycle stops the main cycle and aborts.
func (m *Machine) StopCycle() {
	if m.ctl.IsMainCycle {
		m.sched.Cancel(m.cycle)
	}
	m.ctl.IsMainCycle = false
	m.cycle = 0
	m.Abort()
}

// SetLights drives the lights relay. Lights are not part of any action-set.
func (m *Machine) SetLights(on bool) {
	m.set(logic.RelayLights, on)
}

// SetControl records which source acted last.
func (m *Machine) SetControl(mode logic.ControlMode) {
	m.ctl.Control = mode
}

// Shutdown cancels everything and de-energizes every relay at once. Used on
// daemon exit, when there is no loop left to run a delayed pump stop.
func (m *Machine) Shutdown() {
	m.cancelActive()
	for r := logic.Relay(0); r < logic.NumRelays; r++ {
		m.set(r, false)
	}
	m.state = State{Kind: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Control returns the shared control state.
func (m *Machine) Control() logic.ControlState {
	return m.ctl
}

// Outputs returns the last state successfully written to each relay.
func (m *Machine) Outputs() [logic.NumRelays]bool {
	return m.outputs
}

// ActiveSet returns the name of the action-set holding live callbacks, or "".
func (m *Machine) ActiveSet() string {
	if m.active == nil || m.active.Live() == 0 {
		return ""
	}
	return m.active.Name()
}

// CycleHandle returns the handle of the main-cycle repeating action, or 0.
func (m *Machine) CycleHandle() sched.Handle {
	return m.cycle
}

// timed runs a single open/pump/close sequence.
func (m *Machine) timed(name string, st State, interval params.Index, valves ...logic.Relay) {
	m.Abort()

	set := m.begin(name)
	m.state = st
	for _, v := range valves {
		m.set(v, true)
	}
	m.set(logic.RelayPump, true)

	d := m.params.Interval(interval)
	set.Once(d, func(time.Time) {
		m.closeValves()
		m.runDown(set, Stopping)
		m.log.Infof("%s complete", name)
	})
	m.log.Infof("%s started (%s for %v)", name, st, d)
}

// phase asserts the next half of the main cycle.
func (m *Machine) phase() {
	p := PhasePump
	valves := pumpSide
	if m.cycleCount%2 == 1 {
		p, valves = PhaseSuck, suckSide
	}
	m.cycleCount++

	m.closeValves()
	for _, v := range valves {
		m.set(v, true)
	}
	m.set(logic.RelayPump, true)
	m.state = State{Kind: MainCycle, Phase: p}
	m.log.Debugf("main cycle phase %s", p)
}

// runDown keeps the pump on for pump_delay_interval, then stops it.
func (m *Machine) runDown(set *sched.Set, kind Kind) {
	m.state = State{Kind: kind}
	set.Once(m.params.Interval(params.PumpDelayInterval), func(time.Time) {
		m.set(logic.RelayPump, false)
		m.state = State{Kind: Idle}
	})
}

// begin cancels the active action-set and opens a new one.
func (m *Machine) begin(name string) *sched.Set {
	m.cancelActive()
	m.active = m.sched.NewSet(name)
	return m.active
}

func (m *Machine) cancelActive() {
	if m.active != nil {
		m.active.Cancel()
		m.active = nil
	}
	if m.ctl.IsMainCycle {
		m.ctl.IsMainCycle = false
		m.cycle = 0
		m.log.Info("main cycle stopped")
	}
}

func (m *Machine) closeValves() {
	for _, v := range logic.Valves() {
		m.set(v, false)
	}
}

// set writes one relay. Hardware writes are fire-and-forget: a failure is
// logged and the recorded output is left unchanged.
func (m *Machine) set(r logic.Relay, on bool) {
	if err := m.relays.Set(r, on); err != nil {
		m.log.Warnf("relay %s: %v", r, err)
		return
	}
	m.outputs[r] = on
}
