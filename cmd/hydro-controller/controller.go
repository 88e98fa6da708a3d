package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/bridge"
	"github.com/sweeney/hydro-controller/internal/cycle"
	"github.com/sweeney/hydro-controller/internal/dispatch"
	"github.com/sweeney/hydro-controller/internal/gpio"
	"github.com/sweeney/hydro-controller/internal/level"
	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/mqtt"
	"github.com/sweeney/hydro-controller/internal/params"
	"github.com/sweeney/hydro-controller/internal/sched"
	"github.com/sweeney/hydro-controller/internal/status"
)

// historyWriter stores level history. tsdb.Client implements it.
type historyWriter interface {
	WriteLevels(ctx context.Context, now time.Time, readings []level.Reading) error
}

// deps are the collaborators runLoop is built from.
type deps struct {
	buttons  gpio.Buttons
	relays   gpio.Relays
	params   *params.Params
	levels   level.Reader
	cutoffHz float64
	pub      mqtt.Publisher
	sub      mqtt.Subscriber       // optional
	conn     mqtt.ConnectionStatus // optional
	tracker  *status.Tracker
	policy   dispatch.Policy
	history  historyWriter // optional
}

// controller wires the components around one scheduler.
type controller struct {
	deps

	sched      *sched.Scheduler
	machine    *cycle.Machine
	dispatcher *dispatch.Dispatcher
	link       *bridge.Bridge
	detector   *logic.Detector
	telemetry  *level.Telemetry

	buttonFault bool
	levelFault  bool
}

func newController(d deps, start time.Time) *controller {
	s := sched.New(start)
	m := cycle.New(d.relays, s, d.params)
	disp := dispatch.New(m, d.params, d.policy)

	c := &controller{
		deps:       d,
		sched:      s,
		machine:    m,
		dispatcher: disp,
		detector:   logic.NewDetector(d.params.Interval(params.DebounceInterval)),
		telemetry:  level.NewTelemetry(d.levels, d.cutoffHz),
	}

	opts := bridge.Options{Status: c.statusPayload}
	if d.history != nil {
		opts.Record = c.record
	}
	c.link = bridge.New(disp, d.pub, s, d.params, opts)
	return c
}

// step runs one poll: due callbacks first, then the panel, then the level
// inputs. Actions started by a press are timed from t.
func (c *controller) step(ctx context.Context, t time.Time) {
	c.sched.Tick(t)

	buttons, err := c.buttons.Read()
	switch {
	case err != nil:
		if !c.buttonFault {
			log.Warnf("button read error: %v", err)
			c.buttonFault = true
		}
	default:
		if c.buttonFault {
			log.Printf("button read recovered")
			c.buttonFault = false
		}
		c.detector.SetDebounce(c.params.Interval(params.DebounceInterval))
		for _, ev := range c.detector.Process(logic.Input{Buttons: buttons, Time: t}) {
			log.WithField("component", "panel").Printf("press: %s", ev.Command)
			c.dispatcher.Dispatch(ctx, dispatch.Request{
				Action: dispatch.FromCommand(ev.Command),
				Source: logic.ControlLocal,
			})
		}
	}

	if err := c.telemetry.Sample(t); err != nil {
		if !c.levelFault {
			log.Warnf("level sample error: %v", err)
			c.levelFault = true
		}
	} else if c.levelFault {
		log.Printf("level sampling recovered")
		c.levelFault = false
	}

	c.refresh()
}

// refresh copies the control state into the tracker for the web and MQTT readers.
func (c *controller) refresh() {
	c.tracker.UpdateMachine(status.Machine{
		State:   c.machine.State().String(),
		Control: c.machine.Control(),
		Relays:  c.machine.Outputs(),
	})
	c.tracker.UpdateInputs(c.detector.IsBaselined(), c.detector.Counts())
	c.tracker.UpdateLevels(c.readings())
	c.tracker.UpdateParams(c.params.Describe())

	st := c.link.Stats()
	c.tracker.UpdateLink(status.Link{
		KeepalivesSent:     st.Sent,
		KeepalivesReceived: st.Received,
		LastKeepalive:      st.LastReceived,
		Dropped:            st.Dropped,
		Rejected:           c.dispatcher.Rejected(),
		Commands:           c.commandCounts(),
	})
	if c.conn != nil {
		c.tracker.SetMQTTConnected(c.conn.IsConnected())
	}
}

// commandCounts returns executed actions by name, in a new map each call.
func (c *controller) commandCounts() map[string]int {
	out := make(map[string]int)
	for a, n := range c.dispatcher.Counts() {
		if n > 0 {
			out[dispatch.Action(a).String()] = n
		}
	}
	return out
}

func (c *controller) readings() [logic.NumZones]level.Reading {
	return c.telemetry.Readings(c.params.Get(params.LevelSetpoint))
}

// statusPayload is published with every keepalive.
func (c *controller) statusPayload(now time.Time) []byte {
	c.refresh()
	return status.FormatStatusEvent(c.tracker.SnapshotAt(now), "", "")
}

func (c *controller) record(ctx context.Context, now time.Time) error {
	readings := c.readings()
	return c.history.WriteLevels(ctx, now, readings[:])
}

// shutdown stops the link, forces every relay off and announces the exit.
func (c *controller) shutdown(reason string, t time.Time) {
	c.link.Stop()
	c.machine.Shutdown()
	c.refresh()

	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(c.tracker.SnapshotAt(t), "SHUTDOWN", reason),
	}
	if err := c.pub.PublishSystem(event); err != nil {
		log.Warnf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}
