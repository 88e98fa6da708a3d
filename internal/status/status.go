// Package status provides a thread-safe status tracker for the hydro-controller daemon.
// The control loop writes it; HTTP handlers and the keepalive publisher read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/hydro-controller/internal/level"
	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/params"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	Policy      string
}

// Machine is the cycle state machine as reported.
type Machine struct {
	State   string
	Control logic.ControlState
	Relays  [logic.NumRelays]bool
}

// Link counts remote link traffic.
type Link struct {
	KeepalivesSent     uint64
	KeepalivesReceived int
	LastKeepalive      time.Time
	Dropped            int
	Rejected           int
	Commands           map[string]int // executed requests by action name
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Machine       Machine
	Baselined     bool
	Presses       logic.PressCounts
	Levels        [logic.NumZones]level.Reading
	Params        []params.Param
	Link          Link
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Machine:   Machine{State: "IDLE"},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateMachine records the state machine and relay outputs.
func (t *Tracker) UpdateMachine(m Machine) {
	t.mu.Lock()
	t.snap.Machine = m
	t.mu.Unlock()
}

// UpdateInputs records button baseline status and press counts.
func (t *Tracker) UpdateInputs(baselined bool, presses logic.PressCounts) {
	t.mu.Lock()
	t.snap.Baselined = baselined
	t.snap.Presses = presses
	t.mu.Unlock()
}

// UpdateLevels records the filtered zone levels.
func (t *Tracker) UpdateLevels(readings [logic.NumZones]level.Reading) {
	t.mu.Lock()
	t.snap.Levels = readings
	t.mu.Unlock()
}

// UpdateParams records the parameter table. The slice is copied.
func (t *Tracker) UpdateParams(ps []params.Param) {
	cp := append([]params.Param(nil), ps...)
	t.mu.Lock()
	t.snap.Params = cp
	t.mu.Unlock()
}

// UpdateLink records remote link counters.
func (t *Tracker) UpdateLink(l Link) {
	t.mu.Lock()
	t.snap.Link = l
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	return t.SnapshotAt(time.Now())
}

// SnapshotAt is Snapshot with an explicit clock.
func (t *Tracker) SnapshotAt(now time.Time) Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = now
	return s
}
