package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/hydro-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	State         string           `json:"state"`
	MainCycle     bool             `json:"is_main_cycle"`
	Control       string           `json:"control_mode"`
	Relays        map[string]bool  `json:"relays"`
	Zones         []ZoneJSON       `json:"zones"`
	Params        map[string]int64 `json:"params"`
	Ready         bool             `json:"ready"`
	Presses       map[string]int   `json:"button_presses"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Link          LinkJSON         `json:"link"`
	Network       *NetworkJSON     `json:"network,omitempty"`
	Config        ConfigJSON       `json:"config"`
}

// ZoneJSON is one zone's filtered level.
type ZoneJSON struct {
	Zone          int     `json:"zone"`
	Level         float64 `json:"level"`
	Valid         bool    `json:"valid"`
	AboveSetpoint bool    `json:"above_setpoint"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// LinkJSON reports remote link counters.
type LinkJSON struct {
	KeepalivesSent     uint64         `json:"keepalives_sent"`
	KeepalivesReceived int            `json:"keepalives_received"`
	LastKeepalive      string         `json:"last_keepalive,omitempty"`
	Dropped            int            `json:"dropped_envelopes"`
	Rejected           int            `json:"rejected_commands"`
	Commands           map[string]int `json:"commands,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
	Policy      string `json:"control_policy"`
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.Machine.State
	if state == "" {
		state = "UNKNOWN"
	}

	relays := make(map[string]bool, logic.NumRelays)
	for r, on := range snap.Machine.Relays {
		relays[logic.Relay(r).String()] = on
	}

	zones := make([]ZoneJSON, len(snap.Levels))
	for i, z := range snap.Levels {
		zones[i] = ZoneJSON{Zone: i + 1, Level: z.Level, Valid: z.Valid, AboveSetpoint: z.AboveSetpoint}
	}

	ps := make(map[string]int64, len(snap.Params))
	for _, p := range snap.Params {
		ps[p.Name] = p.Value
	}

	presses := make(map[string]int, logic.NumCommands)
	for c, n := range snap.Presses {
		presses[logic.Command(c).String()] = n
	}

	inner := StatusInner{
		State:         state,
		MainCycle:     snap.Machine.Control.IsMainCycle,
		Control:       snap.Machine.Control.Control.String(),
		Relays:        relays,
		Zones:         zones,
		Params:        ps,
		Ready:         snap.Baselined,
		Presses:       presses,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Link: LinkJSON{
			KeepalivesSent:     snap.Link.KeepalivesSent,
			KeepalivesReceived: snap.Link.KeepalivesReceived,
			Dropped:            snap.Link.Dropped,
			Rejected:           snap.Link.Rejected,
			Commands:           snap.Link.Commands,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
			Policy:      snap.Config.Policy,
		},
	}
	if !snap.Link.LastKeepalive.IsZero() {
		inner.Link.LastKeepalive = snap.Link.LastKeepalive.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT publish.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
