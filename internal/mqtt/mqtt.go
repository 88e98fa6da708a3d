// Package mqtt carries the remote control link over an MQTT broker, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/hydro-controller/internal/params"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "garden/hydro"

// KeepaliveID is the identifier of the heartbeat message, inbound and outbound.
const KeepaliveID = 0x01

// Topics are the topic names under one prefix.
type Topics struct {
	Command   string
	Keepalive string
	Status    string
	Config    string
	System    string
}

// NewTopics derives the topic names from prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		Command:   prefix + "/command",
		Keepalive: prefix + "/keepalive",
		Status:    prefix + "/status",
		Config:    prefix + "/config",
		System:    prefix + "/system",
	}
}

// Publisher sends controller traffic to the broker.
type Publisher interface {
	// PublishKeepalive sends one heartbeat.
	// Returns error if publishing fails (should not crash the process).
	PublishKeepalive(ka Keepalive) error

	// PublishStatus sends a pre-formatted status snapshot.
	PublishStatus(payload []byte) error

	// PublishConfig sends a parameter table report.
	PublishConfig(report ConfigReport) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers inbound command envelopes.
type Subscriber interface {
	// Commands returns the channel of raw envelopes. Messages are delivered
	// from the client's network goroutine; the receiver owns the payload.
	Commands() <-chan []byte
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Keepalive is one outbound heartbeat.
type Keepalive struct {
	Timestamp time.Time
	Seq       uint64
}

// ConfigReport is the parameter table as sent to the remote side.
type ConfigReport struct {
	Timestamp time.Time
	Params    []params.Param
	Error     string // set when the request that produced the report was rejected
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// KeepalivePayload is the heartbeat message structure.
type KeepalivePayload struct {
	Keepalive KeepaliveInner `json:"keepalive"`
}

// KeepaliveInner contains the heartbeat details.
type KeepaliveInner struct {
	ID        int    `json:"id"`
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
}

// FormatKeepalivePayload creates the JSON payload for a heartbeat.
func FormatKeepalivePayload(ka Keepalive) ([]byte, error) {
	return json.Marshal(KeepalivePayload{
		Keepalive: KeepaliveInner{
			ID:        KeepaliveID,
			Seq:       ka.Seq,
			Timestamp: ka.Timestamp.UTC().Format(time.RFC3339),
		},
	})
}

// ConfigPayload is the parameter report message structure.
type ConfigPayload struct {
	Config ConfigInner `json:"config"`
}

// ConfigInner contains the report details.
type ConfigInner struct {
	Timestamp string       `json:"timestamp"`
	Params    []ParamEntry `json:"params"`
	Error     string       `json:"error,omitempty"`
}

// ParamEntry is one parameter of a report.
type ParamEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// FormatConfigPayload creates the JSON payload for a parameter report.
func FormatConfigPayload(report ConfigReport) ([]byte, error) {
	entries := make([]ParamEntry, len(report.Params))
	for i, p := range report.Params {
		entries[i] = ParamEntry{Index: int(p.Index), Name: p.Name, Value: p.Value}
	}
	return json.Marshal(ConfigPayload{
		Config: ConfigInner{
			Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
			Params:    entries,
			Error:     report.Error,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
