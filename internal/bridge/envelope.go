// Package bridge connects the remote link to the dispatcher: it decodes
// inbound command envelopes and emits the periodic keepalive.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sweeney/hydro-controller/internal/dispatch"
	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/params"
)

var (
	// ErrMalformedEnvelope is returned for payloads that are not a valid envelope.
	ErrMalformedEnvelope = errors.New("bridge: malformed envelope")

	// ErrUnknownCommand is returned for envelopes naming no known command.
	ErrUnknownCommand = errors.New("bridge: unknown command")
)

// Envelope is the decoded form of one remote command.
//
//	{"command":"flood","zone":1}
//	{"command":"set_param","index":2,"value":2500}
//	{"command":"control","mode":"remote"}
//	{"command":"lights","on":true}
type Envelope struct {
	Command string `json:"command"`
	Zone    *int   `json:"zone,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Value   *int64 `json:"value,omitempty"`
	Mode    string `json:"mode,omitempty"`
	On      *bool  `json:"on,omitempty"`
}

// simple maps commands that take no arguments.
var simple = map[string]dispatch.Action{
	"cycle":           dispatch.ActionCycle,
	"stop_cycle":      dispatch.ActionStopCycle,
	"fill":            dispatch.ActionFill,
	"empty":           dispatch.ActionEmpty,
	"abort":           dispatch.ActionAbort,
	"reset_config":    dispatch.ActionResetConfig,
	"describe_config": dispatch.ActionDescribeConfig,
	"keepalive":       dispatch.ActionKeepalive,
}

// Decode parses a payload into a remote dispatcher request.
func Decode(payload []byte) (dispatch.Request, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return dispatch.Request{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return env.Request()
}

// Request converts the envelope into a dispatcher request.
func (e Envelope) Request() (dispatch.Request, error) {
	req := dispatch.Request{Source: logic.ControlRemote}

	if a, ok := simple[e.Command]; ok {
		req.Action = a
		return req, nil
	}

	switch e.Command {
	case "flood", "drain":
		if e.Zone == nil || *e.Zone < 1 || *e.Zone > logic.NumZones {
			return req, fmt.Errorf("%w: %s needs zone 1 or 2", ErrMalformedEnvelope, e.Command)
		}
		req.Action = dispatch.ActionFlood1
		if e.Command == "drain" {
			req.Action = dispatch.ActionDrain1
		}
		if *e.Zone == 2 {
			req.Action++
		}
	case "set_param":
		if e.Index == nil || e.Value == nil {
			return req, fmt.Errorf("%w: set_param needs index and value", ErrMalformedEnvelope)
		}
		req.Action = dispatch.ActionSetParam
		req.Index = params.Index(*e.Index)
		req.Value = *e.Value
	case "control":
		switch e.Mode {
		case "local":
			req.Mode = logic.ControlLocal
		case "remote":
			req.Mode = logic.ControlRemote
		default:
			return req, fmt.Errorf("%w: control mode %q", ErrMalformedEnvelope, e.Mode)
		}
		req.Action = dispatch.ActionControl
	case "lights":
		if e.On == nil {
			return req, fmt.Errorf("%w: lights needs on", ErrMalformedEnvelope)
		}
		req.Action = dispatch.ActionLights
		req.On = *e.On
	case "":
		return req, fmt.Errorf("%w: missing command", ErrMalformedEnvelope)
	default:
		return req, fmt.Errorf("%w: %q", ErrUnknownCommand, e.Command)
	}
	return req, nil
}
