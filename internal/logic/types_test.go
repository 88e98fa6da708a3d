package logic

import "testing"

func TestParseRelay(t *testing.T) {
	for r := Relay(0); r < NumRelays; r++ {
		got, ok := ParseRelay(r.String())
		if !ok || got != r {
			t.Errorf("ParseRelay(%q) = %v, %v; want %v", r.String(), got, ok, r)
		}
	}
	if _, ok := ParseRelay("sprinkler"); ok {
		t.Error("expected unknown role to fail")
	}
}

func TestValvesExcludePumpAndLights(t *testing.T) {
	valves := Valves()
	if len(valves) != NumRelays-2 {
		t.Fatalf("expected %d valves, got %d", NumRelays-2, len(valves))
	}
	for _, v := range valves {
		if v == RelayPump || v == RelayLights {
			t.Errorf("%s must not be a valve", v)
		}
	}
}

func TestZoneValves(t *testing.T) {
	tests := []struct {
		zone Zone
		pump Relay
		suck Relay
	}{
		{0, RelayZone1Pump, RelayZone1Suck},
		{1, RelayZone2Pump, RelayZone2Suck},
	}
	for _, tt := range tests {
		if got := tt.zone.PumpValve(); got != tt.pump {
			t.Errorf("%s pump valve: got %s, want %s", tt.zone, got, tt.pump)
		}
		if got := tt.zone.SuckValve(); got != tt.suck {
			t.Errorf("%s suck valve: got %s, want %s", tt.zone, got, tt.suck)
		}
	}
	if Zone(2).Valid() || Zone(-1).Valid() {
		t.Error("only zones 0 and 1 are valid")
	}
}

func TestControlModeWireValues(t *testing.T) {
	if ControlRemote != 0 || ControlLocal != 1 {
		t.Errorf("wire values changed: remote=%d local=%d", ControlRemote, ControlLocal)
	}
	if ControlLocal.String() != "LOCAL" || ControlRemote.String() != "REMOTE" {
		t.Error("unexpected control mode names")
	}
}

func TestCommandString(t *testing.T) {
	if CommandFlood1.String() != "FLOOD_1" {
		t.Errorf("got %s", CommandFlood1)
	}
	if Command(42).String() != "COMMAND(42)" {
		t.Errorf("got %s", Command(42))
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		want Command
		ok   bool
	}{
		{"CYCLE", CommandCycle, true},
		{"flood_2", CommandFlood2, true},
		{"Abort", CommandAbort, true},
		{"sprinkle", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCommand(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
