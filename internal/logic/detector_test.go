package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func press(cs ...Command) Buttons {
	var b Buttons
	for _, c := range cs {
		b[c] = true
	}
	return b
}

// setupBaselinedDetector returns a detector with every button baselined as released.
func setupBaselinedDetector(t *testing.T) *Detector {
	t.Helper()
	d := NewDetector(500 * time.Millisecond)
	d.Process(Input{Time: t0})
	d.Process(Input{Time: t0.Add(500 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("setup: detector should be baselined")
	}
	return d
}

func TestNewDetector(t *testing.T) {
	d := NewDetector(250 * time.Millisecond)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.debounceDuration != 250*time.Millisecond {
		t.Errorf("expected debounce duration 250ms, got %v", d.debounceDuration)
	}
	if d.baselined {
		t.Error("new detector should not be baselined")
	}
}

func TestBaselineEstablishment(t *testing.T) {
	d := NewDetector(500 * time.Millisecond)

	if events := d.Process(Input{Time: t0}); len(events) != 0 {
		t.Errorf("expected no events during baseline, got %d", len(events))
	}
	if d.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	d.Process(Input{Time: t0.Add(400 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	if events := d.Process(Input{Time: t0.Add(500 * time.Millisecond)}); len(events) != 0 {
		t.Errorf("expected no events at baseline establishment, got %d", len(events))
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce period")
	}
	if d.Stable(CommandAbort) != StateOff {
		t.Errorf("expected ABORT stable OFF, got %s", d.Stable(CommandAbort))
	}
}

func TestButtonHeldAtStartupDoesNotFire(t *testing.T) {
	d := NewDetector(500 * time.Millisecond)
	held := press(CommandFill)

	d.Process(Input{Buttons: held, Time: t0})
	events := d.Process(Input{Buttons: held, Time: t0.Add(500 * time.Millisecond)})
	if len(events) != 0 {
		t.Fatalf("expected no press for a button held at startup, got %v", events)
	}
	if d.Stable(CommandFill) != StateOn {
		t.Errorf("expected FILL baselined ON, got %s", d.Stable(CommandFill))
	}

	// Release and press again: that one counts
	d.Process(Input{Time: t0.Add(1 * time.Second)})
	d.Process(Input{Time: t0.Add(1500 * time.Millisecond)})
	d.Process(Input{Buttons: held, Time: t0.Add(2 * time.Second)})
	events = d.Process(Input{Buttons: held, Time: t0.Add(2500 * time.Millisecond)})
	if len(events) != 1 || events[0].Command != CommandFill {
		t.Fatalf("expected one FILL press, got %v", events)
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	d := NewDetector(500 * time.Millisecond)

	d.Process(Input{Buttons: press(CommandCycle), Time: t0})
	d.Process(Input{Time: t0.Add(100 * time.Millisecond)})

	d.Process(Input{Time: t0.Add(500 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("CYCLE changed during baseline; should not be baselined yet")
	}

	d.Process(Input{Time: t0.Add(600 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce from state change")
	}
}

func TestSinglePress(t *testing.T) {
	d := setupBaselinedDetector(t)
	now := t0.Add(time.Minute)

	if events := d.Process(Input{Buttons: press(CommandFlood2), Time: now}); len(events) != 0 {
		t.Errorf("expected no events before debounce, got %d", len(events))
	}
	if events := d.Process(Input{Buttons: press(CommandFlood2), Time: now.Add(499 * time.Millisecond)}); len(events) != 0 {
		t.Errorf("expected no events before debounce, got %d", len(events))
	}

	events := d.Process(Input{Buttons: press(CommandFlood2), Time: now.Add(500 * time.Millisecond)})
	if len(events) != 1 {
		t.Fatalf("expected 1 event after debounce, got %d", len(events))
	}
	e := events[0]
	if e.Command != CommandFlood2 {
		t.Errorf("expected FLOOD_2, got %s", e.Command)
	}
	if !e.Timestamp.Equal(now.Add(500 * time.Millisecond)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
}

func TestReleaseDoesNotFire(t *testing.T) {
	d := setupBaselinedDetector(t)
	now := t0.Add(time.Minute)

	d.Process(Input{Buttons: press(CommandDrain1), Time: now})
	d.Process(Input{Buttons: press(CommandDrain1), Time: now.Add(500 * time.Millisecond)})

	d.Process(Input{Time: now.Add(1 * time.Second)})
	events := d.Process(Input{Time: now.Add(1500 * time.Millisecond)})
	if len(events) != 0 {
		t.Errorf("expected no events on release, got %v", events)
	}
	if d.Stable(CommandDrain1) != StateOff {
		t.Errorf("expected DRAIN_1 released, got %s", d.Stable(CommandDrain1))
	}
}

func TestBounceShorterThanDebounce(t *testing.T) {
	d := setupBaselinedDetector(t)
	now := t0.Add(time.Minute)

	states := []bool{true, false, true, false}
	for i, s := range states {
		var b Buttons
		b[CommandAbort] = s
		events := d.Process(Input{Buttons: b, Time: now.Add(time.Duration(i*100) * time.Millisecond)})
		if len(events) != 0 {
			t.Errorf("iteration %d: expected no events during bouncing, got %d", i, len(events))
		}
	}

	events := d.Process(Input{Time: now.Add(time.Second)})
	if len(events) != 0 {
		t.Errorf("expected no events after bounce, got %d", len(events))
	}
}

func TestSimultaneousPressesInCommandOrder(t *testing.T) {
	d := setupBaselinedDetector(t)
	now := t0.Add(time.Minute)
	both := press(CommandEmpty, CommandCycle)

	d.Process(Input{Buttons: both, Time: now})
	events := d.Process(Input{Buttons: both, Time: now.Add(500 * time.Millisecond)})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Command != CommandCycle || events[1].Command != CommandEmpty {
		t.Errorf("expected CYCLE then EMPTY, got %s then %s", events[0].Command, events[1].Command)
	}
}

func TestSetDebounce(t *testing.T) {
	d := setupBaselinedDetector(t)
	d.SetDebounce(50 * time.Millisecond)
	now := t0.Add(time.Minute)

	d.Process(Input{Buttons: press(CommandFill), Time: now})
	events := d.Process(Input{Buttons: press(CommandFill), Time: now.Add(50 * time.Millisecond)})
	if len(events) != 1 {
		t.Fatalf("expected press after shortened debounce, got %d events", len(events))
	}
}

func TestPressCounts(t *testing.T) {
	d := setupBaselinedDetector(t)
	now := t0.Add(time.Minute)

	for i := 0; i < 3; i++ {
		base := now.Add(time.Duration(i) * 2 * time.Second)
		d.Process(Input{Buttons: press(CommandAbort), Time: base})
		d.Process(Input{Buttons: press(CommandAbort), Time: base.Add(500 * time.Millisecond)})
		d.Process(Input{Time: base.Add(time.Second)})
		d.Process(Input{Time: base.Add(1500 * time.Millisecond)})
	}

	counts := d.Counts()
	if counts[CommandAbort] != 3 {
		t.Errorf("ABORT presses: got %d, want 3", counts[CommandAbort])
	}
	if counts[CommandCycle] != 0 {
		t.Errorf("CYCLE presses: got %d, want 0", counts[CommandCycle])
	}
}

func TestBoolToState(t *testing.T) {
	if boolToState(true) != StateOn {
		t.Error("true should map to ON")
	}
	if boolToState(false) != StateOff {
		t.Error("false should map to OFF")
	}
}
