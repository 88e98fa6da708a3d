package logic

import "time"

// Detector debounces the command buttons and reports presses.
type Detector struct {
	debounceDuration time.Duration
	channels         [NumCommands]ChannelState
	baselined        bool
	counts           PressCounts
}

// NewDetector creates a button debouncer with the given debounce duration.
func NewDetector(debounceDuration time.Duration) *Detector {
	return &Detector{debounceDuration: debounceDuration}
}

// SetDebounce changes the debounce duration. Pending transitions keep their
// original start time and are judged against the new duration.
func (d *Detector) SetDebounce(debounceDuration time.Duration) {
	d.debounceDuration = debounceDuration
}

// Process takes a new input sample and returns the presses it completes.
// Presses are only returned after every button has a baseline, so a button
// held down at startup never fires.
func (d *Detector) Process(input Input) []Event {
	var pressed []Command
	for i := range d.channels {
		if d.processChannel(&d.channels[i], boolToState(input.Buttons[i]), input.Time) {
			pressed = append(pressed, Command(i))
		}
	}

	if !d.baselined {
		for i := range d.channels {
			if !d.channels[i].Baselined {
				return nil
			}
		}
		d.baselined = true
		return nil
	}

	var events []Event
	// Command order when several buttons settle in the same sample
	for _, c := range pressed {
		d.counts[c]++
		events = append(events, Event{Timestamp: input.Time, Command: c})
	}
	return events
}

// processChannel handles debounce logic for a single button.
// Returns true if the button settled into the pressed state.
func (d *Detector) processChannel(ch *ChannelState, newState State, now time.Time) bool {
	if !ch.Baselined {
		if ch.Pending != newState {
			// First sample, or state changed during baseline: restart
			ch.Pending = newState
			ch.PendingSince = now
			return false
		}

		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return false
	}

	if newState == ch.Stable {
		ch.Pending = ""
		return false
	}

	if ch.Pending != newState {
		ch.Pending = newState
		ch.PendingSince = now
		return false
	}

	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		ch.Stable = newState
		ch.Pending = ""
		return newState == StateOn
	}

	return false
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Stable returns the debounced state of one button.
func (d *Detector) Stable(c Command) State {
	return d.channels[c].Stable
}

// Counts returns a copy of the press counters.
func (d *Detector) Counts() PressCounts {
	return d.counts
}
