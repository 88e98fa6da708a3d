package gpio

import (
	"errors"

	"github.com/sweeney/hydro-controller/internal/logic"
)

// FakeButtons is a test double that returns scripted button samples.
type FakeButtons struct {
	// Samples contains scripted samples to return.
	// Each call to Read() consumes the next sample.
	Samples []logic.Buttons

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeButtons creates a FakeButtons with the given samples.
func NewFakeButtons(samples []logic.Buttons) *FakeButtons {
	return &FakeButtons{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButtons) Read() (logic.Buttons, error) {
	if f.ReadError != nil {
		return logic.Buttons{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return logic.Buttons{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeButtons) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeButtons) Reset() {
	f.index = 0
	f.Closed = false
}

// Write is one recorded relay write.
type Write struct {
	Relay logic.Relay
	On    bool
}

// FakeRelays records relay writes for test assertions.
type FakeRelays struct {
	// State is the last value written to each relay.
	State [logic.NumRelays]bool

	// Writes lists every successful write in order.
	Writes []Write

	// SetError, if set, will be returned by Set (and nothing is recorded).
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeRelays creates a FakeRelays with every relay de-energized.
func NewFakeRelays() *FakeRelays {
	return &FakeRelays{}
}

// Set records the write.
func (f *FakeRelays) Set(r logic.Relay, on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.State[r] = on
	f.Writes = append(f.Writes, Write{Relay: r, On: on})
	return nil
}

// Close de-energizes every relay and marks the fake closed.
func (f *FakeRelays) Close() error {
	f.State = [logic.NumRelays]bool{}
	f.Closed = true
	return nil
}

// Energized returns the relays currently on, in role order.
func (f *FakeRelays) Energized() []logic.Relay {
	var out []logic.Relay
	for r, on := range f.State {
		if on {
			out = append(out, logic.Relay(r))
		}
	}
	return out
}

// ClearWrites forgets recorded writes but keeps State.
func (f *FakeRelays) ClearWrites() {
	f.Writes = nil
}
