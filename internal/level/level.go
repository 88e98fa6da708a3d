// Package level provides filtered water-level telemetry for the two zones.
//
// Readings are advisory: they are reported and compared against the
// configured setpoint, but nothing here drives a relay.
package level

import (
	"fmt"
	"math"
	"time"

	"github.com/sweeney/hydro-controller/internal/logic"
)

// DefaultCutoffHz is the low-pass cutoff of the reference rig.
const DefaultCutoffHz = 5.0

// Reader reads the raw analog level of a zone.
type Reader interface {
	Read(zone logic.Zone) (float64, error)
}

// Filter is a one-pole low-pass filter with time-based smoothing.
type Filter struct {
	tau    float64 // time constant, seconds
	out    float64
	last   time.Time
	primed bool
}

// NewFilter creates a low-pass filter with the given cutoff frequency.
func NewFilter(cutoffHz float64) *Filter {
	if cutoffHz <= 0 {
		cutoffHz = DefaultCutoffHz
	}
	return &Filter{tau: 1 / (2 * math.Pi * cutoffHz)}
}

// Input feeds one sample taken at now and returns the new output.
// The first sample primes the filter.
func (f *Filter) Input(x float64, now time.Time) float64 {
	if !f.primed {
		f.out, f.last, f.primed = x, now, true
		return f.out
	}
	dt := now.Sub(f.last).Seconds()
	if dt <= 0 {
		return f.out
	}
	f.last = now
	alpha := 1 - math.Exp(-dt/f.tau)
	f.out += alpha * (x - f.out)
	return f.out
}

// Output returns the current filtered value.
func (f *Filter) Output() float64 {
	return f.out
}

// Primed reports whether the filter has seen a sample.
func (f *Filter) Primed() bool {
	return f.primed
}

// Reading is one zone's filtered level compared against the setpoint.
type Reading struct {
	Zone          logic.Zone
	Level         float64
	Valid         bool
	AboveSetpoint bool
}

// Watcher is notified after every sample with the zone's filtered level.
// It is the hook for level-driven protection; none is installed by default.
type Watcher func(zone logic.Zone, level float64)

// Telemetry keeps one filter per zone.
type Telemetry struct {
	reader  Reader
	filters [logic.NumZones]*Filter
	watcher Watcher
}

// NewTelemetry creates zone telemetry reading from r.
func NewTelemetry(r Reader, cutoffHz float64) *Telemetry {
	t := &Telemetry{reader: r}
	for i := range t.filters {
		t.filters[i] = NewFilter(cutoffHz)
	}
	return t
}

// SetWatcher installs a level watcher (nil removes it).
func (t *Telemetry) SetWatcher(w Watcher) {
	t.watcher = w
}

// Sample reads and filters both zones. A zone whose read fails keeps its
// previous value; the first error is returned.
func (t *Telemetry) Sample(now time.Time) error {
	var firstErr error
	for i, f := range t.filters {
		z := logic.Zone(i)
		raw, err := t.reader.Read(z)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("read %s level: %w", z, err)
			}
			continue
		}
		level := f.Input(raw, now)
		if t.watcher != nil {
			t.watcher(z, level)
		}
	}
	return firstErr
}

// Level returns the filtered level of a zone.
func (t *Telemetry) Level(z logic.Zone) float64 {
	if !z.Valid() {
		return 0
	}
	return t.filters[z].Output()
}

// Readings returns both zones compared against setpoint.
func (t *Telemetry) Readings(setpoint int64) [logic.NumZones]Reading {
	var out [logic.NumZones]Reading
	for i, f := range t.filters {
		out[i] = Reading{
			Zone:          logic.Zone(i),
			Level:         f.Output(),
			Valid:         f.Primed(),
			AboveSetpoint: f.Primed() && f.Output() > float64(setpoint),
		}
	}
	return out
}
