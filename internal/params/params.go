// Package params holds the tunable interval and setpoint table of the rig.
//
// The table has nine entries addressed by a stable numeric index. It is
// loaded once at startup from a Store (or compiled-in defaults), mutated one
// entry at a time, and written back through the same Store.
package params

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// Index addresses one parameter. Values are part of the remote protocol.
type Index int

const (
	FillInterval Index = iota
	FloodInterval
	DrainInterval
	MainInterval
	EmptyInterval
	PumpDelayInterval
	KeepAliveInterval
	DebounceInterval
	LevelSetpoint
)

// Count is the number of parameters in the table.
const Count = 9

var names = [Count]string{
	"fill_interval",
	"flood_interval",
	"drain_interval",
	"main_interval",
	"empty_interval",
	"pump_delay_interval",
	"keep_alive_interval",
	"debounce_interval",
	"level_setpoint",
}

// Defaults are the compiled-in values. Intervals are milliseconds.
var Defaults = Values{
	FillInterval:      300000,
	FloodInterval:     2000,
	DrainInterval:     2000,
	MainInterval:      20000,
	EmptyInterval:     1800000,
	PumpDelayInterval: 3000,
	KeepAliveInterval: 3000,
	DebounceInterval:  500,
	LevelSetpoint:     200,
}

var (
	// ErrInvalidIndex is returned when a write addresses no parameter.
	ErrInvalidIndex = errors.New("params: index out of range")

	// ErrNegativeValue is returned when a write would make a parameter negative.
	ErrNegativeValue = errors.New("params: negative value")

	// ErrValueTooLarge is returned when a write exceeds MaxValue.
	ErrValueTooLarge = errors.New("params: value too large")
)

// Valid reports whether i addresses a parameter.
func (i Index) Valid() bool {
	return i >= 0 && i < Count
}

func (i Index) String() string {
	if !i.Valid() {
		return fmt.Sprintf("param(%d)", int(i))
	}
	return names[i]
}

// MaxValue is the largest millisecond count a time.Duration can hold.
const MaxValue = int64(math.MaxInt64 / int64(time.Millisecond))

// Values is the raw parameter table, indexed by Index.
type Values [Count]int64

// Param is one entry of a Describe report.
type Param struct {
	Index Index
	Name  string
	Value int64
}

// Store persists the parameter table.
type Store interface {
	// Load returns the persisted table. ok is false if nothing has been saved yet.
	Load(ctx context.Context) (vals Values, ok bool, err error)

	// Save replaces the persisted table.
	Save(ctx context.Context, vals Values) error
}

// Params is the live parameter table. It is owned by the control loop and
// is not safe for concurrent use.
type Params struct {
	vals  Values
	store Store
}

// New returns a table holding the defaults, persisting through store.
// A nil store keeps the table in memory only.
func New(store Store) *Params {
	return &Params{vals: Defaults, store: store}
}

// Load populates the table from the store. Missing or invalid persisted
// data falls back to the defaults, which are then written back.
func (p *Params) Load(ctx context.Context) error {
	p.vals = Defaults
	if p.store == nil {
		return nil
	}

	vals, ok, err := p.store.Load(ctx)
	switch {
	case errors.Is(err, ErrCorrupt):
		log.Warnf("params: %v, restoring defaults", err)
	case err != nil:
		return fmt.Errorf("load params: %w", err)
	case !ok:
		log.Printf("params: no persisted table, using defaults")
	case !vals.valid():
		log.Warnf("params: persisted table has out-of-range values, restoring defaults")
	default:
		p.vals = vals
		return nil
	}
	return p.persist(ctx)
}

// Set writes a single parameter and persists the table. An out-of-range
// index or a negative value leaves the table untouched.
func (p *Params) Set(ctx context.Context, i Index, value int64) error {
	if !i.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, int(i))
	}
	if value < 0 {
		return fmt.Errorf("%w: %s=%d", ErrNegativeValue, i, value)
	}
	if value > MaxValue {
		return fmt.Errorf("%w: %s=%d", ErrValueTooLarge, i, value)
	}
	p.vals[i] = value
	if err := p.persist(ctx); err != nil {
		// Live value stays; persistence failures are reported, not fatal.
		log.Warnf("params: %v", err)
	}
	return nil
}

// Reset restores every parameter to its default and persists the table.
func (p *Params) Reset(ctx context.Context) error {
	p.vals = Defaults
	return p.persist(ctx)
}

// Describe returns a snapshot of every parameter in index order.
func (p *Params) Describe() []Param {
	out := make([]Param, Count)
	for i := range p.vals {
		out[i] = Param{Index: Index(i), Name: names[i], Value: p.vals[i]}
	}
	return out
}

// Values returns a copy of the raw table.
func (p *Params) Values() Values {
	return p.vals
}

// Get returns the raw value of one parameter; invalid indices yield 0.
func (p *Params) Get(i Index) int64 {
	if !i.Valid() {
		return 0
	}
	return p.vals[i]
}

// Interval returns a millisecond parameter as a duration.
func (p *Params) Interval(i Index) time.Duration {
	return time.Duration(p.Get(i)) * time.Millisecond
}

func (p *Params) persist(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(ctx, p.vals); err != nil {
		return fmt.Errorf("save params: %w", err)
	}
	return nil
}

func (v Values) valid() bool {
	for _, x := range v {
		if x < 0 || x > MaxValue {
			return false
		}
	}
	return true
}
