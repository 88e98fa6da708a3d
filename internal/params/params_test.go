package params

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	p := New(nil)
	tests := []struct {
		idx  Index
		want int64
	}{
		{FillInterval, 300000},
		{FloodInterval, 2000},
		{DrainInterval, 2000},
		{MainInterval, 20000},
		{EmptyInterval, 1800000},
		{PumpDelayInterval, 3000},
		{KeepAliveInterval, 3000},
		{DebounceInterval, 500},
		{LevelSetpoint, 200},
	}
	for _, tt := range tests {
		if got := p.Get(tt.idx); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.idx, got, tt.want)
		}
	}
	if p.Interval(FloodInterval) != 2*time.Second {
		t.Errorf("Interval(flood): got %v, want 2s", p.Interval(FloodInterval))
	}
}

func TestSetUpdatesExactlyOneField(t *testing.T) {
	ctx := context.Background()
	for i := Index(0); i < Count; i++ {
		p := New(nil)
		before := p.Values()
		if err := p.Set(ctx, i, 12345); err != nil {
			t.Fatalf("Set(%s): %v", i, err)
		}
		after := p.Values()
		for j := range after {
			if Index(j) == i {
				if after[j] != 12345 {
					t.Errorf("Set(%s): field not written, got %d", i, after[j])
				}
				continue
			}
			if after[j] != before[j] {
				t.Errorf("Set(%s) changed %s: %d -> %d", i, Index(j), before[j], after[j])
			}
		}
	}
}

func TestSetInvalidIndexLeavesTableUnchanged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := New(store)

	for _, idx := range []Index{-1, Count, 99} {
		err := p.Set(ctx, idx, 1)
		if !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("Set(%d): expected ErrInvalidIndex, got %v", idx, err)
		}
	}
	if p.Values() != Defaults {
		t.Error("table changed after invalid writes")
	}
	if store.Saves != 0 {
		t.Errorf("expected no saves, got %d", store.Saves)
	}
}

func TestSetNegativeRejected(t *testing.T) {
	p := New(nil)
	err := p.Set(context.Background(), FloodInterval, -5)
	if !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("expected ErrNegativeValue, got %v", err)
	}
	if p.Get(FloodInterval) != Defaults[FloodInterval] {
		t.Error("negative write must not mutate")
	}
}

func TestSetTooLargeRejected(t *testing.T) {
	store := NewMemoryStore()
	p := New(store)
	before := p.Values()

	err := p.Set(context.Background(), FloodInterval, MaxValue+1)
	if !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected ErrValueTooLarge, got %v", err)
	}
	if p.Values() != before {
		t.Error("oversized write must not mutate")
	}
	if store.HasSaved {
		t.Error("oversized write must not persist")
	}

	if err := p.Set(context.Background(), FloodInterval, MaxValue); err != nil {
		t.Fatalf("Set(MaxValue): %v", err)
	}
	if p.Interval(FloodInterval) <= 0 {
		t.Errorf("Interval at MaxValue: got %v, want positive", p.Interval(FloodInterval))
	}
}

func TestSetPersists(t *testing.T) {
	store := NewMemoryStore()
	p := New(store)
	if err := p.Set(context.Background(), MainInterval, 15000); err != nil {
		t.Fatal(err)
	}
	if !store.HasSaved || store.Saved[MainInterval] != 15000 {
		t.Errorf("expected persisted main_interval=15000, got %+v", store.Saved)
	}
}

func TestSetKeepsValueWhenSaveFails(t *testing.T) {
	store := NewMemoryStore()
	store.SaveError = errors.New("disk full")
	p := New(store)

	if err := p.Set(context.Background(), DrainInterval, 4000); err != nil {
		t.Fatalf("persistence failure should not fail Set: %v", err)
	}
	if p.Get(DrainInterval) != 4000 {
		t.Errorf("live value: got %d, want 4000", p.Get(DrainInterval))
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := New(store)
	for i := Index(0); i < Count; i++ {
		p.Set(ctx, i, int64(i)+1)
	}

	if err := p.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Values() != Defaults {
		t.Errorf("Reset: got %+v, want defaults", p.Values())
	}
	if store.Saved != Defaults {
		t.Error("Reset should persist defaults")
	}
}

func TestLoadFromStore(t *testing.T) {
	store := NewMemoryStore()
	saved := Defaults
	saved[FloodInterval] = 7000
	store.Save(context.Background(), saved)

	p := New(store)
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Get(FloodInterval) != 7000 {
		t.Errorf("flood_interval: got %d, want 7000", p.Get(FloodInterval))
	}
}

func TestLoadAbsentWritesDefaults(t *testing.T) {
	store := NewMemoryStore()
	p := New(store)
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Values() != Defaults {
		t.Error("expected defaults")
	}
	if store.Saves != 1 {
		t.Errorf("expected defaults to be persisted once, got %d saves", store.Saves)
	}
}

func TestLoadInvalidFallsBackToDefaults(t *testing.T) {
	store := NewMemoryStore()
	bad := Defaults
	bad[PumpDelayInterval] = -1
	store.Saved, store.HasSaved = bad, true

	p := New(store)
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Values() != Defaults {
		t.Errorf("expected defaults after invalid table, got %+v", p.Values())
	}
}

func TestLoadOversizedFallsBackToDefaults(t *testing.T) {
	store := NewMemoryStore()
	bad := Defaults
	bad[KeepAliveInterval] = MaxValue + 1
	store.Saved, store.HasSaved = bad, true

	p := New(store)
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Values() != Defaults {
		t.Errorf("expected defaults after oversized table, got %+v", p.Values())
	}
}

func TestLoadError(t *testing.T) {
	store := NewMemoryStore()
	store.LoadError = errors.New("io error")
	if err := New(store).Load(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestDescribe(t *testing.T) {
	p := New(nil)
	p.Set(context.Background(), LevelSetpoint, 310)

	report := p.Describe()
	if len(report) != Count {
		t.Fatalf("expected %d entries, got %d", Count, len(report))
	}
	for i, e := range report {
		if e.Index != Index(i) {
			t.Errorf("entry %d: index %d", i, e.Index)
		}
	}
	if report[LevelSetpoint].Name != "level_setpoint" || report[LevelSetpoint].Value != 310 {
		t.Errorf("unexpected setpoint entry: %+v", report[LevelSetpoint])
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "params.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v, want empty", ok, err)
	}

	p := New(store)
	if err := p.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Set(ctx, EmptyInterval, 60000); err != nil {
		t.Fatal(err)
	}

	reloaded := New(store)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if reloaded.Get(EmptyInterval) != 60000 {
		t.Errorf("empty_interval after reload: got %d, want 60000", reloaded.Get(EmptyInterval))
	}
}

func TestSQLiteStoreCorruptFallsBack(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "params.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.ExecContext(ctx, `INSERT INTO params (idx, name, value) VALUES (0, 'fill_interval', 1)`); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	p := New(store)
	if err := p.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Values() != Defaults {
		t.Error("expected defaults for corrupt table")
	}
	if vals, ok, err := store.Load(ctx); err != nil || !ok || vals != Defaults {
		t.Errorf("defaults not rewritten: ok=%v err=%v", ok, err)
	}
}
