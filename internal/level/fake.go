package level

import "github.com/sweeney/hydro-controller/internal/logic"

// FakeReader is a test double returning fixed raw levels.
type FakeReader struct {
	Values [logic.NumZones]float64

	// Err, if set, is returned for every read.
	Err error

	// Reads counts Read calls.
	Reads int
}

// Read returns the configured value for the zone.
func (f *FakeReader) Read(zone logic.Zone) (float64, error) {
	f.Reads++
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Values[zone], nil
}
