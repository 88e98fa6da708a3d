package level

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sweeney/hydro-controller/internal/logic"
)

// IIOReader reads raw ADC values from Linux industrial-I/O sysfs files,
// e.g. /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOReader struct {
	Paths [logic.NumZones]string
}

// Read returns the raw value of the zone's ADC channel. An empty path reads as 0.
func (r IIOReader) Read(zone logic.Zone) (float64, error) {
	if !zone.Valid() {
		return 0, fmt.Errorf("level: invalid zone %d", int(zone))
	}
	path := r.Paths[zone]
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
