// Package tsgen extrapolates future timestamps from a fitted series'
// detected sampling interval, the way pkg/adapters.AlignTimestamp rounds
// collection timestamps onto a step grid in the teacher.
package tsgen

import (
	"fmt"
	"time"

	"github.com/kedastral/forecastcore/pkg/forecast/series"
)

// Generate returns h future timestamps following ts's last observation,
// spaced by ts's median interval.
func Generate(ts series.TimeSeries, h int) ([]time.Time, error) {
	if h <= 0 {
		return nil, fmt.Errorf("tsgen: horizon must be positive")
	}
	if ts.Len() == 0 {
		return nil, fmt.Errorf("tsgen: empty series")
	}
	interval, err := ts.MedianInterval()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("tsgen: non-positive median interval")
	}
	last := ts.Timestamps[len(ts.Timestamps)-1]
	out := make([]time.Time, h)
	for i := 1; i <= h; i++ {
		out[i-1] = last.Add(interval * time.Duration(i))
	}
	return out, nil
}
