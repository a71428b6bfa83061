package seasonal

import (
	"testing"
	"time"

	"github.com/kedastral/forecastcore/pkg/forecast/series"
)

func makeSeries(t *testing.T, values []float64) series.TimeSeries {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stamps := make([]time.Time, len(values))
	for i := range values {
		stamps[i] = base.Add(time.Duration(i) * time.Hour)
	}
	ts, err := series.New("x", stamps, values)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestSeasonalESOnRepeatingPattern(t *testing.T) {
	values := []float64{}
	for c := 0; c < 4; c++ {
		values = append(values, 1, 2, 3, 4)
	}
	ts := makeSeries(t, values)
	fit, err := SeasonalES(ts, 4, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := fit.Forecast(ts, 4, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Point) != 4 {
		t.Fatalf("expected 4 points, got %d", len(fc.Point))
	}
}

func TestSeasonalWindowAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4}
	ts := makeSeries(t, values)
	fit, err := SeasonalWindowAverage(ts, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := fit.Forecast(ts, 4, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 4}
	for i, v := range fc.Point {
		if v != want[i] {
			t.Fatalf("point[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestSeasonalRejectsShortHistory(t *testing.T) {
	ts := makeSeries(t, []float64{1, 2, 3})
	if _, err := SeasonalES(ts, 4, 0.5); err == nil {
		t.Fatal("expected error for insufficient seasonal history")
	}
}
