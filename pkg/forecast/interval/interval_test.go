package interval

import (
	"testing"

	"github.com/kedastral/forecastcore/pkg/forecast/result"
)

func TestParseConfidenceLevelDecimal(t *testing.T) {
	v, err := ParseConfidenceLevel("0.9")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0.9 {
		t.Fatalf("expected 0.9, got %v", v)
	}
}

func TestParseConfidenceLevelPNotation(t *testing.T) {
	v, err := ParseConfidenceLevel("p95")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0.95 {
		t.Fatalf("expected 0.95, got %v", v)
	}
}

func TestParseConfidenceLevelRejectsBoundary(t *testing.T) {
	if _, err := ParseConfidenceLevel("1.0"); err == nil {
		t.Fatal("expected error for confidence_level == 1.0")
	}
	if _, err := ParseConfidenceLevel("0"); err == nil {
		t.Fatal("expected error for confidence_level == 0")
	}
}

func TestApplyGrowsWithHorizon(t *testing.T) {
	fc := result.Forecast{Point: []float64{10, 10, 10}, ConfidenceLevel: 0.95}
	if err := Apply(&fc, 1.0, false, LinearGrowth); err != nil {
		t.Fatal(err)
	}
	w0 := fc.Upper[0] - fc.Lower[0]
	w2 := fc.Upper[2] - fc.Lower[2]
	if w2 <= w0 {
		t.Fatalf("expected interval to widen with horizon: w0=%v w2=%v", w0, w2)
	}
}

func TestApplyMultiplicativeKeepsPositiveBounds(t *testing.T) {
	fc := result.Forecast{Point: []float64{5, 5}, ConfidenceLevel: 0.9}
	if err := Apply(&fc, 0.5, true, LinearGrowth); err != nil {
		t.Fatal(err)
	}
	for _, v := range fc.Lower {
		if v <= 0 {
			t.Fatalf("expected strictly positive lower bound, got %v", v)
		}
	}
}

func TestApplyZeroResidualStdDevCollapsesToPoint(t *testing.T) {
	fc := result.Forecast{Point: []float64{10, 10, 10}, ConfidenceLevel: 0.9}
	if err := Apply(&fc, 0, false, LinearGrowth); err != nil {
		t.Fatal(err)
	}
	for i, p := range fc.Point {
		if fc.Lower[i] != p || fc.Upper[i] != p {
			t.Fatalf("step %d: expected lower=upper=point=%v, got lower=%v upper=%v", i, p, fc.Lower[i], fc.Upper[i])
		}
	}
}

func TestDriftGrowthExceedsLinearGrowth(t *testing.T) {
	g := DriftGrowth(10)
	if g(5) <= LinearGrowth(5) {
		t.Fatalf("expected drift growth to exceed linear growth at h=5, got %v vs %v", g(5), LinearGrowth(5))
	}
}
