package analytics

import (
	"math"
	"testing"
)

func TestKalman1D_SteadyState(t *testing.T) {
	out := Kalman1D([]float64{1, 2, 3}, 1e-4, 1e-2)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	want := 1.27632602
	if diff := math.Abs(out[2] - want); diff > 1e-6 {
		t.Errorf("out[2] = %v, want %v (diff %v)", out[2], want, diff)
	}
}

func TestKalman1D_ConstantSeriesIsUnchanged(t *testing.T) {
	series := []float64{5, 5, 5, 5, 5}
	out := Kalman1D(series, 1e-3, 1e-2)
	for i, v := range out {
		if diff := math.Abs(v - 5); diff > 1e-9 {
			t.Errorf("out[%d] = %v, want 5 (diff %v)", i, v, diff)
		}
	}
}

func TestKalman1D_Empty(t *testing.T) {
	out := Kalman1D(nil, 1e-4, 1e-2)
	if len(out) != 0 {
		t.Errorf("Kalman1D(nil) = %v, want empty", out)
	}
}
