package generator

import (
	"math"
	"testing"
)

func TestValueAt(t *testing.T) {
	c := Const(0.4)
	for _, f := range []float64{-1, 0, 0.5, 1, 2} {
		if got := c.At(f); got != 0.4 {
			t.Errorf("Const.At(%g) = %g", f, got)
		}
	}
	if c.Evolves() {
		t.Error("constant reported as evolving")
	}

	s := Series([]float64{0, 1, 0.5})
	if !s.Evolves() || !s.IsSet() {
		t.Error("series flags wrong")
	}
	cases := map[float64]float64{
		-0.5: 0, 0: 0, 0.25: 0.5, 0.5: 1, 0.75: 0.75, 1: 0.5, 2: 0.5,
	}
	for f, want := range cases {
		if got := s.At(f); math.Abs(got-want) > 1e-12 {
			t.Errorf("Series.At(%g) = %g, want %g", f, got, want)
		}
	}

	var unset Value
	if unset.IsSet() {
		t.Error("zero Value reported as set")
	}
	if unset.At(0.5) != 0 {
		t.Error("unset Value.At != 0")
	}
}

func TestSeriesCopiesInput(t *testing.T) {
	in := []float64{1, 2}
	v := Series(in)
	in[0] = 99
	if v.At(0) != 1 {
		t.Error("Series aliased the caller's slice")
	}
}

func TestCutoffHzMapping(t *testing.T) {
	if got := cutoffHz(0); math.Abs(got-20) > 1e-9 {
		t.Errorf("cutoffHz(0) = %g, want 20", got)
	}
	if got := cutoffHz(1); math.Abs(got-22050) > 1e-6 {
		t.Errorf("cutoffHz(1) = %g, want 22050", got)
	}
	mid := cutoffHz(0.5)
	if mid < 600 || mid > 700 {
		t.Errorf("cutoffHz(0.5) = %g, want geometric midpoint near 664", mid)
	}
}

func TestPitchPositionsConstant(t *testing.T) {
	pos := pitchPositions(5, 1, Value{}, nil, 1, 100)
	for i, p := range pos {
		if math.Abs(p-float64(i)) > 1e-12 {
			t.Fatalf("unshifted position %d = %g", i, p)
		}
	}

	// +12 semitones doubles the step
	pos = pitchPositions(5, 1, Const(12), nil, 1, 100)
	for i, p := range pos {
		if math.Abs(p-2*float64(i)) > 1e-12 {
			t.Fatalf("octave-up position %d = %g", i, p)
		}
	}
}

func TestPitchPositionsClamp(t *testing.T) {
	huge := pitchPositions(10, 1, Const(1000), nil, 1, 100)
	max := pitchPositions(10, 1, Const(maxPitchShift), nil, 1, 100)
	for i := range huge {
		if huge[i] != max[i] {
			t.Fatalf("shift beyond range not clamped at sample %d", i)
		}
	}
}

func TestRenderSamples(t *testing.T) {
	if got := renderSamples(1, 0.5, 100); got != 150 {
		t.Errorf("renderSamples(1, 0.5, 100) = %d, want 150", got)
	}
	if got := renderSamples(0, 0, 100); got != 1 {
		t.Errorf("degenerate renderSamples = %d, want 1", got)
	}
}
