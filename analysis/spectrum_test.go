package analysis

import (
	"math"
	"testing"
)

func sine(freq, amp float64, rate int, seconds float64) []float64 {
	n := int(seconds * float64(rate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func TestAnalyzeSine(t *testing.T) {
	const rate = 44100
	x := sine(440, 0.8, rate, 2)

	r, err := Analyze(x, rate)
	if err != nil {
		t.Fatal(err)
	}
	binHz := float64(rate) / fftSize
	if math.Abs(r.DominantHz-440) > binHz {
		t.Errorf("DominantHz = %g, want 440 within one bin (%g)", r.DominantHz, binHz)
	}
	if math.Abs(r.Peak-0.8) > 1e-6 {
		t.Errorf("Peak = %g, want 0.8", r.Peak)
	}
	want := 0.8 / math.Sqrt2
	if math.Abs(r.RMS-want) > 1e-3 {
		t.Errorf("RMS = %g, want %g", r.RMS, want)
	}
}

func TestBandPowerConcentrated(t *testing.T) {
	const rate = 44100
	x := sine(440, 0.8, rate, 1)

	bass, err := BandPowerDB(x, rate, 300, 1000)
	if err != nil {
		t.Fatal(err)
	}
	high, err := BandPowerDB(x, rate, 6000, 12000)
	if err != nil {
		t.Fatal(err)
	}
	if bass-high < 40 {
		t.Errorf("band separation = %g dB, want a 440 Hz tone concentrated in low-mid (bass=%g high=%g)", bass-high, bass, high)
	}
}

func TestAnalyzeShortBuffer(t *testing.T) {
	x := sine(1000, 0.5, 44100, 0.02) // shorter than one FFT frame
	r, err := Analyze(x, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.DominantHz-1000) > 3*float64(44100)/fftSize {
		t.Errorf("DominantHz = %g on padded frame", r.DominantHz)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := Analyze(nil, 44100); err == nil {
		t.Error("empty buffer: expected error")
	}
	if _, err := Analyze([]float64{1}, 0); err == nil {
		t.Error("zero rate: expected error")
	}
}

func TestDecaySlopeNegativeForDecayingTone(t *testing.T) {
	const rate = 44100
	x := sine(440, 0.8, rate, 2)
	for i := range x {
		x[i] *= math.Exp(-3 * float64(i) / rate)
	}
	r, err := Analyze(x, rate)
	if err != nil {
		t.Fatal(err)
	}
	// 3 nepers/s is about -26 dB/s
	if math.IsNaN(r.DecayDBPerS) || r.DecayDBPerS > -15 || r.DecayDBPerS < -40 {
		t.Errorf("DecayDBPerS = %g, want near -26", r.DecayDBPerS)
	}
}
