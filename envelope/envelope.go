// Package envelope implements the amplitude contour applied to every
// rendered note (ADSR with per-stage curvature) and the low-frequency
// oscillator used for pitch and volume modulation.
package envelope

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/james-trayford/strauss/dsp"
)

// ADSR is an attack/decay/sustain/release contour. Stage times are in
// seconds and curvatures in [-1,1]: 0 is the rational mid curve,
// positive values bow towards the target, negative values away.
type ADSR struct {
	A  float64 // attack time
	D  float64 // decay time
	S  float64 // sustain level
	R  float64 // release time
	Ac float64 // attack curvature
	Dc float64 // decay curvature
	Rc float64 // release curvature

	Level float64 // overall gain applied to the contour
}

// Default returns the contour used when a preset leaves the envelope
// unspecified: near-instant attack, full sustain, short release.
func Default() ADSR {
	return ADSR{A: 0.01, D: 0.1, S: 1, R: 0.05, Level: 1}
}

// Validate reports the first invalid field.
func (e ADSR) Validate() error {
	if e.A < 0 || e.D < 0 || e.R < 0 {
		return fmt.Errorf("envelope stage times must be >= 0 (A=%g D=%g R=%g)", e.A, e.D, e.R)
	}
	if e.S < 0 || e.S > 1 {
		return fmt.Errorf("envelope sustain must be in [0,1], got %g", e.S)
	}
	for _, c := range []struct {
		name string
		v    float64
	}{{"Ac", e.Ac}, {"Dc", e.Dc}, {"Rc", e.Rc}} {
		if c.v < -1 || c.v > 1 {
			return fmt.Errorf("envelope curvature %s must be in [-1,1], got %g", c.name, c.v)
		}
	}
	if e.Level < 0 || e.Level > 1 {
		return fmt.Errorf("envelope level must be in [0,1], got %g", e.Level)
	}
	return nil
}

// Amplitude evaluates the contour at time t for a note held for
// noteLength seconds. Before 0 and past noteLength+R it returns 0.
// Zero-length stages collapse to their target value.
func (e ADSR) Amplitude(t, noteLength float64) float64 {
	if t < 0 {
		return 0
	}
	if t >= noteLength {
		if t >= noteLength+e.R {
			return 0
		}
		off := e.held(noteLength)
		return segmentCurve(t-noteLength, e.R, off, e.Rc) * e.Level
	}
	return e.held(t) * e.Level
}

// held evaluates the pre-release contour (attack, decay or sustain).
func (e ADSR) held(t float64) float64 {
	switch {
	case t < e.A:
		return 1 - segmentCurve(t, e.A, 1, -e.Ac)
	case t < e.A+e.D:
		return e.S + segmentCurve(t-e.A, e.D, 1-e.S, e.Dc)
	default:
		return e.S
	}
}

// segmentCurve traces a monotone path from y0 at t=0 to 0 at t=t1.
// k in (-1,1) bends the path; k=0 gives the hyperbolic mid curve.
func segmentCurve(t, t1, y0, k float64) float64 {
	if t1 <= 0 || t >= t1 {
		return 0
	}
	if t <= 0 {
		return y0
	}
	k = dsp.Clip(k, -1+1e-9, 1-1e-9)
	return y0 / (1 + (1-k)*t/((1+k)*(t1-t)))
}

// LFO is a low-frequency oscillator shaped by its own ADSR contour.
// Frequency shift modulation is expressed in octaves and integrated
// sample by sample, so a sweeping shift bends the oscillator rate
// rather than jumping its phase.
type LFO struct {
	Wave        dsp.Waveform
	Amount      float64 // peak modulation depth
	Freq        float64 // Hz
	Phase       float64 // cycles; ignored when RandomPhase is set
	RandomPhase bool
	Env         ADSR
}

// Validate reports the first invalid field.
func (l LFO) Validate() error {
	if l.Freq <= 0 {
		return fmt.Errorf("lfo frequency must be > 0, got %g", l.Freq)
	}
	if l.Amount < 0 {
		return fmt.Errorf("lfo amount must be >= 0, got %g", l.Amount)
	}
	if l.Phase < 0 || l.Phase > 1 {
		return fmt.Errorf("lfo phase must be in [0,1] cycles, got %g", l.Phase)
	}
	return l.Env.Validate()
}

// Render fills out with the modulation stream at the given sample
// rate. amountAt and freqShiftAt override the constant Amount and a
// zero frequency shift when non-nil; freqShiftAt returns octaves.
// rng seeds random phase and the noise waveform and may be nil when
// neither is used.
func (l LFO) Render(out []float64, rate, noteLength float64, amountAt, freqShiftAt func(i int) float64, rng *rand.Rand) {
	phase := l.Phase
	if l.RandomPhase {
		phase = rng.Float64()
	}
	var eff float64
	for i := range out {
		t := float64(i) / rate
		amt := l.Amount
		if amountAt != nil {
			amt = amountAt(i)
		}
		out[i] = amt * l.Env.Amplitude(t, noteLength) * l.Wave.Sample(eff*l.Freq/rate+phase, rng)
		step := 1.0
		if freqShiftAt != nil {
			step = math.Pow(2, freqShiftAt(i))
		}
		eff += step
	}
}
