// Package dsp provides the primitive signal toolkit shared by the
// generators: band-unlimited oscillators, biquad filters, fractional
// table interpolation and buffer measurement helpers.
package dsp

import (
	"fmt"
	"math"
	"math/rand"
)

// Waveform selects an oscillator shape. Phase is expressed in cycles,
// so a full period spans [0,1).
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
	WaveNoise
)

// ParseWaveform maps a preset string to a Waveform.
func ParseWaveform(s string) (Waveform, error) {
	switch s {
	case "sine":
		return WaveSine, nil
	case "saw":
		return WaveSaw, nil
	case "square":
		return WaveSquare, nil
	case "tri", "triangle":
		return WaveTriangle, nil
	case "noise":
		return WaveNoise, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveSaw:
		return "saw"
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	case WaveNoise:
		return "noise"
	}
	return "unknown"
}

// Sample evaluates the waveform at the given phase (in cycles).
// The output lies in [-1,1]. Noise ignores the phase and draws from
// rng; rng may be nil for the deterministic shapes.
func (w Waveform) Sample(phase float64, rng *rand.Rand) float64 {
	switch w {
	case WaveSine:
		return math.Sin(2 * math.Pi * phase)
	case WaveSaw:
		return math.Mod(math.Mod(2*phase+1, 2)+2, 2) - 1
	case WaveSquare:
		s := math.Mod(math.Mod(2*phase+1, 2)+2, 2) - 1
		if s < 0 {
			return -1
		}
		return 1
	case WaveTriangle:
		return 1 - math.Abs(math.Mod(math.Mod(4*phase+1, 4)+4, 4)-2)
	case WaveNoise:
		return 2*rng.Float64() - 1
	}
	return 0
}

// Biquad implements a second-order IIR filter (no heap allocations in
// Process). Coefficients can be swapped mid-stream without resetting
// the state, which is how cutoff sweeps are rendered.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64 // input history
	y1, y2 float64 // output history
}

// NewLowpass creates a lowpass biquad at the given cutoff in Hz.
func NewLowpass(cutoff, sampleRate, q float64) *Biquad {
	b := &Biquad{}
	b.SetLowpass(cutoff, sampleRate, q)
	return b
}

// NewHighpass creates a highpass biquad at the given cutoff in Hz.
func NewHighpass(cutoff, sampleRate, q float64) *Biquad {
	b := &Biquad{}
	b.SetHighpass(cutoff, sampleRate, q)
	return b
}

// SetLowpass recomputes the coefficients for a lowpass response,
// preserving the filter state.
func (b *Biquad) SetLowpass(cutoff, sampleRate, q float64) {
	w0 := 2 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	b.b0 = (1 - cosw0) / 2 / a0
	b.b1 = (1 - cosw0) / a0
	b.b2 = (1 - cosw0) / 2 / a0
	b.a1 = -2 * cosw0 / a0
	b.a2 = (1 - alpha) / a0
}

// SetHighpass recomputes the coefficients for a highpass response,
// preserving the filter state.
func (b *Biquad) SetHighpass(cutoff, sampleRate, q float64) {
	w0 := 2 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	b.b0 = (1 + cosw0) / 2 / a0
	b.b1 = -(1 + cosw0) / a0
	b.b2 = (1 + cosw0) / 2 / a0
	b.a1 = -2 * cosw0 / a0
	b.a2 = (1 - alpha) / a0
}

// Process filters one sample (Direct Form I).
func (b *Biquad) Process(input float64) float64 {
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return FlushDenormals(output)
}

// Reset clears the filter state.
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// CubicInterp reads a table at a fractional position using cubic
// Lagrange interpolation between the two middle points of a four-point
// neighbourhood. Positions outside the table return 0.
func CubicInterp(table []float64, pos float64) float64 {
	if pos < 0 || pos > float64(len(table)-1) || len(table) == 0 {
		return 0
	}
	i := int(pos)
	frac := pos - float64(i)

	s0 := tableAt(table, i-1)
	s1 := table[i]
	s2 := tableAt(table, i+1)
	s3 := tableAt(table, i+2)

	c0 := s1
	c1 := s2 - s0/3 - s1/2 - s3/6
	c2 := s0/2 - s1 + s2/2
	c3 := s1/2 - s2/2 + (s3-s0)/6

	return c0 + frac*(c1+frac*(c2+frac*c3))
}

func tableAt(table []float64, i int) float64 {
	if i < 0 || i >= len(table) {
		return 0
	}
	return table[i]
}

// Peak returns the largest absolute sample value.
func Peak(x []float64) float64 {
	var peak float64
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root-mean-square level of the buffer.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Normalize scales the buffer in place so its peak equals target.
// Silent buffers are left untouched.
func Normalize(x []float64, target float64) {
	peak := Peak(x)
	if peak <= 0 {
		return
	}
	g := target / peak
	for i := range x {
		x[i] *= g
	}
}

// Hann fills a window of length n with Hann coefficients.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
