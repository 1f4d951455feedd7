// Package generator renders single notes to mono buffers. Three
// generator kinds share the same modulation pipeline (volume envelope,
// pitch and volume LFOs, filter): Synth builds notes additively from
// oscillators, Sampler plays pitched assets from an instrument bank,
// and Spectraliser inverts a supplied spectrum into audio.
package generator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/james-trayford/strauss/dsp"
	"github.com/james-trayford/strauss/notes"
)

// ConfigError reports an invalid preset or parameter value. It is
// returned eagerly, at construction or modification time, never from
// the render path.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Value is a parameter that is either constant or evolves across the
// held note as a series sampled at evenly spaced fractions of the
// note length.
type Value struct {
	series []float64
}

// Const returns a Value fixed at v.
func Const(v float64) Value { return Value{series: []float64{v}} }

// Series returns a Value that sweeps through vs over the note.
func Series(vs []float64) Value {
	return Value{series: append([]float64(nil), vs...)}
}

// IsSet reports whether the value carries any data. The zero Value is
// unset and callers substitute their default.
func (v Value) IsSet() bool { return len(v.series) > 0 }

// Evolves reports whether the value changes over the note.
func (v Value) Evolves() bool { return len(v.series) > 1 }

// At samples the value at a fraction of the note length, linearly
// interpolating between series points. Fractions outside [0,1] clamp
// to the endpoints.
func (v Value) At(frac float64) float64 {
	n := len(v.series)
	switch {
	case n == 0:
		return 0
	case n == 1:
		return v.series[0]
	}
	if frac <= 0 {
		return v.series[0]
	}
	if frac >= 1 {
		return v.series[n-1]
	}
	pos := frac * float64(n-1)
	i := int(pos)
	f := pos - float64(i)
	return v.series[i] + f*(v.series[i+1]-v.series[i])
}

// ParamSet carries the per-note parameter streams handed to Play.
// Series sample across the held note: fraction 0 is onset, 1 is
// note-off. Values outside a parameter's declared range are clamped
// at render time rather than rejected, since mapped data streams are
// only known per note.
type ParamSet struct {
	Note       notes.Note
	NoteLength float64 // seconds; 0 falls back to the preset

	Volume     Value // [0,1]
	PitchShift Value // semitones, clamped to [-48,48]

	// Spatial position, consumed by the channel mixer rather than the
	// generator: azimuth in cycles, polar in half-cycles.
	Azimuth Value
	Polar   Value

	FilterCutoff Value // [0,1]; unset falls back to the preset cutoff

	// Spectrum is the spectraliser input: bin magnitudes spread
	// between the preset's min and max frequencies. Spectra, when
	// non-nil, supplies an evolving sequence instead.
	Spectrum []float64
	Spectra  [][]float64
}

// Generator renders one note per Play call.
type Generator interface {
	// Play renders the note described by p into a fresh mono buffer
	// at the generator's sample rate, including the envelope release
	// tail. Render-time degradations are absorbed with a logged
	// diagnostic; only hard failures return an error.
	Play(p *ParamSet) ([]float64, error)
	SampleRate() int
}

const maxPitchShift = 48 // semitones

// renderSamples sizes a note buffer: the held note plus the release
// tail of the volume envelope.
func renderSamples(noteLength, release float64, rate int) int {
	n := int(math.Ceil((noteLength + release) * float64(rate)))
	if n < 1 {
		n = 1
	}
	return n
}

// pitchPositions integrates per-sample playback positions. The rate
// factor at sample i is baseRatio * 2^(shift_i/12 + lfo_i/12), so a
// sweeping shift bends the pitch continuously instead of jumping the
// read position.
func pitchPositions(n int, baseRatio float64, shift Value, lfo []float64, noteLength float64, rate int) []float64 {
	pos := make([]float64, n)
	var acc float64
	invLen := 1 / (noteLength * float64(rate))
	for i := 0; i < n; i++ {
		pos[i] = acc
		idx := 0.0
		if shift.IsSet() {
			idx = dsp.Clip(shift.At(float64(i)*invLen), -maxPitchShift, maxPitchShift) / 12
		}
		if lfo != nil {
			idx += lfo[i] / 12
		}
		acc += baseRatio * math.Pow(2, idx)
	}
	return pos
}

// renderPitchLFO returns the pitch modulation stream in semitones, or
// nil when the LFO is off.
func renderPitchLFO(cfg LFOSettings, n int, noteLength float64, rate int, rng *rand.Rand) ([]float64, error) {
	if !cfg.Use {
		return nil, nil
	}
	l, err := cfg.lfo()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	l.Render(out, float64(rate), noteLength, nil, nil, rng)
	return out, nil
}

// applyAmplitude shapes the raw buffer in place: volume envelope, the
// evolving volume stream, the preset volume and the volume LFO.
func applyAmplitude(buf []float64, cfg *Preset, p *ParamSet, noteLength float64, rate int, rng *rand.Rand) error {
	env := cfg.VolumeEnvelope.adsr()
	vol := p.Volume
	if !vol.IsSet() {
		vol = Const(1)
	}

	var lfo []float64
	if cfg.VolumeLFO.Use {
		l, err := cfg.VolumeLFO.lfo()
		if err != nil {
			return err
		}
		lfo = make([]float64, len(buf))
		l.Render(lfo, float64(rate), noteLength, nil, nil, rng)
	}

	invLen := 1 / (noteLength * float64(rate))
	for i := range buf {
		t := float64(i) / float64(rate)
		g := env.Amplitude(t, noteLength) * dsp.Clip(vol.At(float64(i)*invLen), 0, 1) * cfg.Volume
		if lfo != nil {
			g *= dsp.Clip(1-lfo[i]*0.5, 0, 1)
		}
		buf[i] *= g
	}
	return nil
}

// filterBlock is the coefficient update interval for cutoff sweeps.
const filterBlock = 64

// applyFilter runs the preset filter over the buffer, recomputing the
// biquad coefficients per block when the cutoff evolves.
func applyFilter(buf []float64, cfg FilterSettings, cutoff Value, noteLength float64, rate int) {
	if !cfg.On {
		return
	}
	if !cutoff.IsSet() {
		cutoff = Const(cfg.Cutoff)
	}
	var bq dsp.Biquad
	set := func(c float64) {
		hz := cutoffHz(dsp.Clip(c, 0, 1))
		if cfg.Type == FilterHighpass {
			bq.SetHighpass(hz, float64(rate), defaultQ)
		} else {
			bq.SetLowpass(hz, float64(rate), defaultQ)
		}
	}
	if !cutoff.Evolves() {
		set(cutoff.At(0))
		for i := range buf {
			buf[i] = bq.Process(buf[i])
		}
		return
	}
	invLen := 1 / (noteLength * float64(rate))
	for start := 0; start < len(buf); start += filterBlock {
		set(cutoff.At(float64(start) * invLen))
		end := start + filterBlock
		if end > len(buf) {
			end = len(buf)
		}
		for i := start; i < end; i++ {
			buf[i] = bq.Process(buf[i])
		}
	}
}

const defaultQ = 0.7071 // Butterworth

// cutoffHz maps a normalised cutoff in [0,1] logarithmically onto
// 20 Hz .. 22.05 kHz.
func cutoffHz(c float64) float64 {
	return 20 * math.Pow(22050.0/20.0, c)
}
