package generator

import (
	"math/rand"

	"github.com/james-trayford/strauss/dsp"
	"github.com/james-trayford/strauss/notes"
)

// Synth renders notes additively from a stack of detuned oscillators.
type Synth struct {
	cfg  SynthPreset
	rate int
	rng  *rand.Rand
}

// NewSynth validates the preset and returns a synth rendering at the
// given sample rate.
func NewSynth(cfg SynthPreset, rate int) (*Synth, error) {
	if rate <= 0 {
		return nil, configErrorf("sample rate must be > 0, got %d", rate)
	}
	if cfg.NoteLength.Sample {
		return nil, configErrorf(`note_length "sample" applies only to sampler presets`)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synth{cfg: cfg, rate: rate, rng: rand.New(rand.NewSource(rand.Int63()))}, nil
}

// Preset returns a copy of the active preset.
func (s *Synth) Preset() SynthPreset { return s.cfg }

// SampleRate returns the render rate in Hz.
func (s *Synth) SampleRate() int { return s.rate }

// Seed fixes the random stream used for random phases and noise
// oscillators.
func (s *Synth) Seed(seed int64) { s.rng = rand.New(rand.NewSource(seed)) }

// Modify edits the preset through fn, keeping the previous preset when
// the result does not validate.
func (s *Synth) Modify(fn func(*SynthPreset)) error {
	next := s.cfg
	next.Oscillators = append([]OscSettings(nil), s.cfg.Oscillators...)
	fn(&next)
	if next.NoteLength.Sample {
		return configErrorf(`note_length "sample" applies only to sampler presets`)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// ApplyJSON overlays a partial JSON preset document.
func (s *Synth) ApplyJSON(data []byte) error {
	next := s.cfg
	next.Oscillators = append([]OscSettings(nil), s.cfg.Oscillators...)
	if err := applyJSON(data, &next); err != nil {
		return err
	}
	if next.NoteLength.Sample {
		return configErrorf(`note_length "sample" applies only to sampler presets`)
	}
	s.cfg = next
	return nil
}

// Play renders one note.
func (s *Synth) Play(p *ParamSet) ([]float64, error) {
	hz, err := s.noteHz(p)
	if err != nil {
		return nil, err
	}
	nlen := s.cfg.noteLength(p, s.cfg.NoteLength.Seconds)
	n := renderSamples(nlen, s.cfg.VolumeEnvelope.R, s.rate)

	lfo, err := renderPitchLFO(s.cfg.PitchLFO, n, nlen, s.rate, s.rng)
	if err != nil {
		return nil, err
	}
	shift := p.PitchShift
	if !shift.IsSet() {
		shift = Const(s.cfg.PitchShift)
	}
	pos := pitchPositions(n, 1, shift, lfo, nlen, s.rate)

	var total float64
	for _, osc := range s.cfg.Oscillators {
		total += osc.Level
	}
	if total <= 0 {
		total = 1
	}

	buf := make([]float64, n)
	for _, osc := range s.cfg.Oscillators {
		wave, err := dsp.ParseWaveform(osc.Form)
		if err != nil {
			return nil, configErrorf("oscillator: %v", err)
		}
		level := osc.Level / total
		if level == 0 {
			continue
		}
		freq := hz * (1 + osc.Detune/100)
		phase0 := osc.Phase.Cycles
		if osc.Phase.Random {
			phase0 = s.rng.Float64()
		}
		step := freq / float64(s.rate)
		for i := range buf {
			buf[i] += level * wave.Sample(pos[i]*step+phase0, s.rng)
		}
	}

	if err := applyAmplitude(buf, &s.cfg.Preset, p, nlen, s.rate, s.rng); err != nil {
		return nil, err
	}
	applyFilter(buf, s.cfg.Filter, p.FilterCutoff, nlen, s.rate)
	return buf, nil
}

func (s *Synth) noteHz(p *ParamSet) (float64, error) {
	note := p.Note
	if note == (notes.Note{}) {
		note = notes.Named(s.cfg.Note)
	}
	hz, err := note.Hz()
	if err != nil {
		return 0, configErrorf("note: %v", err)
	}
	return hz, nil
}
