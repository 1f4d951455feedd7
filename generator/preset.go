package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/james-trayford/strauss/bank"
	"github.com/james-trayford/strauss/dsp"
	"github.com/james-trayford/strauss/envelope"
)

// FilterType selects the filter response.
type FilterType string

const (
	FilterLowpass  FilterType = "LPF1"
	FilterHighpass FilterType = "HPF1"
)

// NoteLength is a preset note length: a duration in seconds, or the
// literal "sample" asking the sampler to play each asset's natural
// length.
type NoteLength struct {
	Sample  bool
	Seconds float64
}

func (n NoteLength) MarshalJSON() ([]byte, error) {
	if n.Sample {
		return json.Marshal("sample")
	}
	return json.Marshal(n.Seconds)
}

func (n *NoteLength) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "sample" {
			return fmt.Errorf("note_length must be a number or \"sample\", got %q", s)
		}
		*n = NoteLength{Sample: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("note_length must be a number or \"sample\"")
	}
	*n = NoteLength{Seconds: v}
	return nil
}

// Phase is an oscillator start phase in cycles, or "random".
type Phase struct {
	Random bool
	Cycles float64
}

func (p Phase) MarshalJSON() ([]byte, error) {
	if p.Random {
		return json.Marshal("random")
	}
	return json.Marshal(p.Cycles)
}

func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "random" {
			return fmt.Errorf("phase must be a number or \"random\", got %q", s)
		}
		*p = Phase{Random: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("phase must be a number or \"random\"")
	}
	*p = Phase{Cycles: v}
	return nil
}

// EnvelopeSettings is the JSON face of an ADSR contour.
type EnvelopeSettings struct {
	A     float64 `json:"A"`
	D     float64 `json:"D"`
	S     float64 `json:"S"`
	R     float64 `json:"R"`
	Ac    float64 `json:"Ac"`
	Dc    float64 `json:"Dc"`
	Rc    float64 `json:"Rc"`
	Level float64 `json:"level"`
}

func (e EnvelopeSettings) adsr() envelope.ADSR {
	return envelope.ADSR{A: e.A, D: e.D, S: e.S, R: e.R, Ac: e.Ac, Dc: e.Dc, Rc: e.Rc, Level: e.Level}
}

func (e EnvelopeSettings) validate() error {
	if err := e.adsr().Validate(); err != nil {
		return configErrorf("%v", err)
	}
	return nil
}

// LFOSettings configures a pitch or volume LFO.
type LFOSettings struct {
	Use       bool    `json:"use"`
	Wave      string  `json:"wave"`
	Amount    float64 `json:"amount"`
	Freq      float64 `json:"freq"`
	FreqShift float64 `json:"freq_shift"` // octaves
	Phase     Phase   `json:"phase"`

	A     float64 `json:"A"`
	D     float64 `json:"D"`
	S     float64 `json:"S"`
	R     float64 `json:"R"`
	Ac    float64 `json:"Ac"`
	Dc    float64 `json:"Dc"`
	Rc    float64 `json:"Rc"`
	Level float64 `json:"level"`
}

func (l LFOSettings) lfo() (envelope.LFO, error) {
	wave, err := dsp.ParseWaveform(l.Wave)
	if err != nil {
		return envelope.LFO{}, configErrorf("lfo: %v", err)
	}
	out := envelope.LFO{
		Wave:        wave,
		Amount:      l.Amount,
		Freq:        l.Freq * math.Pow(2, l.FreqShift),
		Phase:       l.Phase.Cycles,
		RandomPhase: l.Phase.Random,
		Env:         envelope.ADSR{A: l.A, D: l.D, S: l.S, R: l.R, Ac: l.Ac, Dc: l.Dc, Rc: l.Rc, Level: l.Level},
	}
	if err := out.Validate(); err != nil {
		return envelope.LFO{}, configErrorf("lfo: %v", err)
	}
	return out, nil
}

func (l LFOSettings) validate() error {
	if !l.Use {
		return nil
	}
	_, err := l.lfo()
	return err
}

// FilterSettings configures the optional per-note filter. Cutoff is
// normalised to [0,1] and mapped logarithmically to 20 Hz .. 22.05 kHz.
type FilterSettings struct {
	On     bool       `json:"on"`
	Type   FilterType `json:"type"`
	Cutoff float64    `json:"cutoff"`
}

func (f FilterSettings) validate() error {
	if !f.On {
		return nil
	}
	if f.Type != FilterLowpass && f.Type != FilterHighpass {
		return configErrorf("filter type must be %q or %q, got %q", FilterLowpass, FilterHighpass, f.Type)
	}
	if f.Cutoff < 0 || f.Cutoff > 1 {
		return configErrorf("filter cutoff must be in [0,1], got %g", f.Cutoff)
	}
	return nil
}

// Preset holds the parameters common to every generator kind.
type Preset struct {
	NoteLength     NoteLength       `json:"note_length"`
	Volume         float64          `json:"volume"`
	PitchShift     float64          `json:"pitch_shift"`
	Azimuth        float64          `json:"azimuth"` // cycles
	Polar          float64          `json:"polar"`   // half-cycles
	VolumeEnvelope EnvelopeSettings `json:"volume_envelope"`
	PitchLFO       LFOSettings      `json:"pitch_lfo"`
	VolumeLFO      LFOSettings      `json:"volume_lfo"`
	Filter         FilterSettings   `json:"filter"`
}

// DefaultPreset returns the common defaults shared by all kinds: one
// second notes at full volume, a click-free envelope, no modulation.
func DefaultPreset() Preset {
	return Preset{
		NoteLength:     NoteLength{Seconds: 1},
		Volume:         1,
		Polar:          0.5,
		VolumeEnvelope: EnvelopeSettings{A: 0.005, D: 0.1, S: 1, R: 0.05, Level: 1},
		PitchLFO:       defaultLFOSettings(),
		VolumeLFO:      defaultLFOSettings(),
		Filter:         FilterSettings{Type: FilterLowpass, Cutoff: 1},
	}
}

func defaultLFOSettings() LFOSettings {
	return LFOSettings{Wave: "sine", Amount: 0.5, Freq: 3, S: 1, Level: 1}
}

// Validate reports the first invalid common field.
func (c *Preset) Validate() error {
	if !c.NoteLength.Sample && c.NoteLength.Seconds <= 0 {
		return configErrorf("note_length must be > 0 seconds, got %g", c.NoteLength.Seconds)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return configErrorf("volume must be in [0,1], got %g", c.Volume)
	}
	if c.PitchShift < -maxPitchShift || c.PitchShift > maxPitchShift {
		return configErrorf("pitch_shift must be in [-%d,%d] semitones, got %g", maxPitchShift, maxPitchShift, c.PitchShift)
	}
	if c.Polar < 0 || c.Polar > 1 {
		return configErrorf("polar must be in [0,1], got %g", c.Polar)
	}
	if err := c.VolumeEnvelope.validate(); err != nil {
		return fmt.Errorf("volume_envelope: %w", err)
	}
	if err := c.PitchLFO.validate(); err != nil {
		return fmt.Errorf("pitch_lfo: %w", err)
	}
	if err := c.VolumeLFO.validate(); err != nil {
		return fmt.Errorf("volume_lfo: %w", err)
	}
	return c.Filter.validate()
}

// noteLength resolves the effective held length for a note in
// seconds. naturalLen substitutes for "sample" presets; it is the
// asset's natural duration in the sampler and the preset default
// elsewhere.
func (c *Preset) noteLength(p *ParamSet, naturalLen float64) float64 {
	if p.NoteLength > 0 {
		return p.NoteLength
	}
	if c.NoteLength.Sample {
		return naturalLen
	}
	return c.NoteLength.Seconds
}

// OscSettings is one additive oscillator of a Synth preset. Detune is
// a percentage offset on the note frequency; levels are normalised
// across the stack at render time.
type OscSettings struct {
	Form   string  `json:"form"`
	Level  float64 `json:"level"`
	Detune float64 `json:"detune"`
	Phase  Phase   `json:"phase"`
}

// SynthPreset configures the additive synthesiser.
type SynthPreset struct {
	Preset
	Oscillators []OscSettings `json:"oscillators"`
	Note        string        `json:"note"`
}

// DefaultSynthPreset is a single plain sine voice at A4.
func DefaultSynthPreset() SynthPreset {
	return SynthPreset{
		Preset:      DefaultPreset(),
		Oscillators: []OscSettings{{Form: "sine", Level: 1}},
		Note:        "A4",
	}
}

// Validate reports the first invalid field.
func (c *SynthPreset) Validate() error {
	if err := c.Preset.Validate(); err != nil {
		return err
	}
	if len(c.Oscillators) == 0 {
		return configErrorf("synth preset needs at least one oscillator")
	}
	for i, osc := range c.Oscillators {
		if _, err := dsp.ParseWaveform(osc.Form); err != nil {
			return configErrorf("oscillator %d: %v", i, err)
		}
		if osc.Level < 0 {
			return configErrorf("oscillator %d: level must be >= 0, got %g", i, osc.Level)
		}
		if osc.Detune <= -100 {
			return configErrorf("oscillator %d: detune must be > -100%%, got %g", i, osc.Detune)
		}
	}
	return nil
}

// SamplerPreset configures bank sample playback. Loop bounds of 0
// fall back to the asset's own loop points.
type SamplerPreset struct {
	Preset
	Looping   string  `json:"looping"`
	LoopStart float64 `json:"loop_start"` // seconds
	LoopEnd   float64 `json:"loop_end"`   // seconds
}

// DefaultSamplerPreset plays each asset once at natural length.
func DefaultSamplerPreset() SamplerPreset {
	p := SamplerPreset{Preset: DefaultPreset(), Looping: "off"}
	p.NoteLength = NoteLength{Sample: true}
	return p
}

// Validate reports the first invalid field.
func (c *SamplerPreset) Validate() error {
	if err := c.Preset.Validate(); err != nil {
		return err
	}
	mode, err := bank.ParseLoopMode(c.Looping)
	if err != nil {
		return configErrorf("%v", err)
	}
	if c.LoopStart < 0 || c.LoopEnd < 0 {
		return configErrorf("loop bounds must be >= 0 seconds")
	}
	if mode != bank.LoopOff && c.LoopEnd > 0 && c.LoopStart >= c.LoopEnd {
		return configErrorf("loop_start %g must precede loop_end %g", c.LoopStart, c.LoopEnd)
	}
	return nil
}

// Spectrum interpolation modes.
const (
	InterpSample        = "sample"
	InterpPreservePower = "preserve_power"
)

// SpectralPreset configures the spectrum inverter.
type SpectralPreset struct {
	Preset
	MinFreq                    float64 `json:"min_freq"`
	MaxFreq                    float64 `json:"max_freq"`
	InterpolationType          string  `json:"interpolation_type"`
	RegenPhases                bool    `json:"regen_phases"`
	FitSpecMultiples           bool    `json:"fit_spec_multiples"`
	EqualLoudnessNormalisation bool    `json:"equal_loudness_normalisation"`
}

// DefaultSpectralPreset spreads spectra over the audible band.
func DefaultSpectralPreset() SpectralPreset {
	return SpectralPreset{
		Preset:            DefaultPreset(),
		MinFreq:           50,
		MaxFreq:           2000,
		InterpolationType: InterpSample,
	}
}

// Validate reports the first invalid field.
func (c *SpectralPreset) Validate() error {
	if err := c.Preset.Validate(); err != nil {
		return err
	}
	if c.MinFreq <= 0 || c.MaxFreq <= c.MinFreq {
		return configErrorf("spectral band must satisfy 0 < min_freq < max_freq, got [%g, %g]", c.MinFreq, c.MaxFreq)
	}
	if c.InterpolationType != InterpSample && c.InterpolationType != InterpPreservePower {
		return configErrorf("interpolation_type must be %q or %q, got %q", InterpSample, InterpPreservePower, c.InterpolationType)
	}
	return nil
}

// applyJSON overlays a partial JSON document onto a preset, then
// revalidates. Unknown keys are rejected.
func applyJSON(data []byte, v interface{ Validate() error }) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return configErrorf("preset: %v", err)
	}
	return v.Validate()
}
