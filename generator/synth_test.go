package generator

import (
	"errors"
	"math"
	"testing"

	"github.com/james-trayford/strauss/notes"
)

// flatPreset is a synth preset with no modulation and a hold-at-full
// envelope, so the raw oscillator output is observable.
func flatPreset() SynthPreset {
	cfg := DefaultSynthPreset()
	cfg.NoteLength = NoteLength{Seconds: 2}
	cfg.VolumeEnvelope = EnvelopeSettings{S: 1, Level: 1}
	return cfg
}

func zeroCrossings(x []float64) int {
	n := 0
	for i := 1; i < len(x); i++ {
		if (x[i-1] < 0 && x[i] >= 0) || (x[i-1] >= 0 && x[i] < 0) {
			n++
		}
	}
	return n
}

func rmsOf(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestSynthSineTwoSeconds(t *testing.T) {
	const rate = 44100
	s, err := NewSynth(flatPreset(), rate)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := s.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 2*rate {
		t.Fatalf("buffer length %d, want %d", len(buf), 2*rate)
	}
	if got, want := rmsOf(buf), 1/math.Sqrt2; math.Abs(got-want) > 1e-3 {
		t.Errorf("RMS = %g, want %g", got, want)
	}
	// 440 Hz over 2 s crosses zero 1760 times
	if got := zeroCrossings(buf); got < 1758 || got > 1762 {
		t.Errorf("zero crossings = %d, want about 1760", got)
	}
}

func TestSynthPitchShiftOctave(t *testing.T) {
	const rate = 44100
	s, err := NewSynth(flatPreset(), rate)
	if err != nil {
		t.Fatal(err)
	}
	base, err := s.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	up, err := s.Play(&ParamSet{PitchShift: Const(12)})
	if err != nil {
		t.Fatal(err)
	}
	r := float64(zeroCrossings(up)) / float64(zeroCrossings(base))
	if math.Abs(r-2) > 0.01 {
		t.Errorf("octave shift frequency ratio = %g, want 2", r)
	}
}

func TestSynthNoteOverride(t *testing.T) {
	const rate = 44100
	s, err := NewSynth(flatPreset(), rate)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := s.Play(&ParamSet{Note: notes.Named("A5")})
	if err != nil {
		t.Fatal(err)
	}
	if got := zeroCrossings(buf); got < 3515 || got > 3525 {
		t.Errorf("zero crossings at A5 = %d, want about 3520", got)
	}
}

func TestSynthOscillatorLevelsNormalised(t *testing.T) {
	const rate = 44100
	one := flatPreset()
	two := flatPreset()
	two.Oscillators = []OscSettings{
		{Form: "sine", Level: 0.3},
		{Form: "sine", Level: 0.3},
	}
	s1, err := NewSynth(one, rate)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := NewSynth(two, rate)
	if err != nil {
		t.Fatal(err)
	}
	a, err := s1.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s2.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("identical normalised stacks differ at sample %d", i)
		}
	}
}

func TestSynthEnvelopeTail(t *testing.T) {
	const rate = 44100
	cfg := flatPreset()
	cfg.NoteLength = NoteLength{Seconds: 1}
	cfg.VolumeEnvelope = EnvelopeSettings{S: 1, R: 0.5, Level: 1}
	s, err := NewSynth(cfg, rate)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := s.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != int(1.5*rate) {
		t.Fatalf("buffer length %d, want release tail included (%d)", len(buf), int(1.5*rate))
	}
	// the tail decays towards silence
	tail := rmsOf(buf[len(buf)-rate/100:])
	held := rmsOf(buf[:rate])
	if tail > held/10 {
		t.Errorf("tail RMS %g not well below held RMS %g", tail, held)
	}
}

func TestSynthVolumeSeriesSweep(t *testing.T) {
	const rate = 44100
	s, err := NewSynth(flatPreset(), rate)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := s.Play(&ParamSet{Volume: Series([]float64{1, 0})})
	if err != nil {
		t.Fatal(err)
	}
	first := rmsOf(buf[:len(buf)/4])
	last := rmsOf(buf[3*len(buf)/4:])
	if first < 4*last {
		t.Errorf("volume sweep not falling: first %g, last %g", first, last)
	}
}

func TestSynthFilterDarkensSaw(t *testing.T) {
	const rate = 44100
	open := flatPreset()
	open.Oscillators = []OscSettings{{Form: "saw", Level: 1}}

	closed := open
	closed.Filter = FilterSettings{On: true, Type: FilterLowpass, Cutoff: 0.3}

	so, err := NewSynth(open, rate)
	if err != nil {
		t.Fatal(err)
	}
	sc, err := NewSynth(closed, rate)
	if err != nil {
		t.Fatal(err)
	}
	a, err := so.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := sc.Play(&ParamSet{})
	if err != nil {
		t.Fatal(err)
	}
	if rmsOf(b) >= rmsOf(a) {
		t.Errorf("lowpassed saw RMS %g not below open RMS %g", rmsOf(b), rmsOf(a))
	}
}

func TestSynthConfigErrors(t *testing.T) {
	cases := []SynthPreset{}

	bad := flatPreset()
	bad.Oscillators = nil
	cases = append(cases, bad)

	bad = flatPreset()
	bad.Oscillators = []OscSettings{{Form: "pulse", Level: 1}}
	cases = append(cases, bad)

	bad = flatPreset()
	bad.Volume = 1.5
	cases = append(cases, bad)

	bad = flatPreset()
	bad.NoteLength = NoteLength{Sample: true}
	cases = append(cases, bad)

	bad = flatPreset()
	bad.Filter = FilterSettings{On: true, Type: "BPF", Cutoff: 0.5}
	cases = append(cases, bad)

	for i, cfg := range cases {
		_, err := NewSynth(cfg, 44100)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("case %d: want ConfigError, got %v", i, err)
		}
	}
}

func TestSynthModifyKeepsOldOnError(t *testing.T) {
	s, err := NewSynth(flatPreset(), 44100)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Modify(func(cfg *SynthPreset) { cfg.Volume = 5 })
	if err == nil {
		t.Fatal("invalid modify accepted")
	}
	if s.Preset().Volume != 1 {
		t.Error("failed modify changed the preset")
	}
	if err := s.Modify(func(cfg *SynthPreset) { cfg.Volume = 0.5 }); err != nil {
		t.Fatal(err)
	}
	if s.Preset().Volume != 0.5 {
		t.Error("valid modify not applied")
	}
}

func TestSynthApplyJSON(t *testing.T) {
	s, err := NewSynth(flatPreset(), 44100)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyJSON([]byte(`{"volume": 0.25, "note": "C3"}`)); err != nil {
		t.Fatal(err)
	}
	if s.Preset().Volume != 0.25 || s.Preset().Note != "C3" {
		t.Errorf("overrides not applied: %+v", s.Preset())
	}

	if err := s.ApplyJSON([]byte(`{"loudness": 1}`)); err == nil {
		t.Error("unknown key accepted")
	}
	if err := s.ApplyJSON([]byte(`{"volume": 7}`)); err == nil {
		t.Error("out-of-range override accepted")
	}
	if s.Preset().Volume != 0.25 {
		t.Error("failed overlay changed the preset")
	}
}
