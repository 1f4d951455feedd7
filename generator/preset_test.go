package generator

import (
	"encoding/json"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	synth := DefaultSynthPreset()
	if err := synth.Validate(); err != nil {
		t.Errorf("default synth preset: %v", err)
	}
	sampler := DefaultSamplerPreset()
	if err := sampler.Validate(); err != nil {
		t.Errorf("default sampler preset: %v", err)
	}
	spectral := DefaultSpectralPreset()
	if err := spectral.Validate(); err != nil {
		t.Errorf("default spectral preset: %v", err)
	}
}

func TestNoteLengthJSON(t *testing.T) {
	var n NoteLength
	if err := json.Unmarshal([]byte(`"sample"`), &n); err != nil || !n.Sample {
		t.Errorf(`"sample": %+v, %v`, n, err)
	}
	if err := json.Unmarshal([]byte(`2.5`), &n); err != nil || n.Sample || n.Seconds != 2.5 {
		t.Errorf("2.5: %+v, %v", n, err)
	}
	if err := json.Unmarshal([]byte(`"forever"`), &n); err == nil {
		t.Error(`"forever" accepted`)
	}

	out, err := json.Marshal(NoteLength{Sample: true})
	if err != nil || string(out) != `"sample"` {
		t.Errorf("marshal sample: %s, %v", out, err)
	}
	out, err = json.Marshal(NoteLength{Seconds: 3})
	if err != nil || string(out) != `3` {
		t.Errorf("marshal seconds: %s, %v", out, err)
	}
}

func TestPhaseJSON(t *testing.T) {
	var p Phase
	if err := json.Unmarshal([]byte(`"random"`), &p); err != nil || !p.Random {
		t.Errorf(`"random": %+v, %v`, p, err)
	}
	if err := json.Unmarshal([]byte(`0.25`), &p); err != nil || p.Random || p.Cycles != 0.25 {
		t.Errorf("0.25: %+v, %v", p, err)
	}
	if err := json.Unmarshal([]byte(`"late"`), &p); err == nil {
		t.Error(`"late" accepted`)
	}
}

func TestLFOSettingsValidate(t *testing.T) {
	l := defaultLFOSettings()
	l.Use = true
	if err := l.validate(); err != nil {
		t.Errorf("default LFO invalid when enabled: %v", err)
	}

	l.Freq = 0
	if err := l.validate(); err == nil {
		t.Error("zero-frequency LFO accepted")
	}

	l = defaultLFOSettings()
	l.Use = true
	l.Wave = "warble"
	if err := l.validate(); err == nil {
		t.Error("unknown LFO wave accepted")
	}

	// disabled LFOs are not validated, whatever their fields say
	l.Use = false
	if err := l.validate(); err != nil {
		t.Errorf("disabled LFO rejected: %v", err)
	}
}

func TestSpectralPresetValidation(t *testing.T) {
	cfg := DefaultSpectralPreset()
	cfg.MinFreq = 500
	cfg.MaxFreq = 100
	if err := cfg.Validate(); err == nil {
		t.Error("inverted band accepted")
	}
	cfg = DefaultSpectralPreset()
	cfg.InterpolationType = "cubic"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown interpolation accepted")
	}
}
