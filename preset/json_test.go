package preset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSynthDefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadSynth()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Note != "A4" || cfg.Volume != 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadSynthOverlay(t *testing.T) {
	path := writeFile(t, "synth.json", `{
		"note": "C3",
		"volume": 0.5,
		"oscillators": [{"form": "saw", "level": 1}]
	}`)
	cfg, err := LoadSynth(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Note != "C3" || cfg.Volume != 0.5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Oscillators) != 1 || cfg.Oscillators[0].Form != "saw" {
		t.Errorf("oscillators = %+v", cfg.Oscillators)
	}
	// untouched fields keep their defaults
	if cfg.Filter.Cutoff != 1 {
		t.Errorf("filter defaults lost: %+v", cfg.Filter)
	}
}

func TestLoadSynthLaterFileWins(t *testing.T) {
	a := writeFile(t, "a.json", `{"volume": 0.5, "note": "C3"}`)
	b := writeFile(t, "b.json", `{"volume": 0.25}`)
	cfg, err := LoadSynth(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Volume != 0.25 || cfg.Note != "C3" {
		t.Errorf("layering wrong: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "bad.json", `{"loudness": 3}`)
	if _, err := LoadSynth(path); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeFile(t, "bad.json", `{"volume": 7}`)
	if _, err := LoadSynth(path); err == nil {
		t.Error("out-of-range volume accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadSynth(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadSampler(t *testing.T) {
	path := writeFile(t, "sampler.json", `{
		"note_length": 2,
		"looping": "forward",
		"loop_start": 0.1,
		"loop_end": 0.4
	}`)
	cfg, err := LoadSampler(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NoteLength.Sample || cfg.NoteLength.Seconds != 2 {
		t.Errorf("note length = %+v", cfg.NoteLength)
	}
	if cfg.Looping != "forward" || cfg.LoopStart != 0.1 || cfg.LoopEnd != 0.4 {
		t.Errorf("loop settings = %+v", cfg)
	}
}

func TestLoadSpectral(t *testing.T) {
	path := writeFile(t, "spectral.json", `{
		"min_freq": 100,
		"max_freq": 4000,
		"interpolation_type": "preserve_power",
		"equal_loudness_normalisation": true
	}`)
	cfg, err := LoadSpectral(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinFreq != 100 || cfg.MaxFreq != 4000 {
		t.Errorf("band = [%g, %g]", cfg.MinFreq, cfg.MaxFreq)
	}
	if cfg.InterpolationType != "preserve_power" || !cfg.EqualLoudnessNormalisation {
		t.Errorf("options = %+v", cfg)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"synth", "sampler", "spectraliser"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("%s rejected: %v", s, err)
		}
	}
	if _, err := ParseKind("theremin"); err == nil {
		t.Error("unknown kind accepted")
	}
}
