// Package preset loads generator preset files: JSON documents applied
// on top of the built-in defaults, so a file only names the fields it
// changes.
package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/james-trayford/strauss/generator"
)

// Kind names the generator a preset file configures.
type Kind string

const (
	KindSynth        Kind = "synth"
	KindSampler      Kind = "sampler"
	KindSpectraliser Kind = "spectraliser"
)

// ParseKind validates a generator kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSynth, KindSampler, KindSpectraliser:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown generator kind %q (want synth, sampler or spectraliser)", s)
}

// LoadSynth reads preset files in order onto the synth defaults.
// Later files win; unknown keys are rejected.
func LoadSynth(paths ...string) (generator.SynthPreset, error) {
	cfg := generator.DefaultSynthPreset()
	for _, path := range paths {
		if err := applyFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// LoadSampler reads preset files in order onto the sampler defaults.
func LoadSampler(paths ...string) (generator.SamplerPreset, error) {
	cfg := generator.DefaultSamplerPreset()
	for _, path := range paths {
		if err := applyFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// LoadSpectral reads preset files in order onto the spectraliser
// defaults.
func LoadSpectral(paths ...string) (generator.SpectralPreset, error) {
	cfg := generator.DefaultSpectralPreset()
	for _, path := range paths {
		if err := applyFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func applyFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("preset %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("preset %s: %w", path, err)
	}
	return nil
}
