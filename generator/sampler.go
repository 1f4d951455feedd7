package generator

import (
	"log"
	"math"
	"math/rand"

	"github.com/james-trayford/strauss/bank"
	"github.com/james-trayford/strauss/dsp"
)

// Sampler plays pitched assets from an instrument bank, repitching
// by fractional-position playback and optionally looping a region of
// the asset to sustain arbitrary note lengths.
type Sampler struct {
	cfg  SamplerPreset
	bank *bank.Bank
	rng  *rand.Rand
}

// NewSampler validates the preset and binds it to a loaded bank. The
// sampler renders at the bank's rate.
func NewSampler(cfg SamplerPreset, b *bank.Bank) (*Sampler, error) {
	if b == nil || b.Len() == 0 {
		return nil, configErrorf("sampler needs a non-empty bank")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{cfg: cfg, bank: b, rng: rand.New(rand.NewSource(rand.Int63()))}, nil
}

// Preset returns a copy of the active preset.
func (s *Sampler) Preset() SamplerPreset { return s.cfg }

// SampleRate returns the render rate in Hz.
func (s *Sampler) SampleRate() int { return s.bank.SampleRate() }

// Seed fixes the random stream used for LFO random phases.
func (s *Sampler) Seed(seed int64) { s.rng = rand.New(rand.NewSource(seed)) }

// Modify edits the preset through fn, keeping the previous preset when
// the result does not validate.
func (s *Sampler) Modify(fn func(*SamplerPreset)) error {
	next := s.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// ApplyJSON overlays a partial JSON preset document.
func (s *Sampler) ApplyJSON(data []byte) error {
	next := s.cfg
	if err := applyJSON(data, &next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// Play renders one note. A note with no exactly matching asset falls
// back to the nearest-pitched asset with a logged diagnostic.
func (s *Sampler) Play(p *ParamSet) ([]float64, error) {
	hz, err := p.Note.Hz()
	if err != nil {
		return nil, configErrorf("note: %v", err)
	}
	rate := s.bank.SampleRate()

	asset, exact := s.bank.Lookup(hz)
	if !exact {
		log.Printf("sampler: no asset at %s (%.2f Hz), using nearest %s", p.Note, hz, asset.Note)
	}
	baseRatio := hz / asset.RootHz

	natural := asset.Duration(rate) / baseRatio
	nlen := s.cfg.noteLength(p, natural)
	n := renderSamples(nlen, s.cfg.VolumeEnvelope.R, rate)

	lfo, err := renderPitchLFO(s.cfg.PitchLFO, n, nlen, rate, s.rng)
	if err != nil {
		return nil, err
	}
	shift := p.PitchShift
	if !shift.IsSet() {
		shift = Const(s.cfg.PitchShift)
	}
	pos := pitchPositions(n, baseRatio, shift, lfo, nlen, rate)

	mode, start, end := s.loopRegion(asset, rate)
	delta := end - start

	buf := make([]float64, n)
	for i, x := range pos {
		switch mode {
		case bank.LoopForward:
			if x >= start {
				x = math.Mod(x-start, delta) + start
			}
		case bank.LoopForwardBack:
			if x >= start {
				x = end - math.Abs(math.Mod(x-start, 2*delta)-delta)
			}
		}
		buf[i] = dsp.CubicInterp(asset.Data, x)
	}

	if err := applyAmplitude(buf, &s.cfg.Preset, p, nlen, rate, s.rng); err != nil {
		return nil, err
	}
	applyFilter(buf, s.cfg.Filter, p.FilterCutoff, nlen, rate)
	return buf, nil
}

// loopRegion resolves the loop mode and bounds in asset samples.
// Preset bounds win; a zero loop_end defers to the asset's own loop
// points, or to the whole asset. Degenerate regions disable looping.
func (s *Sampler) loopRegion(asset *bank.Asset, rate int) (bank.LoopMode, float64, float64) {
	mode, _ := bank.ParseLoopMode(s.cfg.Looping)
	if mode == bank.LoopOff {
		return mode, 0, 0
	}

	startSec, endSec := s.cfg.LoopStart, s.cfg.LoopEnd
	if endSec <= 0 {
		if asset.HasLoop {
			startSec, endSec = asset.LoopStart, asset.LoopEnd
		} else {
			startSec, endSec = 0, asset.Duration(rate)
		}
	}
	if endSec > asset.Duration(rate) {
		endSec = asset.Duration(rate)
	}
	window := rate / 30
	start := nudgeToMinimum(asset.Data, startSec*float64(rate), window)
	end := nudgeToMinimum(asset.Data, endSec*float64(rate), window)
	if end-start < 1 {
		log.Printf("sampler: degenerate loop region [%g, %g]s on %s, looping disabled", startSec, endSec, asset.Note)
		return bank.LoopOff, 0, 0
	}
	return mode, start, end
}

// nudgeToMinimum moves a loop point forward to the lowest waveform
// value within one audible cycle, so the seam lands near a trough on
// both sides and does not click.
func nudgeToMinimum(data []float64, pos float64, window int) float64 {
	best, bestVal := 0, math.Inf(1)
	for i := 0; i < window; i++ {
		if v := dsp.CubicInterp(data, pos+float64(i)); v < bestVal {
			bestVal = v
			best = i
		}
	}
	return pos + float64(best)
}
