package generator

import (
	"math"
	"math/rand"

	"github.com/maddyblue/go-dsp/fft"

	"github.com/james-trayford/strauss/dsp"
)

// Spectraliser inverts supplied spectra into audio: bin magnitudes
// are spread between the preset's frequency bounds, given random
// phases and transformed back to the time domain.
type Spectraliser struct {
	cfg       SpectralPreset
	rate      int
	rng       *rand.Rand
	phaseSeed int64
}

// NewSpectraliser validates the preset and returns a spectraliser
// rendering at the given sample rate.
func NewSpectraliser(cfg SpectralPreset, rate int) (*Spectraliser, error) {
	if rate <= 0 {
		return nil, configErrorf("sample rate must be > 0, got %d", rate)
	}
	if cfg.NoteLength.Sample {
		return nil, configErrorf(`note_length "sample" applies only to sampler presets`)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := rand.Int63()
	return &Spectraliser{cfg: cfg, rate: rate, rng: rand.New(rand.NewSource(seed)), phaseSeed: seed}, nil
}

// Preset returns a copy of the active preset.
func (s *Spectraliser) Preset() SpectralPreset { return s.cfg }

// SampleRate returns the render rate in Hz.
func (s *Spectraliser) SampleRate() int { return s.rate }

// Seed fixes the random streams: the bin phases and the LFO phases.
func (s *Spectraliser) Seed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.phaseSeed = seed
}

// Modify edits the preset through fn, keeping the previous preset when
// the result does not validate.
func (s *Spectraliser) Modify(fn func(*SpectralPreset)) error {
	next := s.cfg
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
func (s *Spectraliser) ApplyJSON(data []byte) error {
	next := s.cfg
	if err := applyJSON(data, &next); err != nil {
		return err
	}
	if next.NoteLength.Sample {
		return configErrorf(`note_length "sample" applies only to sampler presets`)
	}
	s.cfg = next
	return nil
}

// Play renders one note from p.Spectrum, or from the evolving
// p.Spectra sequence when supplied. A degenerate spectrum (empty or
// all zero) renders silence.
func (s *Spectraliser) Play(p *ParamSet) ([]float64, error) {
	nlen := s.cfg.noteLength(p, s.cfg.NoteLength.Seconds)
	n := renderSamples(nlen, s.cfg.VolumeEnvelope.R, s.rate)

	var buf []float64
	if len(p.Spectra) > 0 {
		buf = s.synthesiseEvolving(p.Spectra, n)
	} else {
		buf = s.synthesise(p.Spectrum, n)
	}
	dsp.Normalize(buf, 1)

	// pitch modulation resamples the reconstructed waveform
	shift := p.PitchShift
	if !shift.IsSet() {
		shift = Const(s.cfg.PitchShift)
	}
	if s.cfg.PitchLFO.Use || shift.Evolves() || shift.At(0) != 0 {
		lfo, err := renderPitchLFO(s.cfg.PitchLFO, n, nlen, s.rate, s.rng)
		if err != nil {
			return nil, err
		}
		pos := pitchPositions(n, 1, shift, lfo, nlen, s.rate)
		shifted := make([]float64, n)
		for i, x := range pos {
			shifted[i] = dsp.CubicInterp(buf, x)
		}
		buf = shifted
	}

	if err := applyAmplitude(buf, &s.cfg.Preset, p, nlen, s.rate, s.rng); err != nil {
		return nil, err
	}
	applyFilter(buf, s.cfg.Filter, p.FilterCutoff, nlen, s.rate)
	return buf, nil
}

// synthesise inverts one spectrum into n samples of audio.
func (s *Spectraliser) synthesise(spec []float64, n int) []float64 {
	out := make([]float64, n)
	if !hasPower(spec) {
		return out
	}

	duration := float64(n) / float64(s.rate)
	mindx := int(s.cfg.MinFreq * duration)
	maxdx := int(s.cfg.MaxFreq * duration)
	bf := 1.0
	if s.cfg.FitSpecMultiples && len(spec) > 1 && maxdx > mindx+1 {
		// stretch the transform so the supplied bins land a whole
		// number of output bins apart
		m := float64(maxdx-mindx-1) / float64(len(spec)-1)
		bf = math.Ceil(m) / m
		mindx = int(s.cfg.MinFreq * duration * bf)
		maxdx = int(s.cfg.MaxFreq * duration * bf)
	}
	size := int(math.Ceil(float64(n) * bf))
	if maxdx > size {
		maxdx = size
	}
	if maxdx <= mindx {
		maxdx = mindx + 1
	}

	mags := interpolateSpectrum(spec, maxdx-mindx, s.cfg.InterpolationType)

	rng := s.rng
	if !s.cfg.RegenPhases {
		rng = rand.New(rand.NewSource(s.phaseSeed))
	}
	full := make([]complex128, size)
	binHz := float64(s.rate) / float64(n) / bf
	for k := mindx; k < maxdx; k++ {
		mag := mags[k-mindx]
		if s.cfg.EqualLoudnessNormalisation {
			mag *= loudnessWeight(float64(k) * binHz)
		}
		phi := 2 * math.Pi * rng.Float64()
		full[k] = complex(mag*math.Cos(phi), mag*math.Sin(phi))
	}

	wave := fft.IFFT(full)
	for i := 0; i < n && i < len(wave); i++ {
		out[i] = real(wave[i])
	}
	return out
}

// synthesiseEvolving renders a sequence of spectra as overlapping
// Hann-windowed segments crossfaded at 50%.
func (s *Spectraliser) synthesiseEvolving(spectra [][]float64, n int) []float64 {
	out := make([]float64, n)
	nseg := len(spectra)
	if nseg == 1 {
		return s.synthesise(spectra[0], n)
	}
	seg := 2 * n / (nseg + 1)
	if seg < 2 {
		return s.synthesise(spectra[0], n)
	}
	hop := seg / 2
	win := dsp.Hann(seg)
	for j, spec := range spectra {
		piece := s.synthesise(spec, seg)
		off := j * hop
		for i := 0; i < seg && off+i < n; i++ {
			out[off+i] += piece[i] * win[i]
		}
	}
	return out
}

// interpolateSpectrum resamples spec onto bins points. "sample" takes
// linear interpolation of the magnitudes; "preserve_power" integrates
// the spectrum, interpolates the cumulative curve and differences it,
// so total power survives resampling.
func interpolateSpectrum(spec []float64, bins int, mode string) []float64 {
	out := make([]float64, bins)
	if len(spec) == 0 || bins <= 0 {
		return out
	}
	if len(spec) == 1 {
		for i := range out {
			out[i] = spec[0]
		}
		return out
	}
	if mode == InterpPreservePower {
		cum := make([]float64, len(spec)+1)
		for i, v := range spec {
			cum[i+1] = cum[i] + v
		}
		prev := sampleSeries(cum, 0)
		for i := 0; i < bins; i++ {
			next := sampleSeries(cum, float64(i+1)/float64(bins))
			out[i] = next - prev
			prev = next
		}
		return out
	}
	for i := range out {
		frac := 0.0
		if bins > 1 {
			frac = float64(i) / float64(bins-1)
		}
		out[i] = sampleSeries(spec, frac)
	}
	return out
}

// sampleSeries linearly interpolates a series at a fraction of its
// span.
func sampleSeries(series []float64, frac float64) float64 {
	if frac <= 0 {
		return series[0]
	}
	if frac >= 1 {
		return series[len(series)-1]
	}
	pos := frac * float64(len(series)-1)
	i := int(pos)
	f := pos - float64(i)
	return series[i] + f*(series[i+1]-series[i])
}

func hasPower(spec []float64) bool {
	for _, v := range spec {
		if v != 0 {
			return true
		}
	}
	return false
}
