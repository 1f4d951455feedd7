// Package analysis measures rendered audio: averaged magnitude
// spectra, band levels, dominant frequency and envelope decay. It
// backs the sonify-analyze command and the render tests.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Band is a named frequency range in Hz.
type Band struct {
	Name string
	LoHz float64
	HiHz float64
}

// StandardBands splits the audible range the way a mixing engineer
// would talk about it.
var StandardBands = []Band{
	{"sub-bass", 20, 100},
	{"bass", 100, 300},
	{"low-mid", 300, 1000},
	{"mid", 1000, 3000},
	{"hi-mid", 3000, 6000},
	{"high", 6000, 12000},
	{"air", 12000, 20000},
}

// BandLevel is the measured mean power of one band.
type BandLevel struct {
	Band    Band
	PowerDB float64
}

// Report summarises one audio buffer.
type Report struct {
	SampleRate int
	Frames     int

	Peak        float64
	RMS         float64
	DominantHz  float64
	DecayDBPerS float64
	Bands       []BandLevel
}

const (
	fftSize = 4096
	fftHop  = 2048
)

// Analyze measures x. Buffers shorter than the FFT frame are padded.
func Analyze(x []float64, sampleRate int) (Report, error) {
	r := Report{SampleRate: sampleRate, Frames: len(x)}
	if sampleRate <= 0 {
		return r, fmt.Errorf("sample rate must be > 0, got %d", sampleRate)
	}
	if len(x) == 0 {
		return r, fmt.Errorf("empty buffer")
	}

	for _, v := range x {
		if a := math.Abs(v); a > r.Peak {
			r.Peak = a
		}
	}
	r.RMS = rms(x)

	avg, err := AverageSpectrum(x)
	if err != nil {
		return r, err
	}
	binHz := float64(sampleRate) / fftSize

	best := 1
	for k := 2; k < len(avg); k++ {
		if avg[k] > avg[best] {
			best = k
		}
	}
	r.DominantHz = float64(best) * binHz

	for _, b := range StandardBands {
		if b.LoHz >= float64(sampleRate)/2 {
			continue
		}
		r.Bands = append(r.Bands, BandLevel{Band: b, PowerDB: bandPowerDB(avg, binHz, b)})
	}

	env := rmsEnvelope(x, 256, 128)
	r.DecayDBPerS = decaySlopeDBPerS(env, 128.0/float64(sampleRate))

	return r, nil
}

// AverageSpectrum returns the magnitude spectrum of x averaged over
// Hann-windowed STFT frames. The result has fftSize/2 bins.
func AverageSpectrum(x []float64) ([]float64, error) {
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, err
	}
	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}

	spec := make([]complex128, fftSize/2+1)
	buf := make([]float64, fftSize)
	avg := make([]float64, fftSize/2)

	frames := 0
	for pos := 0; pos == 0 || pos+fftSize <= len(x); pos += fftHop {
		for i := range buf {
			buf[i] = 0
			if pos+i < len(x) {
				buf[i] = x[pos+i] * hann[i]
			}
		}
		plan.Forward(spec, buf)
		for k := 1; k < len(avg); k++ {
			avg[k] += cmplx.Abs(spec[k])
		}
		frames++
	}
	scale := 1.0 / float64(frames)
	for k := range avg {
		avg[k] *= scale
	}
	return avg, nil
}

// DominantFrequency returns the frequency of the strongest spectral
// bin of x.
func DominantFrequency(x []float64, sampleRate int) (float64, error) {
	r, err := Analyze(x, sampleRate)
	if err != nil {
		return 0, err
	}
	return r.DominantHz, nil
}

// BandPowerDB returns the mean power of x inside [loHz, hiHz] in dB.
func BandPowerDB(x []float64, sampleRate int, loHz, hiHz float64) (float64, error) {
	avg, err := AverageSpectrum(x)
	if err != nil {
		return 0, err
	}
	binHz := float64(sampleRate) / fftSize
	return bandPowerDB(avg, binHz, Band{LoHz: loHz, HiHz: hiHz}), nil
}

func bandPowerDB(avg []float64, binHz float64, b Band) float64 {
	loK := int(b.LoHz / binHz)
	hiK := int(b.HiHz / binHz)
	if loK < 1 {
		loK = 1
	}
	if hiK >= len(avg) {
		hiK = len(avg) - 1
	}
	if loK > hiK {
		return -240
	}
	var pow float64
	for k := loK; k <= hiK; k++ {
		pow += avg[k] * avg[k]
	}
	return 10 * math.Log10(math.Max(pow/float64(hiK-loK+1), 1e-24))
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// decaySlopeDBPerS fits a line to the post-peak envelope in dB and
// returns its slope. NaN means no usable decay segment.
func decaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		db := linToDB(v)
		if db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	threshold := peak - 60.0
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < threshold {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}
