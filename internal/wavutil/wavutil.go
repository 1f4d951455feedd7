// Package wavutil holds the WAV decode/encode and resampling helpers
// shared by the instrument bank, the render orchestrator and the cmds.
package wavutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadMono decodes a WAV file to a mono float64 buffer scaled to
// [-1,1], averaging channels, and returns its sample rate.
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	scale := 1.0
	if dec.BitDepth > 0 && dec.BitDepth <= 32 {
		scale = 1.0 / float64(int64(1)<<(dec.BitDepth-1))
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum * scale / float64(ch)
	}
	return out, buf.Format.SampleRate, nil
}

// ResampleIfNeeded converts in from fromRate to toRate, returning the
// input unchanged when the rates already match.
func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// WriteChannels encodes per-channel float64 buffers as a 16-bit
// interleaved WAV file. All channels must have equal length.
func WriteChannels(path string, channels [][]float64, sampleRate int) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels to write")
	}
	frames := len(channels[0])
	for i, c := range channels {
		if len(c) != frames {
			return fmt.Errorf("channel %d length %d != %d", i, len(c), frames)
		}
	}
	data := make([]float32, frames*len(channels))
	for i := 0; i < frames; i++ {
		for c := range channels {
			data[i*len(channels)+c] = float32(channels[c][i])
		}
	}
	return writeInterleaved(path, data, len(channels), sampleRate)
}

// WriteMono encodes a single float64 buffer as a 16-bit mono WAV file.
func WriteMono(path string, data []float64, sampleRate int) error {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return writeInterleaved(path, out, 1, sampleRate)
}

func writeInterleaved(path string, samples []float32, numChannels, sampleRate int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numChannels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

// RMS returns the root-mean-square level of an interleaved buffer.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
