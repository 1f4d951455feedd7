// Package bank loads instrument banks for the sampler generator:
// directories of audio files tagged with note names, and SoundFont
// (.sf2) presets. Loaded assets are mono, peak-normalised and
// resampled to the render rate.
package bank

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/james-trayford/strauss/internal/wavutil"
	"github.com/james-trayford/strauss/notes"
)

// LoopMode selects how the sampler reads past the loop region.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopForward
	LoopForwardBack
)

// ParseLoopMode maps a preset string to a LoopMode.
func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "off":
		return LoopOff, nil
	case "forward":
		return LoopForward, nil
	case "forwardback":
		return LoopForwardBack, nil
	}
	return 0, fmt.Errorf("unknown looping mode %q (want off, forward or forwardback)", s)
}

func (m LoopMode) String() string {
	switch m {
	case LoopOff:
		return "off"
	case LoopForward:
		return "forward"
	case LoopForwardBack:
		return "forwardback"
	}
	return "unknown"
}

// AssetError wraps a failure to load or decode a single asset.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string { return fmt.Sprintf("asset %s: %v", e.Path, e.Err) }
func (e *AssetError) Unwrap() error { return e.Err }

// Asset is one loaded sample: mono data at the bank's render rate,
// the pitch it was recorded at, and optional loop points.
type Asset struct {
	Note   string
	Data   []float64
	RootHz float64

	// Loop bounds in seconds, clipped to the asset duration. HasLoop
	// is set when the source format carries its own loop points.
	LoopStart float64
	LoopEnd   float64
	HasLoop   bool
}

// Duration returns the asset length in seconds at the given rate.
func (a *Asset) Duration(rate int) float64 {
	return float64(len(a.Data)) / float64(rate)
}

// Bank is a collection of assets indexed by note.
type Bank struct {
	rate   int
	byNote map[string]*Asset
	sorted []*Asset // ascending root frequency
}

func newBank(rate int) *Bank {
	return &Bank{rate: rate, byNote: make(map[string]*Asset)}
}

func (b *Bank) add(a *Asset) {
	b.byNote[a.Note] = a
	b.sorted = append(b.sorted, a)
	sort.Slice(b.sorted, func(i, j int) bool { return b.sorted[i].RootHz < b.sorted[j].RootHz })
}

// SampleRate returns the rate all assets were resampled to.
func (b *Bank) SampleRate() int { return b.rate }

// Len returns the number of loaded assets.
func (b *Bank) Len() int { return len(b.sorted) }

// Notes lists the loaded note names in ascending pitch order.
func (b *Bank) Notes() []string {
	out := make([]string, len(b.sorted))
	for i, a := range b.sorted {
		out[i] = a.Note
	}
	return out
}

// Lookup returns the asset recorded at hz, or the asset with the
// nearest root pitch when no exact match is loaded. exact reports
// whether the match was exact.
func (b *Bank) Lookup(hz float64) (asset *Asset, exact bool) {
	if len(b.sorted) == 0 {
		return nil, false
	}
	i := sort.Search(len(b.sorted), func(i int) bool { return b.sorted[i].RootHz >= hz })
	best := b.sorted[0]
	if i < len(b.sorted) {
		best = b.sorted[i]
	}
	if i > 0 {
		// pitch distance is geometric, compare in log space
		lo := b.sorted[i-1]
		if math.Abs(math.Log(hz/lo.RootHz)) < math.Abs(math.Log(hz/best.RootHz)) {
			best = lo
		}
	}
	return best, math.Abs(math.Log(hz/best.RootHz)) < 1e-6
}

// LoadDirectory builds a bank from every .wav, .mp3 and .ogg file in
// dir. File names must end in a note token before the extension, e.g.
// "glock_A4.wav" or "pad_Db3.ogg". Assets are averaged to mono,
// DC-removed, peak-normalised and resampled to renderRate.
func LoadDirectory(dir string, renderRate int) (*Bank, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &AssetError{Path: dir, Err: err}
	}
	b := newBank(renderRate)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".wav" && ext != ".mp3" && ext != ".ogg" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		note, err := noteToken(e.Name())
		if err != nil {
			return nil, &AssetError{Path: path, Err: err}
		}
		rootHz, err := notes.ParseNote(note)
		if err != nil {
			return nil, &AssetError{Path: path, Err: err}
		}
		data, rate, err := decodeFile(path, ext)
		if err != nil {
			return nil, &AssetError{Path: path, Err: err}
		}
		if len(data) == 0 {
			return nil, &AssetError{Path: path, Err: fmt.Errorf("no audio frames")}
		}
		data = prepare(data)
		data, err = wavutil.ResampleIfNeeded(data, rate, renderRate)
		if err != nil {
			return nil, &AssetError{Path: path, Err: err}
		}
		b.add(&Asset{
			Note:    note,
			Data:    data,
			RootHz:  rootHz,
			LoopEnd: float64(len(data)) / float64(renderRate),
		})
	}
	if b.Len() == 0 {
		return nil, &AssetError{Path: dir, Err: fmt.Errorf("no note-tagged audio files found")}
	}
	return b, nil
}

// noteToken extracts the trailing note name from a file name like
// "glock_A4.wav".
func noteToken(name string) (string, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexByte(base, '_')
	if i < 0 || i == len(base)-1 {
		return "", fmt.Errorf("file name carries no note token (want e.g. \"name_A4.wav\")")
	}
	return base[i+1:], nil
}

// prepare removes DC offset and peak-normalises in place.
func prepare(data []float64) []float64 {
	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	peak := 0.0
	for i := range data {
		data[i] -= mean
		if a := math.Abs(data[i]); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range data {
			data[i] /= peak
		}
	}
	return data
}

func decodeFile(path, ext string) ([]float64, int, error) {
	switch ext {
	case ".wav":
		return wavutil.ReadMono(path)
	case ".mp3":
		return decodeMP3(path)
	case ".ogg":
		return decodeOgg(path)
	}
	return nil, 0, fmt.Errorf("unsupported extension %q", ext)
}

// decodeMP3 reads an MP3 file to mono float64. go-mp3 always emits
// 16-bit little-endian stereo frames.
func decodeMP3(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	frames := len(raw) / 4
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		out[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return out, dec.SampleRate(), nil
}

func decodeOgg(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, 0, err
	}
	ch := r.Channels()
	var interleaved []float32
	buf := make([]float32, 4096)
	for {
		n, err := r.Read(buf)
		interleaved = append(interleaved, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	frames := len(interleaved) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(interleaved[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out, r.SampleRate(), nil
}
