// Package sonification drives a full render: it walks the event
// list, assigns each event a note from the score, plays it through
// the generator and spatialises the result onto the channel setup's
// accumulation buffers, then exports the mix as a WAV file.
package sonification

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/james-trayford/strauss/channels"
	"github.com/james-trayford/strauss/generator"
	"github.com/james-trayford/strauss/internal/wavutil"
	"github.com/james-trayford/strauss/notes"
	"github.com/james-trayford/strauss/score"
)

// Event is one sonified datum: a position on the score timeline, a
// normalised pitch selecting a chord note, and the per-note parameter
// streams mapped from the data.
type Event struct {
	Time   float64 // fraction of the score length, [0,1]
	Pitch  float64 // [0,1], binned onto the active chord
	Params generator.ParamSet
}

// ExportError wraps a failure to write the rendered output.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string { return fmt.Sprintf("export %s: %v", e.Path, e.Err) }
func (e *ExportError) Unwrap() error { return e.Err }

// Sonification owns the accumulation buffers for one render. Notes
// are mixed in without intermediate clipping; the mix is normalised
// exactly once, at export.
type Sonification struct {
	gen   generator.Generator
	score *score.Score
	setup channels.Setup
	rate  int

	buffers [][]float64 // per channel, spanning the score exactly
	caption []float64
}

// New sizes the accumulation buffers for the score length.
func New(gen generator.Generator, sc *score.Score, setup channels.Setup) (*Sonification, error) {
	if gen == nil || sc == nil {
		return nil, fmt.Errorf("sonification needs a generator and a score")
	}
	if setup.NChannels() == 0 {
		return nil, fmt.Errorf("sonification needs at least one output channel")
	}
	rate := gen.SampleRate()
	frames := int(math.Ceil(sc.Length * float64(rate)))
	buffers := make([][]float64, setup.NChannels())
	for i := range buffers {
		buffers[i] = make([]float64, frames)
	}
	return &Sonification{gen: gen, score: sc, setup: setup, rate: rate, buffers: buffers}, nil
}

// SampleRate returns the render rate in Hz.
func (s *Sonification) SampleRate() int { return s.rate }

// Channels exposes the accumulation buffers, one per output channel.
func (s *Sonification) Channels() [][]float64 { return s.buffers }

// Render plays every event and accumulates it into the channel
// buffers. Notes overshooting the score end are truncated with a
// logged diagnostic.
func (s *Sonification) Render(events []Event) error {
	pitches := s.binnedPitches(events)
	for i := range events {
		buf, ev, err := s.playEvent(&events[i], pitches[i])
		if err != nil {
			return err
		}
		s.accumulate(buf, ev)
	}
	return nil
}

// RenderParallel renders note buffers on a worker pool. Accumulation
// stays serialised, so the mix is sample-identical to Render up to
// the commutativity of addition.
func (s *Sonification) RenderParallel(events []Event, workers int) error {
	if workers <= 1 {
		return s.Render(events)
	}
	pitches := s.binnedPitches(events)

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				buf, ev, err := s.playEvent(&events[i], pitches[i])
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else if firstErr == nil {
					s.accumulate(buf, ev)
				}
				mu.Unlock()
			}
		}()
	}
	for i := range events {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return firstErr
}

// binnedPitches applies the score's pitch binning: adaptive ranks the
// event pitches and spreads the ranks evenly, uniform passes the raw
// values through.
func (s *Sonification) binnedPitches(events []Event) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		out[i] = clamp01(ev.Pitch)
	}
	if s.score.PitchBinning != score.BinningAdaptive || len(events) < 2 {
		return out
	}
	idx := make([]int, len(events))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return out[idx[a]] < out[idx[b]] })
	ranked := make([]float64, len(events))
	for rank, i := range idx {
		ranked[i] = float64(rank) / float64(len(events))
	}
	return ranked
}

// playEvent renders one event to a mono buffer. The returned Event
// copy carries the resolved parameter set.
func (s *Sonification) playEvent(ev *Event, pitch float64) ([]float64, *Event, error) {
	resolved := *ev
	resolved.Time = clamp01(ev.Time)
	t := resolved.Time * s.score.Length

	ps := resolved.Params
	if ps.Note == (notes.Note{}) {
		ps.Note = notes.Named(s.score.NoteFor(t, pitch))
	}
	buf, err := s.gen.Play(&ps)
	if err != nil {
		return nil, nil, err
	}
	resolved.Params = ps
	return buf, &resolved, nil
}

// accumulate mixes a rendered note into the channel buffers at its
// onset, weighting each channel by its antenna gain at the note's
// (possibly evolving) position.
func (s *Sonification) accumulate(buf []float64, ev *Event) {
	onset := int(ev.Time * s.score.Length * float64(s.rate))
	frames := len(s.buffers[0])
	if onset >= frames {
		return
	}
	if onset+len(buf) > frames {
		log.Printf("sonification: note at %.3f truncated by %d samples at the score end",
			ev.Time, onset+len(buf)-frames)
	}

	az := ev.Params.Azimuth
	if !az.IsSet() {
		az = generator.Const(0)
	}
	polar := ev.Params.Polar
	if !polar.IsSet() {
		polar = generator.Const(0.5)
	}

	n := len(buf)
	if onset+n > frames {
		n = frames - onset
	}
	moving := az.Evolves() || polar.Evolves()
	invLen := 1 / float64(len(buf))

	for c, mic := range s.setup.Mics {
		out := s.buffers[c]
		if !moving {
			g := mic.Antenna(2*math.Pi*az.At(0), math.Pi*polar.At(0))
			if g == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				out[onset+i] += g * buf[i]
			}
			continue
		}
		const block = 64
		for start := 0; start < n; start += block {
			frac := float64(start) * invLen
			g := mic.Antenna(2*math.Pi*az.At(frac), math.Pi*polar.At(frac))
			end := start + block
			if end > n {
				end = n
			}
			for i := start; i < end; i++ {
				out[onset+i] += g * buf[i]
			}
		}
	}
}

// OverlayCaption loads a WAV caption and mixes it over the start of
// every spatial channel at export time.
func (s *Sonification) OverlayCaption(path string) error {
	data, rate, err := wavutil.ReadMono(path)
	if err != nil {
		return fmt.Errorf("caption: %w", err)
	}
	data, err = wavutil.ResampleIfNeeded(data, rate, s.rate)
	if err != nil {
		return fmt.Errorf("caption: %w", err)
	}
	s.caption = data
	return nil
}

// Save normalises the mix once and writes it as a 16-bit WAV file.
// The file is written to a temporary sibling first and renamed into
// place, so a failed export never leaves a corrupt output behind.
func (s *Sonification) Save(path string, masterVolume float64) error {
	if masterVolume <= 0 || masterVolume > 1 {
		return &ExportError{Path: path, Err: fmt.Errorf("master volume must be in (0,1], got %g", masterVolume)}
	}

	out := make([][]float64, len(s.buffers))
	var peak float64
	for c, buf := range s.buffers {
		out[c] = append([]float64(nil), buf...)
		if s.caption != nil && s.setup.Mics[c].Type != channels.Mute {
			for i := 0; i < len(s.caption) && i < len(out[c]); i++ {
				out[c][i] += s.caption[i]
			}
		}
		for _, v := range out[c] {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	if peak > 0 {
		g := masterVolume / peak
		for c := range out {
			for i := range out[c] {
				out[c][i] *= g
			}
		}
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := wavutil.WriteChannels(tmp, out, s.rate); err != nil {
		os.Remove(tmp)
		return &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
