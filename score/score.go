// Package score lays out the harmonic content of a sonification over
// its timeline: a sequence of chord windows, each offering the notes
// that events falling inside it may sound.
package score

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/james-trayford/strauss/notes"
)

// PitchBinning selects how normalised pitch values pick a note from
// the active chord.
type PitchBinning string

const (
	// BinningAdaptive ranks the pitch values of the whole event set
	// and spreads the ranks evenly over the chord.
	BinningAdaptive PitchBinning = "adaptive"
	// BinningUniform maps the raw value straight onto the chord.
	BinningUniform PitchBinning = "uniform"
)

// chordQualities maps a chord suffix to semitone intervals over the
// root.
var chordQualities = map[string][]int{
	"":     {0, 4, 7},
	"m":    {0, 3, 7},
	"7":    {0, 4, 7, 10},
	"maj7": {0, 4, 7, 11},
	"m7":   {0, 3, 7, 10},
	"dim":  {0, 3, 6},
	"dim7": {0, 3, 6, 9},
	"aug":  {0, 4, 8},
	"sus2": {0, 2, 7},
	"sus4": {0, 5, 7},
	"6":    {0, 4, 7, 9},
	"m6":   {0, 3, 7, 9},
	"9":    {0, 4, 7, 10, 14},
	"m9":   {0, 3, 7, 10, 14},
	"add9": {0, 4, 7, 14},
}

type window struct {
	notes []string
	start float64 // fraction of the score length
	end   float64
}

// Score is a timeline of chord windows. Windows partition [0, Length]
// exactly: every instant belongs to one window.
type Score struct {
	Length       float64 // seconds
	PitchBinning PitchBinning

	windows []window
}

// New lays chords out over evenly sized windows spanning length
// seconds. Every chord is a list of note names, lowest first.
func New(chords [][]string, length float64) (*Score, error) {
	if length <= 0 {
		return nil, fmt.Errorf("score length must be > 0, got %g", length)
	}
	if len(chords) == 0 {
		return nil, fmt.Errorf("score needs at least one chord")
	}
	s := &Score{Length: length, PitchBinning: BinningAdaptive}
	n := len(chords)
	for i, chord := range chords {
		if len(chord) == 0 {
			return nil, fmt.Errorf("chord %d is empty", i)
		}
		for _, name := range chord {
			if _, err := notes.ParseNote(name); err != nil {
				return nil, fmt.Errorf("chord %d: %w", i, err)
			}
		}
		s.windows = append(s.windows, window{
			notes: append([]string(nil), chord...),
			start: float64(i) / float64(n),
			end:   float64(i+1) / float64(n),
		})
	}
	return s, nil
}

// Parse builds a score from a chord sequence string and a length
// string, e.g. Parse("Am7_3 | C_4", "1m 30s").
func Parse(sequence, length string) (*Score, error) {
	secs, err := ParseLength(length)
	if err != nil {
		return nil, err
	}
	chords, err := ParseChordSequence(sequence)
	if err != nil {
		return nil, err
	}
	return New(chords, secs)
}

// SetWindowLengths replaces the even window layout with explicit
// lengths, one per window. Lengths are relative weights; they are
// scaled to fill the score exactly.
func (s *Score) SetWindowLengths(lengths []float64) error {
	if len(lengths) != len(s.windows) {
		return fmt.Errorf("got %d lengths for %d windows", len(lengths), len(s.windows))
	}
	var total float64
	for i, l := range lengths {
		if l <= 0 {
			return fmt.Errorf("window %d length must be > 0, got %g", i, l)
		}
		total += l
	}
	var acc float64
	for i := range s.windows {
		s.windows[i].start = acc / total
		acc += lengths[i]
		s.windows[i].end = acc / total
	}
	s.windows[len(s.windows)-1].end = 1
	return nil
}

// NWindows returns the number of chord windows.
func (s *Score) NWindows() int { return len(s.windows) }

// NotesAt returns the chord active at time t in seconds. Times
// outside the score clamp to the first or last window.
func (s *Score) NotesAt(t float64) []string {
	return s.windows[s.WindowAt(t)].notes
}

// WindowAt returns the index of the window containing time t.
func (s *Score) WindowAt(t float64) int {
	frac := t / s.Length
	for i, w := range s.windows {
		if frac < w.end {
			return i
		}
	}
	return len(s.windows) - 1
}

// NoteFor picks a note of the chord active at t from a normalised
// pitch value in [0,1]. Adaptive rank transformation happens upstream;
// here the value indexes the chord uniformly.
func (s *Score) NoteFor(t, pitch float64) string {
	chord := s.NotesAt(t)
	i := int(pitch * float64(len(chord)))
	if i < 0 {
		i = 0
	}
	if i >= len(chord) {
		i = len(chord) - 1
	}
	return chord[i]
}

// ParseLength reads a duration like "1m 30s", "90s", "0.5m" or a bare
// number of seconds.
func ParseLength(s string) (float64, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty length")
	}
	var total float64
	for _, f := range fields {
		switch {
		case strings.HasSuffix(f, "m"):
			v, err := strconv.ParseFloat(strings.TrimSuffix(f, "m"), 64)
			if err != nil {
				return 0, fmt.Errorf("malformed length %q", s)
			}
			total += v * 60
		case strings.HasSuffix(f, "s"):
			v, err := strconv.ParseFloat(strings.TrimSuffix(f, "s"), 64)
			if err != nil {
				return 0, fmt.Errorf("malformed length %q", s)
			}
			total += v
		default:
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return 0, fmt.Errorf("malformed length %q", s)
			}
			total += v
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("length must be > 0, got %g", total)
	}
	return total, nil
}

// ParseChordSequence reads a sequence like "Am7_3 | C_4" into chord
// voicings: each token names a chord quality and root octave, and
// expands to its notes lowest first.
func ParseChordSequence(s string) ([][]string, error) {
	var out [][]string
	for _, token := range strings.Split(s, "|") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("empty chord token in %q", s)
		}
		chord, err := expandChord(token)
		if err != nil {
			return nil, err
		}
		out = append(out, chord)
	}
	return out, nil
}

// expandChord turns one token like "Am7_3" into note names.
func expandChord(token string) ([]string, error) {
	name, octaveStr, ok := strings.Cut(token, "_")
	if !ok {
		return nil, fmt.Errorf("chord %q carries no octave (want e.g. \"Am7_3\")", token)
	}
	octave, err := strconv.Atoi(octaveStr)
	if err != nil {
		return nil, fmt.Errorf("chord %q: malformed octave", token)
	}

	rootLen := 1
	if len(name) > 1 && (name[1] == '#' || name[1] == 'b') {
		rootLen = 2
	}
	if len(name) < rootLen {
		return nil, fmt.Errorf("chord %q: missing root", token)
	}
	root, quality := name[:rootLen], name[rootLen:]

	intervals, ok := chordQualities[quality]
	if !ok {
		return nil, fmt.Errorf("chord %q: unknown quality %q", token, quality)
	}
	rootKey, err := notes.NameToMIDI(root + strconv.Itoa(octave))
	if err != nil {
		return nil, fmt.Errorf("chord %q: %w", token, err)
	}
	out := make([]string, len(intervals))
	for i, iv := range intervals {
		out[i] = notes.MIDIToName(rootKey + iv)
	}
	return out, nil
}
