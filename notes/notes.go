// Package notes translates between musical note representations:
// scientific pitch names, MIDI key numbers and frequencies in Hz.
//
// Tuning follows the A440 standard (ISO 16) with equal temperament.
package notes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TuneC0 is the frequency in Hz of the C0 musical note under A440 tuning.
var TuneC0 = 440 * math.Pow(2, -9.0/12-4)

var noteSharps = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var semitones = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4,
	"F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9,
	"A#": 10, "Bb": 10, "B": 11,
}

// Note is a pitch identity: either a scientific pitch name or an
// explicit frequency override. A zero Note is invalid.
type Note struct {
	Name      string
	Frequency float64 // Hz; when > 0 it overrides Name
}

// Named returns a Note identified by a scientific pitch name.
func Named(name string) Note { return Note{Name: name} }

// AtFrequency returns a Note pinned to an explicit frequency.
func AtFrequency(hz float64) Note { return Note{Frequency: hz} }

// Hz resolves the note to a strictly positive frequency.
func (n Note) Hz() (float64, error) {
	if n.Frequency != 0 {
		if n.Frequency < 0 {
			return 0, fmt.Errorf("note frequency must be > 0, got %g", n.Frequency)
		}
		return n.Frequency, nil
	}
	return ParseNote(n.Name)
}

// String returns the note name, or the frequency for unnamed notes.
func (n Note) String() string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("%gHz", n.Frequency)
}

// ParseNote takes a scientific pitch name and returns its frequency in
// Hz. Sharp and flat spellings are supported, e.g. "Ab4", "E3", "F#2".
// Negative octaves ("C-1") are accepted.
func ParseNote(name string) (float64, error) {
	letters, octave, err := splitNote(name)
	if err != nil {
		return 0, err
	}
	semi, ok := semitones[letters]
	if !ok {
		return 0, fmt.Errorf("unknown note name %q", name)
	}
	return TuneC0 * math.Pow(2, float64(semi)/12+float64(octave)), nil
}

func splitNote(name string) (letters string, octave int, err error) {
	i := 0
	for i < len(name) && (name[i] < '0' || name[i] > '9') && name[i] != '-' {
		i++
	}
	if i == 0 || i == len(name) {
		return "", 0, fmt.Errorf("malformed note name %q (expected e.g. \"A4\")", name)
	}
	octave, err = strconv.Atoi(name[i:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed octave in note name %q", name)
	}
	return name[:i], octave, nil
}

// MIDIToName takes a MIDI key value and returns the note name in
// scientific notation, using sharps (C4 = key 60).
func MIDIToName(key int) string {
	octave := key/12 - 1
	semi := key % 12
	if semi < 0 {
		semi += 12
		octave--
	}
	return noteSharps[semi] + strconv.Itoa(octave)
}

// MIDIToHz converts a MIDI key value to a frequency in Hz.
func MIDIToHz(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}

// NameToMIDI converts a scientific pitch name to its MIDI key value.
func NameToMIDI(name string) (int, error) {
	letters, octave, err := splitNote(name)
	if err != nil {
		return 0, err
	}
	semi, ok := semitones[letters]
	if !ok {
		return 0, fmt.Errorf("unknown note name %q", name)
	}
	return (octave+1)*12 + semi, nil
}

// Flatten rewrites a sharp note name as its flat equivalent
// ("C#4" -> "Db4"); other names are returned unchanged.
func Flatten(name string) string {
	if !strings.Contains(name, "#") {
		return name
	}
	key, err := NameToMIDI(name)
	if err != nil {
		return name
	}
	flats := [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
	octave := key/12 - 1
	return flats[key%12] + strconv.Itoa(octave)
}
