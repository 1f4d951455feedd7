package notes

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

func TestParseNote(t *testing.T) {
	cases := []struct {
		name string
		want float64
	}{
		{"A4", 440},
		{"A5", 880},
		{"A3", 220},
		{"C4", 261.625565},
		{"C#4", 277.182631},
		{"Db4", 277.182631},
		{"F#2", 92.498606},
		{"Bb1", 58.270470},
		{"E3", 164.813778},
		{"C0", TuneC0},
		{"A-1", 13.75},
	}
	for _, c := range cases {
		got, err := ParseNote(c.name)
		if err != nil {
			t.Fatalf("ParseNote(%q): %v", c.name, err)
		}
		if !approxEqual(got, c.want, 1e-6) {
			t.Errorf("ParseNote(%q) = %.6f, want %.6f", c.name, got, c.want)
		}
	}
}

func TestParseNoteErrors(t *testing.T) {
	for _, name := range []string{"", "4", "A", "H4", "A4b", "Cx2"} {
		if _, err := ParseNote(name); err == nil {
			t.Errorf("ParseNote(%q): expected error", name)
		}
	}
}

func TestMIDIRoundTrip(t *testing.T) {
	for key := 0; key <= 127; key++ {
		name := MIDIToName(key)
		back, err := NameToMIDI(name)
		if err != nil {
			t.Fatalf("NameToMIDI(%q): %v", name, err)
		}
		if back != key {
			t.Errorf("round trip key %d -> %q -> %d", key, name, back)
		}
	}
}

func TestMIDIToName(t *testing.T) {
	cases := map[int]string{60: "C4", 69: "A4", 61: "C#4", 21: "A0", 0: "C-1"}
	for key, want := range cases {
		if got := MIDIToName(key); got != want {
			t.Errorf("MIDIToName(%d) = %q, want %q", key, got, want)
		}
	}
}

func TestMIDIToHz(t *testing.T) {
	if got := MIDIToHz(69); !approxEqual(got, 440, 1e-12) {
		t.Errorf("MIDIToHz(69) = %g, want 440", got)
	}
	// MIDI frequencies and note-name frequencies agree.
	hz, err := ParseNote("C4")
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(MIDIToHz(60), hz, 1e-9) {
		t.Errorf("MIDIToHz(60) = %g, ParseNote(C4) = %g", MIDIToHz(60), hz)
	}
}

func TestNoteHz(t *testing.T) {
	hz, err := Named("A4").Hz()
	if err != nil || !approxEqual(hz, 440, 1e-9) {
		t.Errorf("Named(A4).Hz() = %g, %v", hz, err)
	}
	hz, err = AtFrequency(123.4).Hz()
	if err != nil || hz != 123.4 {
		t.Errorf("AtFrequency(123.4).Hz() = %g, %v", hz, err)
	}
	if _, err := (Note{Frequency: -1}).Hz(); err == nil {
		t.Error("negative frequency: expected error")
	}
	if _, err := (Note{}).Hz(); err == nil {
		t.Error("zero note: expected error")
	}
}

func TestFlatten(t *testing.T) {
	if got := Flatten("C#4"); got != "Db4" {
		t.Errorf("Flatten(C#4) = %q", got)
	}
	if got := Flatten("G3"); got != "G3" {
		t.Errorf("Flatten(G3) = %q", got)
	}
}
