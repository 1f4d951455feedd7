package bank

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/james-trayford/strauss/internal/wavutil"
)

func TestParseLoopMode(t *testing.T) {
	for s, want := range map[string]LoopMode{
		"off": LoopOff, "forward": LoopForward, "forwardback": LoopForwardBack,
	} {
		got, err := ParseLoopMode(s)
		if err != nil || got != want {
			t.Errorf("ParseLoopMode(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseLoopMode("pingpong"); err == nil {
		t.Error("ParseLoopMode(pingpong): expected error")
	}
}

func TestNoteToken(t *testing.T) {
	cases := map[string]string{
		"glock_A4.wav":    "A4",
		"pad_low_Db3.ogg": "Db3",
		"x_F#2.mp3":       "F#2",
	}
	for name, want := range cases {
		got, err := noteToken(name)
		if err != nil || got != want {
			t.Errorf("noteToken(%q) = %q, %v", name, got, err)
		}
	}
	for _, name := range []string{"glock.wav", "trailing_.wav"} {
		if _, err := noteToken(name); err == nil {
			t.Errorf("noteToken(%q): expected error", name)
		}
	}
}

func TestLookupNearest(t *testing.T) {
	b := newBank(44100)
	b.add(&Asset{Note: "A3", RootHz: 220})
	b.add(&Asset{Note: "A4", RootHz: 440})
	b.add(&Asset{Note: "A5", RootHz: 880})

	a, exact := b.Lookup(440)
	if !exact || a.Note != "A4" {
		t.Errorf("Lookup(440) = %s exact=%v", a.Note, exact)
	}
	a, exact = b.Lookup(500)
	if exact || a.Note != "A4" {
		t.Errorf("Lookup(500) = %s exact=%v, want nearest A4", a.Note, exact)
	}
	a, _ = b.Lookup(700)
	if a.Note != "A5" {
		t.Errorf("Lookup(700) = %s, want A5 (log distance)", a.Note)
	}
	a, _ = b.Lookup(50)
	if a.Note != "A3" {
		t.Errorf("Lookup(50) = %s, want lowest asset", a.Note)
	}
	a, _ = b.Lookup(10000)
	if a.Note != "A5" {
		t.Errorf("Lookup(10000) = %s, want highest asset", a.Note)
	}
}

func TestPrepare(t *testing.T) {
	data := []float64{0.3, 0.5, 0.7} // constant 0.5 offset over {-0.2, 0, 0.2}
	prepare(data)
	var mean float64
	for _, v := range data {
		mean += v
	}
	if math.Abs(mean/3) > 1e-12 {
		t.Errorf("mean after prepare = %g, want 0", mean/3)
	}
	peak := 0.0
	for _, v := range data {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if math.Abs(peak-1) > 1e-12 {
		t.Errorf("peak after prepare = %g, want 1", peak)
	}
}

func writeTone(t *testing.T, path string, freq float64, rate int, seconds float64) {
	t.Helper()
	n := int(seconds * float64(rate))
	data := make([]float64, n)
	for i := range data {
		data[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	if err := wavutil.WriteMono(path, data, rate); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "tone_A4.wav"), 440, 44100, 0.2)
	writeTone(t, filepath.Join(dir, "tone_A3.wav"), 220, 44100, 0.2)
	// non-audio files are ignored
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := LoadDirectory(dir, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 {
		t.Fatalf("loaded %d assets, want 2", b.Len())
	}
	if got := b.Notes(); got[0] != "A3" || got[1] != "A4" {
		t.Errorf("Notes() = %v", got)
	}

	a, exact := b.Lookup(440)
	if !exact || a.Note != "A4" {
		t.Fatalf("Lookup(440) = %v exact=%v", a.Note, exact)
	}
	// peak-normalised on load (16-bit quantisation tolerance)
	peak := 0.0
	for _, v := range a.Data {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if math.Abs(peak-1) > 1e-3 {
		t.Errorf("asset peak = %g, want 1", peak)
	}
	if a.HasLoop {
		t.Error("directory asset should not carry loop points")
	}
	if math.Abs(a.LoopEnd-a.Duration(44100)) > 1e-9 {
		t.Errorf("LoopEnd = %g, want full duration %g", a.LoopEnd, a.Duration(44100))
	}
}

func TestLoadDirectoryErrors(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "untagged.wav"), 440, 44100, 0.05)

	_, err := LoadDirectory(dir, 44100)
	var ae *AssetError
	if !errors.As(err, &ae) {
		t.Fatalf("want AssetError for untagged file, got %v", err)
	}

	if _, err := LoadDirectory(filepath.Join(dir, "missing"), 44100); err == nil {
		t.Error("missing directory: expected error")
	}

	empty := t.TempDir()
	if _, err := LoadDirectory(empty, 44100); err == nil {
		t.Error("empty directory: expected error")
	}
}
