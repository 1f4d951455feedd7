package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/james-trayford/strauss/analysis"
	"github.com/james-trayford/strauss/internal/wavutil"
)

func main() {
	input := flag.String("input", "", "WAV file to analyse")
	loHz := flag.Float64("lo", 0, "Custom band lower bound in Hz (with -hi)")
	hiHz := flag.Float64("hi", 0, "Custom band upper bound in Hz (with -lo)")
	flag.Parse()

	if *input == "" && flag.NArg() == 1 {
		*input = flag.Arg(0)
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: sonify-analyze [-lo Hz -hi Hz] file.wav")
		os.Exit(1)
	}

	data, rate, err := wavutil.ReadMono(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	report, err := analysis.Analyze(data, rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d frames @ %d Hz (%.2fs)\n", *input, report.Frames, report.SampleRate,
		float64(report.Frames)/float64(report.SampleRate))
	fmt.Printf("  peak      %8.4f (%.1f dBFS)\n", report.Peak, dbfs(report.Peak))
	fmt.Printf("  rms       %8.4f (%.1f dBFS)\n", report.RMS, dbfs(report.RMS))
	fmt.Printf("  dominant  %8.1f Hz\n", report.DominantHz)
	if !math.IsNaN(report.DecayDBPerS) {
		fmt.Printf("  decay     %8.1f dB/s\n", report.DecayDBPerS)
	}
	fmt.Println()
	for _, b := range report.Bands {
		fmt.Printf("  %-8s %6.0f-%6.0f Hz  %7.1f dB\n", b.Band.Name, b.Band.LoHz, b.Band.HiHz, b.PowerDB)
	}

	if *loHz > 0 && *hiHz > *loHz {
		power, err := analysis.BandPowerDB(data, rate, *loHz, *hiHz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "band: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n  custom   %6.0f-%6.0f Hz  %7.1f dB\n", *loHz, *hiHz, power)
	}
}

func dbfs(v float64) float64 {
	if v < 1e-12 {
		v = 1e-12
	}
	return 20 * math.Log10(v)
}
