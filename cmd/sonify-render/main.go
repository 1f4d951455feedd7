package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/james-trayford/strauss/bank"
	"github.com/james-trayford/strauss/channels"
	"github.com/james-trayford/strauss/generator"
	"github.com/james-trayford/strauss/preset"
	"github.com/james-trayford/strauss/score"
	"github.com/james-trayford/strauss/sonification"
)

func main() {
	kind := flag.String("generator", "synth", "Generator kind: synth, sampler or spectraliser")
	presetPath := flag.String("preset", "", "Preset JSON file (optional, applied onto defaults)")
	bankDir := flag.String("bank", "", "Sample directory for the sampler (files named ..._<NOTE>.wav|.mp3|.ogg)")
	sf2Path := flag.String("sf2", "", "SoundFont file for the sampler (alternative to -bank)")
	sf2Preset := flag.Int("sf2-preset", 0, "SoundFont preset index")
	listPresets := flag.Bool("list-presets", false, "List the presets of the -sf2 file and exit")
	chords := flag.String("score", "C_4", "Chord sequence, e.g. \"Am7_3 | C_4\"")
	length := flag.String("length", "15s", "Score length, e.g. \"1m 30s\"")
	binning := flag.String("binning", "adaptive", "Pitch binning: adaptive or uniform")
	layout := flag.String("layout", "stereo", "Channel layout: mono, stereo, 5.1 or 7.1")
	sampleRate := flag.Int("sample-rate", 44100, "Render sample rate in Hz")
	eventsPath := flag.String("events", "", "Event CSV file: time,pitch[,volume] per line, both in [0,1]; spectraliser rows carry spectrum bins after the pitch")
	nEvents := flag.Int("n", 16, "Number of generated demo events when no -events file is given")
	caption := flag.String("caption", "", "Caption WAV mixed over the start of the output (optional)")
	masterVolume := flag.Float64("volume", 1.0, "Master volume of the normalised output, (0,1]")
	workers := flag.Int("workers", 1, "Render workers; above 1 notes render concurrently")
	seed := flag.Int64("seed", 0, "Seed for randomised phases")
	output := flag.String("output", "sonification.wav", "Output WAV file path")
	flag.Parse()

	if *listPresets {
		if *sf2Path == "" {
			fmt.Fprintln(os.Stderr, "-list-presets needs -sf2")
			os.Exit(1)
		}
		infos, err := bank.ListSoundFontPresets(*sf2Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sf2: %v\n", err)
			os.Exit(1)
		}
		for _, p := range infos {
			fmt.Printf("%3d  bank %3d preset %3d  %s\n", p.Index, p.Bank, p.Preset, p.Name)
		}
		return
	}

	gen, err := buildGenerator(*kind, *presetPath, *bankDir, *sf2Path, *sf2Preset, *sampleRate, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generator: %v\n", err)
		os.Exit(1)
	}

	sc, err := score.Parse(*chords, *length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "score: %v\n", err)
		os.Exit(1)
	}
	switch *binning {
	case "adaptive":
		sc.PitchBinning = score.BinningAdaptive
	case "uniform":
		sc.PitchBinning = score.BinningUniform
	default:
		fmt.Fprintf(os.Stderr, "unknown binning %q (want adaptive or uniform)\n", *binning)
		os.Exit(1)
	}

	setup, err := channels.NewSetup(*layout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "layout: %v\n", err)
		os.Exit(1)
	}

	var events []sonification.Event
	if *eventsPath != "" {
		events, err = readEvents(*eventsPath, *kind == "spectraliser")
		if err != nil {
			fmt.Fprintf(os.Stderr, "events: %v\n", err)
			os.Exit(1)
		}
	} else {
		events = demoEvents(*nEvents, *kind == "spectraliser")
	}
	fmt.Printf("Rendering %d events over %.1fs at %d Hz onto %s (%s generator)...\n",
		len(events), sc.Length, *sampleRate, setup.Name, *kind)

	son, err := sonification.New(gen, sc, setup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *caption != "" {
		if err := son.OverlayCaption(*caption); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if err := son.RenderParallel(events, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if err := son.Save(*output, *masterVolume); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d channels, %.1fs)\n", *output, setup.NChannels(), sc.Length)
}

// buildGenerator constructs the requested generator kind with its
// preset file, if any, layered onto the defaults.
func buildGenerator(kind, presetPath, bankDir, sf2Path string, sf2Preset, sampleRate int, seed int64) (generator.Generator, error) {
	var paths []string
	if presetPath != "" {
		paths = append(paths, presetPath)
	}
	k, err := preset.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case preset.KindSynth:
		cfg, err := preset.LoadSynth(paths...)
		if err != nil {
			return nil, err
		}
		s, err := generator.NewSynth(cfg, sampleRate)
		if err != nil {
			return nil, err
		}
		s.Seed(seed)
		return s, nil

	case preset.KindSampler:
		var b *bank.Bank
		switch {
		case bankDir != "" && sf2Path != "":
			return nil, fmt.Errorf("give either -bank or -sf2, not both")
		case bankDir != "":
			b, err = bank.LoadDirectory(bankDir, sampleRate)
		case sf2Path != "":
			b, err = bank.LoadSoundFont(sf2Path, sf2Preset, sampleRate)
		default:
			return nil, fmt.Errorf("the sampler needs -bank or -sf2")
		}
		if err != nil {
			return nil, err
		}
		cfg, err := preset.LoadSampler(paths...)
		if err != nil {
			return nil, err
		}
		s, err := generator.NewSampler(cfg, b)
		if err != nil {
			return nil, err
		}
		s.Seed(seed)
		return s, nil

	default:
		cfg, err := preset.LoadSpectral(paths...)
		if err != nil {
			return nil, err
		}
		s, err := generator.NewSpectraliser(cfg, sampleRate)
		if err != nil {
			return nil, err
		}
		s.Seed(seed)
		return s, nil
	}
}

// readEvents parses one event per line: time,pitch[,volume]. For the
// spectraliser every column after the pitch is a spectrum bin instead.
func readEvents(path string, spectral bool) ([]sonification.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []sonification.Event
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: want at least time,pitch", path, line)
		}
		vals := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %v", path, line, i+1, err)
			}
			vals[i] = v
		}
		ev := sonification.Event{Time: vals[0], Pitch: vals[1]}
		rest := vals[2:]
		if spectral {
			ev.Params.Spectrum = rest
		} else if len(rest) > 0 {
			ev.Params.Volume = generator.Const(rest[0])
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%s holds no events", path)
	}
	return events, nil
}

// demoEvents spreads n events evenly over the score with a rising
// pitch ramp, so the tool produces audible output out of the box.
func demoEvents(n int, spectral bool) []sonification.Event {
	if n < 1 {
		n = 1
	}
	events := make([]sonification.Event, n)
	for i := range events {
		frac := float64(i) / float64(n)
		events[i] = sonification.Event{Time: frac, Pitch: frac}
		if spectral {
			spec := make([]float64, 16)
			spec[i%len(spec)] = 1
			events[i].Params.Spectrum = spec
		}
	}
	return events
}
