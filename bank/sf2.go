package bank

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/james-trayford/strauss/internal/wavutil"
	"github.com/james-trayford/strauss/notes"
)

// SoundFont generator opcodes used for sample extraction.
const (
	sfGenInstrument        = 41
	sfGenKeyRange          = 43
	sfGenSampleID          = 53
	sfGenSampleModes       = 54
	sfGenOverridingRootKey = 58
)

// PresetInfo names one preset in a SoundFont file.
type PresetInfo struct {
	Index  int
	Name   string
	Bank   int
	Preset int
}

// ListSoundFontPresets returns the presets a .sf2 file offers, in file
// order.
func ListSoundFontPresets(path string) ([]PresetInfo, error) {
	sf, err := parseSF2File(path)
	if err != nil {
		return nil, err
	}
	out := make([]PresetInfo, len(sf.phdr))
	for i, p := range sf.phdr {
		out[i] = PresetInfo{Index: i, Name: p.name, Bank: int(p.bank), Preset: int(p.preset)}
	}
	return out, nil
}

// LoadSoundFont extracts the samples of one preset (by file order
// index; 0 selects the first) into a bank at renderRate. Each
// instrument zone contributes one asset keyed by its root pitch, with
// the SoundFont's own loop points attached when the zone loops.
func LoadSoundFont(path string, presetIndex int, renderRate int) (*Bank, error) {
	sf, err := parseSF2File(path)
	if err != nil {
		return nil, err
	}
	if presetIndex < 0 || presetIndex >= len(sf.phdr) {
		return nil, &AssetError{Path: path, Err: fmt.Errorf("preset index %d out of range (file has %d)", presetIndex, len(sf.phdr))}
	}

	b := newBank(renderRate)
	for _, z := range sf.presetZones(presetIndex) {
		if err := sf.addZoneAsset(b, z, path, renderRate); err != nil {
			return nil, err
		}
	}
	if b.Len() == 0 {
		return nil, &AssetError{Path: path, Err: fmt.Errorf("preset %d (%s) has no playable zones", presetIndex, sf.phdr[presetIndex].name)}
	}
	return b, nil
}

type sfPreset struct {
	name   string
	preset uint16
	bank   uint16
	bagNdx uint16
}

type sfBag struct{ genNdx uint16 }

type sfGen struct {
	oper   uint16
	amount uint16
}

type sfInst struct {
	name   string
	bagNdx uint16
}

type sfSample struct {
	name       string
	start      uint32
	end        uint32
	startLoop  uint32
	endLoop    uint32
	sampleRate uint32
	pitch      uint8
}

type sf2 struct {
	smpl []int16

	phdr []sfPreset // terminal record stripped
	pbag []sfBag    // terminal kept for range arithmetic
	pgen []sfGen
	inst []sfInst
	ibag []sfBag
	igen []sfGen
	shdr []sfSample
}

// instZone is one instrument zone resolved to a sample.
type instZone struct {
	sampleNdx int
	rootKey   int // -1 means use the sample header pitch
	loops     bool
}

func parseSF2File(path string) (*sf2, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AssetError{Path: path, Err: err}
	}
	sf, err := parseSF2(data)
	if err != nil {
		return nil, &AssetError{Path: path, Err: err}
	}
	return sf, nil
}

func parseSF2(data []byte) (*sf2, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "sfbk" {
		return nil, fmt.Errorf("not a SoundFont (RIFF sfbk) file")
	}
	sf := &sf2{}
	body := data[12:]
	for len(body) >= 8 {
		id := string(body[0:4])
		size := int(binary.LittleEndian.Uint32(body[4:8]))
		if size < 0 || 8+size > len(body) {
			return nil, fmt.Errorf("truncated chunk %q", id)
		}
		chunk := body[8 : 8+size]
		if id == "LIST" && len(chunk) >= 4 {
			listType := string(chunk[0:4])
			if err := sf.parseList(listType, chunk[4:]); err != nil {
				return nil, err
			}
		}
		if size%2 == 1 {
			size++ // chunks are word aligned
		}
		if 8+size > len(body) {
			break
		}
		body = body[8+size:]
	}
	if sf.smpl == nil {
		return nil, fmt.Errorf("missing smpl chunk")
	}
	if len(sf.phdr) == 0 || len(sf.shdr) == 0 {
		return nil, fmt.Errorf("missing preset or sample headers")
	}
	return sf, nil
}

func (sf *sf2) parseList(listType string, body []byte) error {
	for len(body) >= 8 {
		id := string(body[0:4])
		size := int(binary.LittleEndian.Uint32(body[4:8]))
		if size < 0 || 8+size > len(body) {
			return fmt.Errorf("truncated %s subchunk %q", listType, id)
		}
		chunk := body[8 : 8+size]
		switch listType + "/" + id {
		case "sdta/smpl":
			sf.smpl = make([]int16, len(chunk)/2)
			for i := range sf.smpl {
				sf.smpl[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
			}
		case "pdta/phdr":
			for off := 0; off+38 <= len(chunk); off += 38 {
				sf.phdr = append(sf.phdr, sfPreset{
					name:   cstr(chunk[off : off+20]),
					preset: binary.LittleEndian.Uint16(chunk[off+20:]),
					bank:   binary.LittleEndian.Uint16(chunk[off+22:]),
					bagNdx: binary.LittleEndian.Uint16(chunk[off+24:]),
				})
			}
		case "pdta/pbag":
			sf.pbag = parseBags(chunk)
		case "pdta/pgen":
			sf.pgen = parseGens(chunk)
		case "pdta/inst":
			for off := 0; off+22 <= len(chunk); off += 22 {
				sf.inst = append(sf.inst, sfInst{
					name:   cstr(chunk[off : off+20]),
					bagNdx: binary.LittleEndian.Uint16(chunk[off+20:]),
				})
			}
		case "pdta/ibag":
			sf.ibag = parseBags(chunk)
		case "pdta/igen":
			sf.igen = parseGens(chunk)
		case "pdta/shdr":
			for off := 0; off+46 <= len(chunk); off += 46 {
				sf.shdr = append(sf.shdr, sfSample{
					name:       cstr(chunk[off : off+20]),
					start:      binary.LittleEndian.Uint32(chunk[off+20:]),
					end:        binary.LittleEndian.Uint32(chunk[off+24:]),
					startLoop:  binary.LittleEndian.Uint32(chunk[off+28:]),
					endLoop:    binary.LittleEndian.Uint32(chunk[off+32:]),
					sampleRate: binary.LittleEndian.Uint32(chunk[off+36:]),
					pitch:      chunk[off+40],
				})
			}
		}
		if size%2 == 1 {
			size++
		}
		if 8+size > len(body) {
			break
		}
		body = body[8+size:]
	}
	// strip the terminal EOP / EOS records
	if n := len(sf.phdr); n > 0 {
		sf.phdr = sf.phdr[:n-1]
	}
	if n := len(sf.shdr); n > 0 && strings.HasPrefix(sf.shdr[n-1].name, "EOS") {
		sf.shdr = sf.shdr[:n-1]
	}
	return nil
}

func parseBags(chunk []byte) []sfBag {
	out := make([]sfBag, 0, len(chunk)/4)
	for off := 0; off+4 <= len(chunk); off += 4 {
		out = append(out, sfBag{genNdx: binary.LittleEndian.Uint16(chunk[off:])})
	}
	return out
}

func parseGens(chunk []byte) []sfGen {
	out := make([]sfGen, 0, len(chunk)/4)
	for off := 0; off+4 <= len(chunk); off += 4 {
		out = append(out, sfGen{
			oper:   binary.LittleEndian.Uint16(chunk[off:]),
			amount: binary.LittleEndian.Uint16(chunk[off+2:]),
		})
	}
	return out
}

func cstr(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// presetZones resolves a preset to the instrument zones it plays.
func (sf *sf2) presetZones(presetIndex int) []instZone {
	lo := int(sf.phdr[presetIndex].bagNdx)
	hi := len(sf.pbag) - 1
	if presetIndex+1 < len(sf.phdr) {
		hi = int(sf.phdr[presetIndex+1].bagNdx)
	}
	var zones []instZone
	for z := lo; z < hi && z+1 < len(sf.pbag); z++ {
		for _, g := range sf.gens(sf.pgen, sf.pbag, z) {
			if g.oper == sfGenInstrument {
				zones = append(zones, sf.instrumentZones(int(g.amount))...)
			}
		}
	}
	return zones
}

func (sf *sf2) instrumentZones(instIndex int) []instZone {
	if instIndex < 0 || instIndex >= len(sf.inst)-1 {
		return nil
	}
	lo := int(sf.inst[instIndex].bagNdx)
	hi := int(sf.inst[instIndex+1].bagNdx)

	var zones []instZone
	globalRoot := -1
	globalLoops := false
	for z := lo; z < hi && z+1 < len(sf.ibag); z++ {
		zone := instZone{sampleNdx: -1, rootKey: globalRoot, loops: globalLoops}
		for _, g := range sf.gens(sf.igen, sf.ibag, z) {
			switch g.oper {
			case sfGenOverridingRootKey:
				zone.rootKey = int(int16(g.amount))
			case sfGenSampleModes:
				zone.loops = g.amount == 1 || g.amount == 3
			case sfGenSampleID:
				zone.sampleNdx = int(g.amount)
			}
		}
		if zone.sampleNdx < 0 {
			// a zone without a sample is the global zone
			if z == lo {
				globalRoot = zone.rootKey
				globalLoops = zone.loops
			}
			continue
		}
		zones = append(zones, zone)
	}
	return zones
}

func (sf *sf2) gens(gens []sfGen, bags []sfBag, zone int) []sfGen {
	lo := int(bags[zone].genNdx)
	hi := int(bags[zone+1].genNdx)
	if lo > len(gens) {
		lo = len(gens)
	}
	if hi > len(gens) {
		hi = len(gens)
	}
	return gens[lo:hi]
}

func (sf *sf2) addZoneAsset(b *Bank, z instZone, path string, renderRate int) error {
	if z.sampleNdx >= len(sf.shdr) {
		return &AssetError{Path: path, Err: fmt.Errorf("zone references sample %d of %d", z.sampleNdx, len(sf.shdr))}
	}
	hdr := sf.shdr[z.sampleNdx]
	if hdr.end <= hdr.start || int(hdr.end) > len(sf.smpl) || hdr.sampleRate == 0 {
		return &AssetError{Path: path, Err: fmt.Errorf("sample %q has invalid bounds", hdr.name)}
	}

	rootKey := z.rootKey
	if rootKey < 0 {
		rootKey = int(hdr.pitch)
	}
	if rootKey > 127 {
		rootKey = 60 // spec marks 255 as unpitched
	}
	note := notes.MIDIToName(rootKey)
	if _, dup := b.byNote[note]; dup {
		return nil
	}

	raw := sf.smpl[hdr.start:hdr.end]
	data := make([]float64, len(raw))
	for i, v := range raw {
		data[i] = float64(v) / 32768
	}
	data = prepare(data)

	origRate := int(hdr.sampleRate)
	data, err := wavutil.ResampleIfNeeded(data, origRate, renderRate)
	if err != nil {
		return &AssetError{Path: path, Err: err}
	}

	dur := float64(len(data)) / float64(renderRate)
	a := &Asset{
		Note:    note,
		Data:    data,
		RootHz:  notes.MIDIToHz(rootKey),
		LoopEnd: dur,
	}
	if z.loops && hdr.endLoop > hdr.startLoop && hdr.startLoop >= hdr.start {
		a.LoopStart = float64(hdr.startLoop-hdr.start) / float64(origRate)
		a.LoopEnd = float64(hdr.endLoop-hdr.start) / float64(origRate)
		if a.LoopEnd > dur {
			a.LoopEnd = dur
		}
		if a.LoopStart < a.LoopEnd {
			a.HasLoop = true
		} else {
			a.LoopStart, a.LoopEnd = 0, dur
		}
	}
	b.add(a)
	return nil
}
