// Package channels models the output bus as an array of virtual
// microphones. Each mic weights incoming notes by an antenna pattern
// evaluated at the note's spatial position, which is how the mixer
// pans sources across standard mono/stereo/surround layouts.
package channels

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MicType selects the antenna pattern of a virtual microphone.
type MicType int

const (
	// Directional mics follow a cardioid-like response centred on
	// their azimuth, scaled by the polar angle.
	Directional MicType = iota
	// Omni mics take every source at full gain regardless of
	// position.
	Omni
	// Mute mics take nothing; used for centre and LFE channels that
	// spatialised material should not leak into.
	Mute
	// Ambisonic mics encode one spherical-harmonic component of the
	// sound field (ambiX channel ordering, SN3D normalisation).
	Ambisonic
)

// Mic is one virtual microphone of a Setup.
type Mic struct {
	Label   string
	Type    MicType
	Azimuth float64 // radians, 0 is straight ahead, counterclockwise
	ACN     int     // ambisonic channel number, Ambisonic mics only
}

// Antenna returns the gain this mic applies to a source at the given
// position: azimuth in radians and polar in radians, with polar =
// pi/2 on the horizontal plane. The polar term scales only the
// cosine lobe, so directional mics keep a 0.5 floor at the poles.
func (m Mic) Antenna(azimuth, polar float64) float64 {
	switch m.Type {
	case Omni:
		return 1
	case Mute:
		return 0
	case Ambisonic:
		return m.ambisonicGain(azimuth, polar)
	}
	return 0.5 * (1 + math.Cos(azimuth-m.Azimuth)*math.Sin(polar))
}

// ambisonicGain evaluates the mic's spherical harmonic at the source
// position. The ambiX channel number decomposes into order l and
// degree m; the harmonic is SN3D-normalised, with the sign flipped to
// cancel the Condon-Shortley phase of the Legendre recurrence.
func (m Mic) ambisonicGain(azimuth, polar float64) float64 {
	l := int(math.Sqrt(float64(m.ACN)))
	deg := m.ACN - l*(l+1)
	mabs := deg
	if mabs < 0 {
		mabs = -mabs
	}

	norm := 2.0
	if mabs == 0 {
		norm -= math.Pi / 4
	}
	norm = math.Sqrt(norm * factorial(l-mabs) / factorial(l+mabs))

	trig := math.Cos(float64(mabs) * azimuth)
	if deg < 0 {
		trig = math.Sin(float64(mabs) * azimuth)
	}
	sign := 1.0
	if mabs%2 == 1 {
		sign = -1
	}
	return norm * sign * legendre(mabs, l, math.Cos(polar)) * trig
}

// legendre evaluates the associated Legendre polynomial P_l^m(x) with
// the Condon-Shortley phase, for integer 0 <= m <= l.
func legendre(m, l int, x float64) float64 {
	// P_m^m by the closed form, then raise the order by recurrence
	pmm := 1.0
	if m > 0 {
		s := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 0; i < m; i++ {
			pmm *= -fact * s
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	pm1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pm1
	}
	var p float64
	for k := m + 2; k <= l; k++ {
		p = (float64(2*k-1)*x*pm1 - float64(k+m-1)*pmm) / float64(k-m)
		pmm, pm1 = pm1, p
	}
	return p
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// Setup is an ordered array of microphones; the order is the channel
// order written to the output file.
type Setup struct {
	Name string
	Mics []Mic
}

// NChannels returns the number of output channels.
func (s Setup) NChannels() int { return len(s.Mics) }

// NewSetup returns a standard layout: "mono", "stereo", "5.1", "7.1"
// or "ambiX<order>" (e.g. "ambiX1" for first-order ambisonics, one
// channel per spherical-harmonic component in ACN order).
func NewSetup(name string) (Setup, error) {
	switch name {
	case "mono":
		return Setup{Name: name, Mics: []Mic{
			{Label: "C", Type: Omni},
		}}, nil
	case "stereo":
		return Setup{Name: name, Mics: []Mic{
			{Label: "L", Type: Directional, Azimuth: math.Pi / 2},
			{Label: "R", Type: Directional, Azimuth: 3 * math.Pi / 2},
		}}, nil
	case "5.1":
		return Setup{Name: name, Mics: []Mic{
			{Label: "FL", Type: Directional, Azimuth: math.Pi / 3},
			{Label: "FR", Type: Directional, Azimuth: 5 * math.Pi / 3},
			{Label: "FC", Type: Mute},
			{Label: "LFE", Type: Mute},
			{Label: "SL", Type: Directional, Azimuth: 2 * math.Pi / 3},
			{Label: "SR", Type: Directional, Azimuth: 4 * math.Pi / 3},
		}}, nil
	case "7.1":
		return Setup{Name: name, Mics: []Mic{
			{Label: "FL", Type: Directional, Azimuth: math.Pi / 3},
			{Label: "FR", Type: Directional, Azimuth: 5 * math.Pi / 3},
			{Label: "FC", Type: Mute},
			{Label: "LFE", Type: Mute},
			{Label: "BL", Type: Directional, Azimuth: 5 * math.Pi / 6},
			{Label: "BR", Type: Directional, Azimuth: 7 * math.Pi / 6},
			{Label: "SL", Type: Directional, Azimuth: math.Pi / 2},
			{Label: "SR", Type: Directional, Azimuth: 3 * math.Pi / 2},
		}}, nil
	}
	if order, ok := strings.CutPrefix(name, "ambiX"); ok {
		n, err := strconv.Atoi(order)
		if err != nil || n < 0 {
			return Setup{}, fmt.Errorf("malformed ambisonic setup %q (want e.g. \"ambiX1\")", name)
		}
		nchan := (n + 1) * (n + 1)
		mics := make([]Mic, nchan)
		for acn := range mics {
			mics[acn] = Mic{Label: "C" + strconv.Itoa(acn), Type: Ambisonic, ACN: acn}
		}
		return Setup{Name: name, Mics: mics}, nil
	}
	return Setup{}, fmt.Errorf("unknown channel setup %q (want mono, stereo, 5.1, 7.1 or ambiX<order>)", name)
}

// Custom builds a setup from explicit microphones.
func Custom(name string, mics []Mic) (Setup, error) {
	if len(mics) == 0 {
		return Setup{}, fmt.Errorf("custom setup needs at least one mic")
	}
	return Setup{Name: name, Mics: append([]Mic(nil), mics...)}, nil
}
