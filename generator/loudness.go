package generator

import "math"

// ISO 226:2003 equal-loudness contour coefficients.
var iso226Freqs = []float64{
	20, 25, 31.5, 40, 50, 63, 80, 100, 125, 160, 200, 250, 315, 400,
	500, 630, 800, 1000, 1250, 1600, 2000, 2500, 3150, 4000, 5000,
	6300, 8000, 10000, 12500,
}

var iso226Af = []float64{
	0.532, 0.506, 0.480, 0.455, 0.432, 0.409, 0.387, 0.367, 0.349,
	0.330, 0.315, 0.301, 0.288, 0.276, 0.267, 0.259, 0.253, 0.250,
	0.246, 0.244, 0.243, 0.243, 0.243, 0.242, 0.242, 0.245, 0.254,
	0.271, 0.301,
}

var iso226Lu = []float64{
	-31.6, -27.2, -23.0, -19.1, -15.9, -13.0, -10.3, -8.1, -6.2,
	-4.5, -3.1, -2.0, -1.1, -0.4, 0.0, 0.3, 0.5, 0.0, -2.7, -4.1,
	-1.0, 1.7, 2.5, 1.2, -2.1, -7.1, -11.2, -10.7, -3.1,
}

var iso226Tf = []float64{
	78.5, 68.7, 59.5, 51.1, 44.0, 37.5, 31.5, 26.5, 22.1, 17.9,
	14.4, 11.4, 8.6, 6.2, 4.4, 3.0, 2.2, 2.4, 3.5, 1.7, -1.3,
	-4.2, -6.0, -5.4, -1.5, 6.0, 12.6, 13.9, 12.3,
}

const loudnessPhon = 70

// spl70 holds the sound pressure level in dB needed for 70 phon at
// each contour frequency.
var spl70 = func() []float64 {
	out := make([]float64, len(iso226Freqs))
	for i := range out {
		af, lu, tf := iso226Af[i], iso226Lu[i], iso226Tf[i]
		a := 4.47e-3*(math.Pow(10, 0.025*loudnessPhon)-1.15) +
			math.Pow(0.4*math.Pow(10, (tf+lu)/10-9), af)
		out[i] = 10/af*math.Log10(a) - lu + 94
	}
	return out
}()

// loudnessWeight returns the linear gain that equalises perceived
// loudness at freq against 1 kHz along the 70-phon contour: bins the
// ear hears less well are boosted. Frequencies outside the contour
// clamp to its endpoints. Interpolation is linear in log frequency.
func loudnessWeight(freq float64) float64 {
	ref := splAt(1000)
	return math.Pow(10, (splAt(freq)-ref)/20)
}

func splAt(freq float64) float64 {
	n := len(iso226Freqs)
	if freq <= iso226Freqs[0] {
		return spl70[0]
	}
	if freq >= iso226Freqs[n-1] {
		return spl70[n-1]
	}
	for i := 1; i < n; i++ {
		if freq <= iso226Freqs[i] {
			f := (math.Log(freq) - math.Log(iso226Freqs[i-1])) /
				(math.Log(iso226Freqs[i]) - math.Log(iso226Freqs[i-1]))
			return spl70[i-1] + f*(spl70[i]-spl70[i-1])
		}
	}
	return spl70[n-1]
}
