package spectrum

import "math"

// Tunables. The dB endpoints and band range are tuned heuristics carried
// over from the device firmware; change them here, not inline.
const (
	NumBands   = 12
	MaxLevel   = 12
	FFTSize    = 2048
	SampleRate = 44100

	MinFreqHz = 60.0
	MaxFreqHz = 16000.0
	MinDB     = -48.0
	MaxDB     = -3.0
)

// bandRange is a half-open [Low, High) range of FFT bin indices.
type bandRange struct {
	Low  int
	High int
}

// computeBandEdges precomputes the FFT bin range for each of the NumBands
// log-spaced frequency bands between MinFreqHz and MaxFreqHz.
func computeBandEdges(sampleRate int) []bandRange {
	edges := make([]bandRange, 0, NumBands)
	ratio := MaxFreqHz / MinFreqHz
	for i := 0; i < NumBands; i++ {
		loFreq := MinFreqHz * math.Pow(ratio, float64(i)/NumBands)
		hiFreq := MinFreqHz * math.Pow(ratio, float64(i+1)/NumBands)
		loBin := int(loFreq * FFTSize / float64(sampleRate))
		if loBin < 1 {
			loBin = 1
		}
		hiBin := int(hiFreq * FFTSize / float64(sampleRate))
		if hiBin < loBin+1 {
			hiBin = loBin + 1
		}
		edges = append(edges, bandRange{Low: loBin, High: hiBin})
	}
	return edges
}

// Hann returns a Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// levelFromDB maps a decibel value onto the 0..MaxLevel display range:
// MinDB and below -> 0, MaxDB and above -> MaxLevel.
func levelFromDB(db float64) int {
	level := (db - MinDB) * MaxLevel / (MaxDB - MinDB)
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return int(level)
}
