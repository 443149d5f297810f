// Package spectrum decodes audio to mono PCM and answers frequency-band
// level queries for the equalizer display.
package spectrum

import (
	"context"
	"math"
	"math/cmplx"
	"os"
	"sync"
	"time"

	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
	"github.com/mjibson/go-dsp/fft"
)

// Analyzer decodes one track at a time in the background and computes
// NumBands intensity levels (0..MaxLevel) at a playback position.
//
// Decode failures leave the analyzer not-ready instead of erroring:
// spectrum data is optional and callers fall back to synthetic levels.
type Analyzer struct {
	mu         sync.Mutex
	samples    []float64
	sampleRate int
	generation uint64

	window  []float64
	bands   []bandRange
	tempDir string
	log     *logger.Logger
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		sampleRate: SampleRate,
		window:     Hann(FFTSize),
		bands:      computeBandEdges(SampleRate),
		tempDir:    os.TempDir(),
		log:        logger.GetLogger(),
	}
}

// Ready reports whether a decode has completed and levels are available.
func (a *Analyzer) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.samples != nil
}

// Load invalidates any previous decode and starts decoding path in the
// background. A Load issued while an earlier decode is still running wins;
// the stale result is discarded when it lands.
func (a *Analyzer) Load(path string) {
	a.mu.Lock()
	a.samples = nil
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	go a.decode(path, gen)
}

func (a *Analyzer) decode(path string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	wavPath, err := ConvertToMonoWAV(ctx, path, a.tempDir, SampleRate)
	if err != nil {
		a.log.Warnf("spectrum: decode of %s failed: %v", path, err)
		return
	}
	defer os.Remove(wavPath)

	samples, sr, err := ReadWAVAsFloat64(wavPath)
	if err != nil {
		a.log.Warnf("spectrum: reading %s failed: %v", wavPath, err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		return // a newer Load superseded this decode
	}
	a.samples = samples
	a.sampleRate = sr
	a.log.Debugf("spectrum: decoded %d samples at %d Hz", len(samples), sr)
}

// Levels returns NumBands band levels at positionMs, or nil when no decode
// is available. Positions whose analysis window runs past the end of the
// decoded samples yield all-zero levels: silence at the tail of a track is
// an expected state, not an error.
func (a *Analyzer) Levels(positionMs int) []int {
	a.mu.Lock()
	samples := a.samples
	sr := a.sampleRate
	a.mu.Unlock()

	if samples == nil {
		return nil
	}

	sampleIdx := positionMs * sr / 1000
	start := sampleIdx - FFTSize/2
	if start < 0 {
		start = 0
	}
	end := start + FFTSize
	if end > len(samples) {
		return make([]int, NumBands)
	}

	frame := make([]float64, FFTSize)
	for i := 0; i < FFTSize; i++ {
		frame[i] = samples[start+i] * a.window[i]
	}

	spectrum := fft.FFTReal(frame)
	mags := make([]float64, FFTSize/2)
	for i := range mags {
		mags[i] = cmplx.Abs(spectrum[i]) * 2.0 / FFTSize
	}

	levels := make([]int, 0, NumBands)
	for _, band := range a.bands {
		hi := band.High
		if hi > len(mags) {
			hi = len(mags)
		}
		if band.Low >= hi {
			levels = append(levels, 0)
			continue
		}
		var sum float64
		for i := band.Low; i < hi; i++ {
			sum += mags[i] * mags[i]
		}
		rms := math.Sqrt(sum / float64(hi-band.Low))
		db := 20.0 * math.Log10(rms+1e-10)
		levels = append(levels, levelFromDB(db))
	}
	return levels
}

// SetTempDir overrides where converted WAV files are written.
func (a *Analyzer) SetTempDir(dir string) {
	a.tempDir = dir
}

// loadSamples installs pre-decoded samples directly, bypassing ffmpeg.
// Used by tests.
func (a *Analyzer) loadSamples(samples []float64, sampleRate int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = samples
	a.sampleRate = sampleRate
	a.bands = computeBandEdges(sampleRate)
}
