package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPeaksEmptySpectrogram(t *testing.T) {
	peaks := ExtractPeaks(nil, 1.0, 44100)
	assert.Empty(t, peaks)
}

func TestExtractPeaksSingleBandAboveMean(t *testing.T) {
	const sampleRate = 44100
	frequencyResolution := float64(sampleRate) / DSPRatio / WindowSize

	// One dominant bin in the [80,160) band; all other bands stay at
	// zero, so the mean of the band maxima is dominated/6 and only the
	// loud band emits a peak.
	frame := make([]float64, WindowSize)
	frame[93] = 600

	spec := [][]float64{frame, frame}
	peaks := ExtractPeaks(spec, 2.0, sampleRate)

	require.Len(t, peaks, 2)
	for i, p := range peaks {
		// The recorded bin sits one below the argmax (enrolled-catalog
		// compatibility), so 93 reports as 92.
		assert.InDelta(t, 92*frequencyResolution, p.Freq, 1e-9)
		assert.InDelta(t, float64(i)*1.0, p.Time, 1e-9, "frame %d", i)
	}
}

func TestExtractPeaksFirstBinKeepsIndex(t *testing.T) {
	const sampleRate = 44100
	frequencyResolution := float64(sampleRate) / DSPRatio / WindowSize

	// A maximum sitting on a band's first bin is reported as-is.
	frame := make([]float64, WindowSize)
	frame[160] = 500

	peaks := ExtractPeaks([][]float64{frame}, 1.0, sampleRate)

	require.Len(t, peaks, 1)
	assert.InDelta(t, 160*frequencyResolution, peaks[0].Freq, 1e-9)
}

func TestExtractPeaksMeanThresholdIsStrict(t *testing.T) {
	// All six band maxima equal: nothing strictly exceeds the mean.
	frame := make([]float64, WindowSize)
	for _, bin := range []int{5, 15, 30, 60, 120, 300} {
		frame[bin] = 7
	}

	peaks := ExtractPeaks([][]float64{frame}, 1.0, 44100)
	assert.Empty(t, peaks)
}

func TestExtractPeaksPureTone(t *testing.T) {
	const (
		sampleRate = 44100
		toneFreq   = 1000.0
	)
	frequencyResolution := float64(sampleRate) / DSPRatio / WindowSize

	samples := makeTone(t, toneFreq, 3.0, sampleRate)
	spec, err := Spectrogram(samples, sampleRate)
	require.NoError(t, err)

	peaks := ExtractPeaks(spec, 3.0, sampleRate)
	require.NotEmpty(t, peaks)

	// Every retained peak clusters within one bin of the tone, modulo
	// the one-bin index shift.
	for _, p := range peaks {
		assert.InDelta(t, toneFreq, p.Freq, 2*frequencyResolution,
			"peak at %.1f Hz strays from the tone", p.Freq)
	}
}
