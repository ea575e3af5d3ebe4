package fingerprint

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songprint/pkg/codes"
)

func TestHannWindow(t *testing.T) {
	window := HannWindow(WindowSize)
	require.Len(t, window, WindowSize)

	// Symmetric about the center, zero at the edges, maximum in the middle.
	for k := 0; k < WindowSize/2; k++ {
		assert.InDelta(t, window[WindowSize-1-k], window[k], 1e-12, "k=%d", k)
	}
	assert.Zero(t, window[0])
	assert.InDelta(t, 0.0, window[WindowSize-1], 1e-12)

	max := window[0]
	for _, v := range window {
		if v > max {
			max = v
		}
	}
	assert.InDelta(t, max, window[WindowSize/2], 1e-12)
}

func TestLowPassFilterUnityGainAtDC(t *testing.T) {
	const v = 1000.0
	input := make([]float64, 44100)
	for i := range input {
		input[i] = v
	}

	filtered := LowPassFilter(input, MaxFrequency, 44100)
	require.Len(t, filtered, len(input))

	// First output is attenuated by alpha, then converges to the input.
	assert.Less(t, filtered[0], v)
	assert.InDelta(t, v, filtered[len(filtered)-1], 1e-6)
}

func TestDownsampleLength(t *testing.T) {
	for _, tc := range []struct {
		n, rate, target, want int
	}{
		{1000, 44100, 11025, 250},
		{1001, 44100, 11025, 251},
		{1003, 44100, 11025, 251},
		{5, 8, 2, 2},
	} {
		input := make([]float64, tc.n)
		out, err := Downsample(input, tc.rate, tc.target)
		require.NoError(t, err)
		assert.Len(t, out, tc.want, "n=%d ratio=%d", tc.n, tc.rate/tc.target)
	}
}

func TestDownsampleBlockMean(t *testing.T) {
	input := []float64{1, 2, 3, 4, 10, 20, 30, 40, 7}

	out, err := Downsample(input, 44100, 11025)
	require.NoError(t, err)

	// Full blocks average; the truncated tail averages what remains.
	assert.Equal(t, []float64{2.5, 25, 7}, out)
}

func TestDownsampleInvalidRates(t *testing.T) {
	_, err := Downsample([]float64{1, 2, 3}, 11025, 44100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrSpectrogramFailure))

	_, err = Downsample([]float64{1, 2, 3}, 3, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrSpectrogramFailure))
}

func TestSpectrogramEmptyInput(t *testing.T) {
	spec, err := Spectrogram(nil, 44100)
	require.NoError(t, err)
	assert.Empty(t, spec)
}

func TestSpectrogramFrameGeometry(t *testing.T) {
	const sampleRate = 44100
	samples := makeTone(t, 440, 2.0, sampleRate)

	spec, err := Spectrogram(samples, sampleRate)
	require.NoError(t, err)
	require.NotEmpty(t, spec)

	// The window only runs while start+WindowSize is strictly inside
	// the decimated stream.
	decimated := len(samples) / DSPRatio
	wantFrames := 0
	for start := 0; start+WindowSize < decimated; start += ScrollSize {
		wantFrames++
	}
	assert.Len(t, spec, wantFrames)

	for i, frame := range spec {
		require.Len(t, frame, WindowSize, "frame %d", i)
		for _, magnitude := range frame {
			assert.GreaterOrEqual(t, magnitude, 0.0)
		}
	}
}

func TestSpectrogramDeterministic(t *testing.T) {
	samples := makeTone(t, 1000, 1.5, 44100)

	first, err := Spectrogram(samples, 44100)
	require.NoError(t, err)
	second, err := Spectrogram(samples, 44100)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func makeTone(t *testing.T, freq, durationSec float64, sampleRate int) []float64 {
	t.Helper()
	n := int(durationSec * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 20000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}
