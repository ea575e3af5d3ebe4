// Package fingerprint turns PCM sample streams into compact 32-bit
// fingerprint hashes: spectrogram construction, band-limited peak
// extraction, and anchor/target pair hashing.
package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"songprint/pkg/codes"
)

// DSP constants. These are part of the catalog's wire-level contract:
// changing any of them invalidates every previously stored hash.
const (
	MaxFrequency = 5000.0 // low-pass cutoff, Hz
	DSPRatio     = 4
	WindowSize   = 1024
	ScrollSize   = WindowSize / 2
)

// Spectrogram converts a sample stream into magnitude frames: low-pass
// filter, block-mean decimation to sampleRate/DSPRatio, then a
// Hann-windowed short-time DFT advancing by ScrollSize. Each frame
// holds WindowSize magnitudes. Empty input yields an empty spectrogram.
func Spectrogram(samples []float64, sampleRate int) ([][]float64, error) {
	spectrogram := make([][]float64, 0)

	if len(samples) == 0 {
		return spectrogram, nil
	}

	filtered := LowPassFilter(samples, MaxFrequency, float64(sampleRate))

	downsampled, err := Downsample(filtered, sampleRate, sampleRate/DSPRatio)
	if err != nil {
		return nil, err
	}
	filtered = nil

	window := HannWindow(WindowSize)

	for start := 0; start+WindowSize < len(downsampled); start += ScrollSize {
		frame := make([]complex128, WindowSize)
		for k := 0; k < WindowSize; k++ {
			frame[k] = complex(window[k]*downsampled[start+k], 0)
		}

		out := fft.FFT(frame)

		magnitude := make([]float64, WindowSize)
		for k, v := range out {
			magnitude[k] = cmplx.Abs(v)
		}
		spectrogram = append(spectrogram, magnitude)
	}

	return spectrogram, nil
}

// LowPassFilter is a first-order low-pass filter attenuating
// frequencies above cutoffFrequency. Unity gain at DC.
func LowPassFilter(input []float64, cutoffFrequency, sampleRate float64) []float64 {
	timeConstant := 1.0 / (2 * math.Pi * cutoffFrequency)
	dt := 1.0 / sampleRate
	alpha := dt / (timeConstant + dt)

	filtered := make([]float64, len(input))
	var prev float64

	for i, x := range input {
		if i == 0 {
			filtered[i] = x * alpha
		} else {
			filtered[i] = alpha*x + (1-alpha)*prev
		}
		prev = filtered[i]
	}
	return filtered
}

// Downsample reduces the sample rate by averaging contiguous blocks of
// sampleRate/targetRate input samples; the final block may be short.
func Downsample(input []float64, sampleRate, targetRate int) ([]float64, error) {
	if targetRate > sampleRate {
		return nil, codes.Markf(codes.ErrSpectrogramFailure, "target sample rate %d exceeds source rate %d", targetRate, sampleRate)
	}
	if targetRate <= 0 {
		return nil, codes.Markf(codes.ErrSpectrogramFailure, "invalid target sample rate %d", targetRate)
	}
	ratio := sampleRate / targetRate
	if ratio <= 0 {
		return nil, codes.Markf(codes.ErrSpectrogramFailure, "invalid ratio from sample rates %d/%d", sampleRate, targetRate)
	}

	resampled := make([]float64, 0, (len(input)+ratio-1)/ratio)
	for i := 0; i < len(input); i += ratio {
		end := i + ratio
		if end > len(input) {
			end = len(input)
		}

		sum := 0.0
		for j := i; j < end; j++ {
			sum += input[j]
		}
		resampled = append(resampled, sum/float64(end-i))
	}

	return resampled, nil
}

// HannWindow returns the WindowSize-point Hann window with the
// size-1 denominator, so w[0] == w[size-1] == 0.
func HannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := range window {
		theta := 2 * math.Pi * float64(i) / float64(size-1)
		window[i] = 0.5 - 0.5*math.Cos(theta)
	}
	return window
}
