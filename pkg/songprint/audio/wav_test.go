package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songprint/pkg/codes"
)

func TestReadWavInfoMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")

	samples := []int{0, 1000, -1000, 32767, -32768, 42}
	require.NoError(t, WriteWav(path, samples, 44100, 1))

	info, err := ReadWavInfo(path)
	require.NoError(t, err)

	assert.Equal(t, 44100, info.SampleRate)
	assert.InDelta(t, float64(len(samples))/44100.0, info.DurationSec, 1e-9)
	assert.Empty(t, info.RightSamples)

	// Raw 16-bit values, no normalization.
	require.Len(t, info.LeftSamples, len(samples))
	for i, want := range samples {
		assert.Equal(t, float64(want), info.LeftSamples[i], "sample %d", i)
	}
}

func TestReadWavInfoStereoDeinterleaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	// Interleaved: even positions left, odd positions right.
	interleaved := []int{10, -10, 20, -20, 30, -30, 40, -40}
	require.NoError(t, WriteWav(path, interleaved, 22050, 2))

	info, err := ReadWavInfo(path)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 20, 30, 40}, info.LeftSamples)
	assert.Equal(t, []float64{-10, -20, -30, -40}, info.RightSamples)
	assert.InDelta(t, 4.0/22050.0, info.DurationSec, 1e-9)
}

func TestReadWavInfoFileNotFound(t *testing.T) {
	_, err := ReadWavInfo(filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrFileNotFound))
}

func TestReadWavInfoRejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a RIFF file"), 0o644))

	_, err := ReadWavInfo(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrIncompatibleFile))
}

func TestReadWavInfoRejectsWrongBitDepth(t *testing.T) {
	path := writeRawWav(t, 1, 8, []byte{0x80, 0x80, 0x80, 0x80})

	_, err := ReadWavInfo(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrIncompatibleFile))
}

func TestReadWavInfoRejectsTooManyChannels(t *testing.T) {
	path := writeRawWav(t, 4, 16, make([]byte, 16))

	_, err := ReadWavInfo(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codes.ErrIncompatibleFile))
}

// writeRawWav writes a minimal RIFF/WAVE file with an arbitrary format,
// bypassing the encoder so invalid formats can be produced.
func writeRawWav(t *testing.T, channels, bitsPerSample uint16, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	sampleRate := uint32(44100)
	byteRate := sampleRate * uint32(channels) * uint32(bitsPerSample) / 8
	blockAlign := channels * bitsPerSample / 8

	write := func(v any) {
		require.NoError(t, binary.Write(f, binary.LittleEndian, v))
	}

	f.WriteString("RIFF")
	write(uint32(36 + len(data)))
	f.WriteString("WAVE")

	f.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(channels)
	write(sampleRate)
	write(byteRate)
	write(blockAlign)
	write(bitsPerSample)

	f.WriteString("data")
	write(uint32(len(data)))
	_, err = f.Write(data)
	require.NoError(t, err)

	return path
}
