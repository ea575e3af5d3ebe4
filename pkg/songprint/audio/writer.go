package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWav writes interleaved 16-bit PCM samples to path. With two
// channels the slice must alternate left/right.
func WriteWav(path string, samples []int, sampleRate, numChannels int) error {
	if sampleRate <= 0 || numChannels < 1 || numChannels > 2 {
		return fmt.Errorf("invalid WAV parameters (rate %d, channels %d)", sampleRate, numChannels)
	}
	if len(samples)%numChannels != 0 {
		return fmt.Errorf("sample count %d not divisible by %d channels", len(samples), numChannels)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("writing PCM data: %w", err)
	}
	return enc.Close()
}
