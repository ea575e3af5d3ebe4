// Package audio decodes and writes 16-bit PCM WAV files.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"songprint/pkg/codes"
)

// WavInfo holds the decoded contents of a WAV file. Samples are the
// raw 16-bit values promoted to float64 without normalization; for
// mono input RightSamples is empty.
type WavInfo struct {
	SampleRate   int
	DurationSec  float64
	LeftSamples  []float64
	RightSamples []float64
}

type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// readRIFFHeader reads and validates the RIFF/WAVE header (12 bytes)
func readRIFFHeader(f *os.File) error {
	var riff [4]byte
	var fileSize uint32
	var wave [4]byte

	if err := binary.Read(f, binary.LittleEndian, &riff); err != nil {
		return fmt.Errorf("reading RIFF header: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &fileSize); err != nil {
		return fmt.Errorf("reading RIFF size: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &wave); err != nil {
		return fmt.Errorf("reading WAVE id: %w", err)
	}

	if string(riff[:]) != "RIFF" || string(wave[:]) != "WAVE" {
		return errors.New("not a WAV/RIFF file")
	}

	return nil
}

// readFmtChunk reads the fmt chunk and returns format information
func readFmtChunk(f *os.File, chunkSize uint32) (*wavFormat, error) {
	var audioFormat uint16
	var numChannels uint16
	var sampleRate uint32
	var byteRate uint32
	var blockAlign uint16
	var bitsPerSample uint16

	if err := binary.Read(f, binary.LittleEndian, &audioFormat); err != nil {
		return nil, fmt.Errorf("reading fmt audioFormat: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &numChannels); err != nil {
		return nil, fmt.Errorf("reading fmt numChannels: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &sampleRate); err != nil {
		return nil, fmt.Errorf("reading fmt sampleRate: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &byteRate); err != nil {
		return nil, fmt.Errorf("reading fmt byteRate: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &blockAlign); err != nil {
		return nil, fmt.Errorf("reading fmt blockAlign: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &bitsPerSample); err != nil {
		return nil, fmt.Errorf("reading fmt bitsPerSample: %w", err)
	}

	// If there are extra bytes in fmt chunk, skip them
	remaining := int(chunkSize) - 16
	if remaining > 0 {
		if _, err := f.Seek(int64(remaining), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seeking past fmt extras: %w", err)
		}
	}

	return &wavFormat{
		AudioFormat:   audioFormat,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
	}, nil
}

// scanWavChunks scans through WAV chunks to find the fmt and data chunks
func scanWavChunks(f *os.File) (*wavFormat, []byte, error) {
	var format wavFormat
	var dataChunk []byte
	fmtFound := false
	dataFound := false

	for {
		// Read next chunk header: ID (4) + Size (4)
		var chunkID [4]byte
		var chunkSize uint32

		if err := binary.Read(f, binary.LittleEndian, &chunkID); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("reading chunk header: %w", err)
		}
		if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
			return nil, nil, fmt.Errorf("reading chunk size: %w", err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			parsed, err := readFmtChunk(f, chunkSize)
			if err != nil {
				return nil, nil, err
			}
			format = *parsed
			fmtFound = true

		case "data":
			dataChunk = make([]byte, chunkSize)
			if _, err := io.ReadFull(f, dataChunk); err != nil {
				return nil, nil, fmt.Errorf("reading data chunk: %w", err)
			}
			dataFound = true

		default:
			// Unknown chunk (e.g., LIST, INFO, junk). Skip it.
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("skipping chunk %s: %w", string(chunkID[:]), err)
			}
		}

		// If chunk size is odd, skip pad byte
		if chunkSize%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("seeking pad byte: %w", err)
			}
		}

		if fmtFound && dataFound {
			break
		}
	}

	if !fmtFound {
		return nil, nil, errors.New("fmt chunk not found")
	}
	if !dataFound {
		return nil, nil, errors.New("data chunk not found")
	}

	return &format, dataChunk, nil
}

// ReadWavInfo decodes a 16-bit PCM WAV file with 1 or 2 channels.
// Interleaved stereo data is split into independent left/right sample
// vectors (even positions -> left, odd -> right). Sample values keep
// their 16-bit magnitude.
func ReadWavInfo(path string) (*WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, codes.Mark(codes.ErrFileNotFound, err)
	}
	defer f.Close()

	if err := readRIFFHeader(f); err != nil {
		return nil, codes.Mark(codes.ErrIncompatibleFile, err)
	}

	format, data, err := scanWavChunks(f)
	if err != nil {
		return nil, codes.Mark(codes.ErrIncompatibleFile, err)
	}

	if format.AudioFormat != 1 {
		return nil, codes.Markf(codes.ErrIncompatibleFile, "unsupported WAV audio format %d, expected PCM", format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		return nil, codes.Markf(codes.ErrIncompatibleFile, "unsupported bits per sample %d, expected 16", format.BitsPerSample)
	}
	if format.NumChannels != 1 && format.NumChannels != 2 {
		return nil, codes.Markf(codes.ErrIncompatibleFile, "unsupported channel count %d, expected 1 or 2", format.NumChannels)
	}

	raw := make([]int16, len(data)/2)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, raw); err != nil {
		return nil, codes.Mark(codes.ErrIncompatibleFile, fmt.Errorf("decoding PCM samples: %w", err))
	}

	frames := len(raw) / int(format.NumChannels)
	info := &WavInfo{
		SampleRate:  int(format.SampleRate),
		DurationSec: float64(frames) / float64(format.SampleRate),
	}

	if format.NumChannels == 1 {
		info.LeftSamples = make([]float64, len(raw))
		for i, s := range raw {
			info.LeftSamples[i] = float64(s)
		}
		return info, nil
	}

	info.LeftSamples = make([]float64, 0, frames)
	info.RightSamples = make([]float64, 0, frames)
	for i, s := range raw {
		if i%2 == 0 {
			info.LeftSamples = append(info.LeftSamples, float64(s))
		} else {
			info.RightSamples = append(info.RightSamples, float64(s))
		}
	}
	return info, nil
}
