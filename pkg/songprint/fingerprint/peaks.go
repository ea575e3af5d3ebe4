package fingerprint

// Peak is a salient time-frequency point in a spectrogram.
type Peak struct {
	Freq float64 // Hz
	Time float64 // seconds
}

type frequencyBand struct {
	min int // inclusive bin index
	max int // exclusive bin index
}

// Logarithmically growing bin bands over the low half of the spectrum,
// roughly tracking the ranges human hearing resolves best.
var frequencyBands = []frequencyBand{
	{0, 10},
	{10, 20},
	{20, 40},
	{40, 80},
	{80, 160},
	{160, 512},
}

// ExtractPeaks finds, per frame, the strongest bin inside each band and
// keeps those whose magnitude strictly exceeds the mean of the six band
// maxima. Peak coordinates are derived from the post-decimation rate.
//
// The recorded bin index intentionally reproduces the enrolled
// catalog's off-by-one: whenever the band maximum is not the band's
// first bin, the index reported is one below the true argmax.
func ExtractPeaks(spectrogram [][]float64, durationSec float64, sampleRate int) []Peak {
	peaks := make([]Peak, 0)

	if len(spectrogram) < 1 {
		return peaks
	}

	frameDuration := durationSec / float64(len(spectrogram))
	effectiveSampleRate := float64(sampleRate) / float64(DSPRatio)
	frequencyResolution := effectiveSampleRate / float64(WindowSize)

	type bandMax struct {
		magnitude float64
		freqIdx   int
	}

	for frameIdx, frame := range spectrogram {
		maxima := make([]bandMax, 0, len(frequencyBands))

		for _, band := range frequencyBands {
			best := bandMax{magnitude: frame[band.min], freqIdx: band.min}

			for k, v := range frame[band.min+1 : band.max] {
				if v > best.magnitude {
					best.magnitude = v
					best.freqIdx = band.min + k
				}
			}
			maxima = append(maxima, best)
		}

		var sum float64
		for _, m := range maxima {
			sum += m.magnitude
		}
		average := sum / float64(len(maxima))

		for _, m := range maxima {
			if m.magnitude > average {
				peaks = append(peaks, Peak{
					Time: frameDuration * float64(frameIdx),
					Freq: frequencyResolution * float64(m.freqIdx),
				})
			}
		}
	}

	return peaks
}
