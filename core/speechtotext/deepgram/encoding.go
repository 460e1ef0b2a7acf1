package deepgram

import (
	"fmt"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
)

type encodingInfo struct {
	SampleRate int
	Format     string
	Channels   int
}

func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	converted := encodingInfo{Channels: encoding.Channels}
	if converted.Channels <= 0 {
		converted.Channels = 1
	}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.Format = "linear16"
	case audio.EncodingALaw, audio.EncodingMulaw:
		if converted.SampleRate != 8000 {
			return nil, fmt.Errorf("unsupported sample rate %d for %s encoding", converted.SampleRate, encoding.Format.Name())
		}
		converted.Format = encoding.Format.Name()
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return &converted, nil
}
