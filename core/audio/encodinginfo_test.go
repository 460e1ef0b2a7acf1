package audio

import "testing"

func TestEncodingInfoSilence(t *testing.T) {
	tests := []struct {
		name     string
		encoding EncodingInfo
		ms       int
		length   int
		value    byte
	}{
		{name: "linear16", encoding: DefaultEncodingInfo(), ms: 50, length: 1600, value: 0},
		{name: "mulaw", encoding: EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}, ms: 100, length: 800, value: 0xFF},
		{name: "alaw stereo", encoding: EncodingInfo{SampleRate: 8000, Format: EncodingALaw, Channels: 2}, ms: 10, length: 160, value: 0x55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := tt.encoding.Silence(tt.ms)
			if len(chunk) != tt.length {
				t.Fatalf("expected %d bytes, got %d", tt.length, len(chunk))
			}
			for i, b := range chunk {
				if b != tt.value {
					t.Fatalf("expected byte %d to be %#x, got %#x", i, tt.value, b)
				}
			}
		})
	}
}

func TestEncodingInfoUnknownFormat(t *testing.T) {
	encoding := EncodingInfo{SampleRate: 16000, Format: encodingFormat("opus")}
	if encoding.BytesPerSecond() != -1 {
		t.Fatalf("expected unknown rate, got %d", encoding.BytesPerSecond())
	}
	if chunk := encoding.Silence(20); chunk != nil {
		t.Fatalf("expected no silence for unknown format, got %d bytes", len(chunk))
	}
	if (EncodingInfo{}).IsZero() != true {
		t.Fatalf("expected zero encoding to be zero")
	}
}
