// Package speechtotext defines streaming transcription of local microphone
// audio.
package speechtotext

import (
	"context"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
)

// Transcriber streams audio to a transcription service and reports results
// through the callbacks passed to Transcribe.
type Transcriber interface {
	Transcribe(ctx context.Context, opts ...TranscriptionOption) error
	SendAudio(audio []byte) error
	Close() error
}

type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives the utterance heard so far,
	// including words that may still change.
	InterimTranscriptionCallback func(transcript string)
	// PartialTranscriptionCallback receives every finalized segment.
	PartialTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives the complete utterance once the
	// speaker finished.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
	Language     string
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

// WithLanguage selects the spoken language as a BCP-47 tag, e.g. "nl".
func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}
