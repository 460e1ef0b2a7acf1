package deepgram

import "github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/speechtotext"

type callbacks struct {
	interimTranscriptionCallback func(transcript string)
	partialTranscriptionCallback func(transcript string)
	transcriptionCallback        func(transcript string)
	startSpeechCallback          func()
	endSpeechCallback            func()
}

type websocketConfig struct {
	shouldDetectSpeechStart            bool
	shouldEnhanceSpeechEndingDetection bool
	shouldRequestInterimResults        bool
}

// newCallbackConfig fills unset callbacks with no-ops and derives which
// listen features the configured callbacks need.
func newCallbackConfig(options speechtotext.TranscriptionOptions) (callbacks, websocketConfig) {
	config := websocketConfig{
		shouldDetectSpeechStart: options.SpeechStartedCallback != nil,
		shouldEnhanceSpeechEndingDetection: options.TranscriptionCallback != nil ||
			options.SpeechEndedCallback != nil,
		shouldRequestInterimResults: options.InterimTranscriptionCallback != nil,
	}

	noopTranscript := func(string) {}
	noop := func() {}
	cb := callbacks{
		interimTranscriptionCallback: noopTranscript,
		partialTranscriptionCallback: noopTranscript,
		transcriptionCallback:        noopTranscript,
		startSpeechCallback:          noop,
		endSpeechCallback:            noop,
	}
	if options.InterimTranscriptionCallback != nil {
		cb.interimTranscriptionCallback = options.InterimTranscriptionCallback
	}
	if options.PartialTranscriptionCallback != nil {
		cb.partialTranscriptionCallback = options.PartialTranscriptionCallback
	}
	if options.TranscriptionCallback != nil {
		cb.transcriptionCallback = options.TranscriptionCallback
	}
	if options.SpeechStartedCallback != nil {
		cb.startSpeechCallback = options.SpeechStartedCallback
	}
	if options.SpeechEndedCallback != nil {
		cb.endSpeechCallback = options.SpeechEndedCallback
	}

	return cb, config
}
