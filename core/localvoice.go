package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/speechtotext"
)

// localVoice transcribes the local microphone while a session is in voice
// mode.
type localVoice struct {
	speechToText SpeechToText
	capture      AudioCapture
}

func (l localVoice) configured() bool {
	return l.speechToText != nil && l.capture != nil
}

type localVoiceCallbacks struct {
	onSpeechStarted func()
	onSpeechEnded   func()
	onTranscription func(transcript string)
}

func (o *Orchestrator) localVoiceCallbacks(sc *sessionContext) localVoiceCallbacks {
	return localVoiceCallbacks{
		onSpeechStarted: func() { o.handleUserTalking(sc, true) },
		onSpeechEnded:   func() { o.handleUserTalking(sc, false) },
		onTranscription: func(transcript string) { o.handleLocalTranscript(sc, transcript) },
	}
}

func (l localVoice) start(ctx context.Context, language string, callbacks localVoiceCallbacks) error {
	if !l.configured() {
		return nil
	}

	opts := []speechtotext.TranscriptionOption{
		speechtotext.WithEncodingInfo(l.capture.EncodingInfo()),
		speechtotext.WithSpeechStartedCallback(callbacks.onSpeechStarted),
		speechtotext.WithSpeechEndedCallback(callbacks.onSpeechEnded),
		speechtotext.WithTranscriptionCallback(callbacks.onTranscription),
	}
	if language != "" {
		opts = append(opts, speechtotext.WithLanguage(language))
	}

	if err := l.speechToText.Transcribe(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	err := l.capture.StartCapture(ctx, func(audio []byte) {
		if err := l.speechToText.SendAudio(audio); err != nil {
			logger.Debug("failed to send captured audio", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return errors.Join(fmt.Errorf("failed to start audio capture: %w", err), l.speechToText.Close())
	}
	return nil
}

func (l localVoice) stop() error {
	if !l.configured() {
		return nil
	}

	var errs []error
	if err := l.capture.StopCapture(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop audio capture: %w", err))
	}
	if err := l.speechToText.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close transcription: %w", err))
	}
	return errors.Join(errs...)
}
