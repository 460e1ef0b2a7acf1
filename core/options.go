package orchestration

import (
	"context"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/speechtotext"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

type OrchestratorOption func(*Orchestrator)

// TokenSource issues the per-session token the avatar client authenticates
// with.
type TokenSource interface {
	FetchToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) FetchToken(ctx context.Context) (string, error) {
	return f(ctx)
}

func WithTokenSource(source TokenSource) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tokens = source
	}
}

func WithAvatarFactory(factory avatar.Factory) OrchestratorOption {
	return func(o *Orchestrator) {
		o.newClient = factory
	}
}

type Microphone interface {
	Acquire(ctx context.Context) error
	Release() error
}

// WithMicrophone sets the microphone that is checked when a session starts
// and held while it is live.
func WithMicrophone(microphone Microphone) OrchestratorOption {
	return func(o *Orchestrator) {
		o.microphone = microphone
	}
}

// WithoutMicrophone lets sessions start without checking audio capture, for
// clients that only type. Without it, Start fails with ErrMicrophoneDenied
// when no microphone is configured.
func WithoutMicrophone() OrchestratorOption {
	return func(o *Orchestrator) {
		o.microphone = nil
		o.textOnly = true
	}
}

func WithSessionConfig(config avatar.SessionConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessionConfig = config
	}
}

// WithDebug makes the avatar client log every event it receives.
func WithDebug(debug bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clientOptions.Debug = debug
	}
}

func WithAutoplay(autoplay bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clientOptions.Autoplay = autoplay
	}
}

// WithSilencePrompt lets the avatar prompt the user after a long silence in
// voice mode.
func WithSilencePrompt(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.voiceChatOptions.UseSilencePrompt = enabled
	}
}

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	Close() error
}

type AudioCapture interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

// WithSpeechToText transcribes the local microphone while the session is in
// voice mode. Final transcripts are handled like voice transcripts reported
// by the avatar service and forwarded to the avatar as questions.
func WithSpeechToText(client SpeechToText, capture AudioCapture) OrchestratorOption {
	return func(o *Orchestrator) {
		o.localVoice = localVoice{speechToText: client, capture: capture}
	}
}

type TranscriptArchive interface {
	Save(ctx context.Context, session transcript.Session) error
}

// WithTranscriptArchive saves the messages of every session when it ends.
func WithTranscriptArchive(archive TranscriptArchive) OrchestratorOption {
	return func(o *Orchestrator) {
		o.archive = archive
	}
}

type callbacks struct {
	onTranscript    func(message transcript.Message)
	onModeChanged   func(mode Mode)
	onStateChanged  func(state State)
	onUserTalking   func(talking bool)
	onAvatarTalking func(talking bool)
	onStreamReady   func(stream avatar.MediaStream)
	onSessionEnded  func(reason string)
	onDiagnostic    func(err error)
}

// WithTranscriptCallback registers a callback for every message appended to
// the transcript, typed, spoken or said by the avatar.
func WithTranscriptCallback(callback func(message transcript.Message)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onTranscript = callback
	}
}

func WithModeChangedCallback(callback func(mode Mode)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onModeChanged = callback
	}
}

func WithStateChangedCallback(callback func(state State)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onStateChanged = callback
	}
}

func WithUserTalkingCallback(callback func(talking bool)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onUserTalking = callback
	}
}

func WithAvatarTalkingCallback(callback func(talking bool)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onAvatarTalking = callback
	}
}

func WithStreamReadyCallback(callback func(stream avatar.MediaStream)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onStreamReady = callback
	}
}

// WithSessionEndedCallback registers a callback for the end of a live
// session, whether ended locally or by the avatar service.
func WithSessionEndedCallback(callback func(reason string)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onSessionEnded = callback
	}
}

// WithDiagnosticCallback registers a callback for failures that do not
// surface as an error of the call that caused them.
func WithDiagnosticCallback(callback func(err error)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onDiagnostic = callback
	}
}
