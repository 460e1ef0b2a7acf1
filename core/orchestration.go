// Package orchestration drives a conversation with a remote streaming
// avatar: it starts and ends the remote session, switches between typed
// and spoken input, and turns the avatar's streamed speech into a transcript
// of complete sentences.
package orchestration

import (
	"context"
	"sync"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseActive   Phase = "active"
)

// State is a snapshot of what a user interface needs to render.
type State struct {
	Phase Phase
	Mode  Mode
	// SessionID is the avatar service's ID of the live session.
	SessionID     string
	UserTalking   bool
	AvatarTalking bool
	// Sending is set while a typed message is being delivered.
	Sending bool
}

type Orchestrator struct {
	tokens           TokenSource
	newClient        avatar.Factory
	microphone       Microphone
	textOnly         bool
	sessionConfig    avatar.SessionConfig
	clientOptions    avatar.ClientOptions
	voiceChatOptions avatar.VoiceChatOptions
	localVoice       localVoice
	archive          TranscriptArchive
	callbacks        callbacks

	transcript *transcript.Log

	// mu serializes every state change, user calls and avatar events alike.
	// Remote calls are made without holding it.
	mu      sync.Mutex
	pending *sessionContext
	session *sessionContext
	closed  bool

	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		transcript: transcript.NewLog(),
		sessionConfig: avatar.SessionConfig{
			Quality:            avatar.QualityHigh,
			DisableIdleTimeout: true,
		},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Transcript returns the messages of the conversation so far.
func (o *Orchestrator) Transcript() []transcript.Message {
	return o.transcript.Messages()
}

// ClearTranscript empties the transcript. It does not affect a live session.
func (o *Orchestrator) ClearTranscript() {
	o.transcript.Clear()
}

// Mode returns the input mode of the live session, TextMode without one.
func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return TextMode
	}
	return o.session.mode
}

// Stream returns the media stream of the live session once it is ready.
func (o *Orchestrator) Stream() (avatar.MediaStream, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil || o.session.stream == nil {
		return avatar.MediaStream{}, false
	}
	return *o.session.stream, true
}

func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return ""
	}
	return o.session.remoteID()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

func (o *Orchestrator) stateLocked() State {
	switch {
	case o.session != nil:
		sc := o.session
		return State{
			Phase:         PhaseActive,
			Mode:          sc.mode,
			SessionID:     sc.remoteID(),
			UserTalking:   sc.userTalking,
			AvatarTalking: sc.avatarTalking,
			Sending:       sc.sending > 0,
		}
	case o.pending != nil:
		return State{Phase: PhaseStarting, Mode: TextMode}
	default:
		return State{Phase: PhaseIdle, Mode: TextMode}
	}
}

// Close ends any session and makes every later Start fail with ErrClosed.
func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		err = o.End(context.Background())
	})
	return err
}
