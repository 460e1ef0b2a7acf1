package orchestration

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Mode selects which input channel the session accepts.
type Mode string

const (
	// TextMode accepts typed messages. Every session starts in it.
	TextMode Mode = "text_mode"
	// VoiceMode has the avatar service listen to the user's voice.
	VoiceMode Mode = "voice_mode"
)

func (m Mode) Valid() bool {
	return m == TextMode || m == VoiceMode
}

// SetMode switches the live session to target. Switching to the current
// mode does nothing. The mode only changes once the avatar service accepted
// the switch; on failure it stays as it was.
func (o *Orchestrator) SetMode(ctx context.Context, target Mode) error {
	ctx, span := tracer.Start(ctx, "set mode")
	defer span.End()
	span.SetAttributes(attribute.String("mode.target", string(target)))

	err := o.setMode(ctx, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ToggleMode switches between TextMode and VoiceMode.
func (o *Orchestrator) ToggleMode(ctx context.Context) error {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	target := VoiceMode
	if o.session.mode == VoiceMode {
		target = TextMode
	}
	o.mu.Unlock()

	return o.SetMode(ctx, target)
}

func (o *Orchestrator) setMode(ctx context.Context, target Mode) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrModeTransition, target)
	}

	o.mu.Lock()
	sc := o.session
	switch {
	case sc == nil:
		o.mu.Unlock()
		return ErrNoActiveSession
	case sc.switching:
		o.mu.Unlock()
		return ErrModeTransitionInProgress
	case sc.mode == target:
		o.mu.Unlock()
		return nil
	}
	sc.switching = true
	client := sc.client
	o.mu.Unlock()

	var err error
	if target == VoiceMode {
		err = client.StartVoiceChat(ctx, o.voiceChatOptions)
	} else {
		err = client.CloseVoiceChat(ctx)
	}

	var n notifications
	defer func() { n.run() }()

	o.mu.Lock()
	sc.switching = false
	if o.session != sc {
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrModeTransition, err)
		o.diagnose(&n, err)
		o.mu.Unlock()
		return err
	}

	sc.mode = target
	if target == TextMode && sc.userTalking {
		sc.userTalking = false
		o.notifyUserTalking(&n, false)
	}
	startListening := target == VoiceMode && o.localVoice.configured() && !sc.listening
	stopListening := target == TextMode && sc.listening
	if startListening || stopListening {
		sc.listening = startListening
	}
	startForwarding := startListening && !sc.forwarding
	if startForwarding {
		sc.forwarding = true
	}
	o.notifyMode(&n, target)
	o.notifyState(&n)
	o.mu.Unlock()

	if startForwarding {
		go o.forwardVoiceTurns(sc, client)
	}

	switch {
	case startListening:
		if listenErr := o.localVoice.start(sc.ctx, o.sessionConfig.Language, o.localVoiceCallbacks(sc)); listenErr != nil {
			o.mu.Lock()
			sc.listening = false
			o.mu.Unlock()
			o.diagnose(&n, fmt.Errorf("failed to start local transcription: %w", listenErr))
		}
	case stopListening:
		if listenErr := o.localVoice.stop(); listenErr != nil {
			o.diagnose(&n, fmt.Errorf("failed to stop local transcription: %w", listenErr))
		}
	}

	return nil
}
