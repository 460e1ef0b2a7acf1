package orchestration

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

// SendTyped adds a typed message to the transcript and asks the avatar to
// answer it. The message stays in the transcript even when delivery fails.
func (o *Orchestrator) SendTyped(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "send typed message")
	defer span.End()

	err := o.sendTyped(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) sendTyped(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	var n notifications
	o.mu.Lock()
	sc := o.session
	switch {
	case sc == nil:
		o.mu.Unlock()
		return ErrNoActiveSession
	case sc.mode == VoiceMode:
		o.mu.Unlock()
		return ErrVoiceModeActive
	}
	o.appendLocked(&n, sc, transcript.Message{Text: text, Sender: transcript.SenderUser})
	sc.sending++
	client := sc.client
	o.notifyState(&n)
	o.mu.Unlock()
	n.run()

	err := client.Speak(ctx, avatar.SpeakRequest{
		Text:     text,
		TaskType: avatar.TaskTypeTalk,
		TaskMode: avatar.TaskModeSync,
	})

	n = nil
	o.mu.Lock()
	sc.sending--
	current := o.session == sc
	if current {
		o.notifyState(&n)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSendFailed, err)
		if current {
			o.diagnose(&n, err)
		}
	}
	o.mu.Unlock()
	n.run()

	return err
}

// appendLocked adds message to the transcript of sc. Must be called with
// o.mu held.
func (o *Orchestrator) appendLocked(n *notifications, sc *sessionContext, message transcript.Message) {
	if err := o.transcript.Append(message); err != nil {
		return
	}
	sc.messages = append(sc.messages, message)
	o.notifyTranscript(n, message)
}

func (o *Orchestrator) handleAvatarFragment(sc *sessionContext, text string) {
	var n notifications
	o.mu.Lock()
	if o.current(sc) {
		for _, message := range sc.accumulator.OnFragment(transcript.SenderAvatar, text) {
			o.appendLocked(&n, sc, message)
		}
	}
	o.mu.Unlock()
	n.run()
}

func (o *Orchestrator) handleAvatarEndOfMessage(sc *sessionContext) {
	var n notifications
	o.mu.Lock()
	if o.current(sc) {
		if message, ok := sc.accumulator.OnUtteranceEnd(transcript.SenderAvatar); ok {
			o.appendLocked(&n, sc, message)
		}
	}
	o.mu.Unlock()
	n.run()
}

// handleVoiceTranscript records a spoken user turn transcribed by the
// avatar service, which already answers it.
func (o *Orchestrator) handleVoiceTranscript(sc *sessionContext, text string) {
	o.appendVoiceTurn(sc, text)
}

// handleLocalTranscript records a locally transcribed turn and queues it for
// the avatar. It runs on the transcription reader, so turns are appended and
// queued in the order they were transcribed.
func (o *Orchestrator) handleLocalTranscript(sc *sessionContext, text string) {
	text, ok := o.appendVoiceTurn(sc, text)
	if !ok {
		return
	}
	select {
	case sc.voiceTurns <- text:
	case <-sc.ctx.Done():
	}
}

// appendVoiceTurn adds a spoken turn to the transcript. Turns that arrive
// outside of voice mode are dropped.
func (o *Orchestrator) appendVoiceTurn(sc *sessionContext, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	var n notifications
	o.mu.Lock()
	if o.session != sc || sc.mode != VoiceMode {
		o.mu.Unlock()
		return "", false
	}
	o.appendLocked(&n, sc, transcript.Message{Text: text, Sender: transcript.SenderUser})
	o.mu.Unlock()
	n.run()
	return text, true
}

// forwardVoiceTurns sends queued local turns to the avatar one at a time
// until the session is torn down.
func (o *Orchestrator) forwardVoiceTurns(sc *sessionContext, client avatar.Client) {
	for {
		select {
		case <-sc.ctx.Done():
			return
		case text := <-sc.voiceTurns:
			o.forwardVoiceTurn(sc, client, text)
		}
	}
}

func (o *Orchestrator) forwardVoiceTurn(sc *sessionContext, client avatar.Client, text string) {
	ctx, span := tracer.Start(sc.ctx, "forward voice message")
	defer span.End()
	span.SetAttributes(attribute.Int("message.length", len(text)))

	err := client.Speak(ctx, avatar.SpeakRequest{
		Text:     text,
		TaskType: avatar.TaskTypeTalk,
		TaskMode: avatar.TaskModeSync,
	})
	if err == nil {
		return
	}
	err = fmt.Errorf("%w: %w", ErrSendFailed, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var n notifications
	o.mu.Lock()
	if o.session == sc {
		o.diagnose(&n, err)
	}
	o.mu.Unlock()
	n.run()
}
