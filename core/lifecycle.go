package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

const (
	endReasonUser         = "ended"
	endReasonDisconnected = "disconnected"
)

// Start opens a new avatar session. It fetches a token, checks microphone
// access, connects the avatar client with every event handler subscribed
// and creates the remote session, in that order. A failed or aborted Start
// leaves the orchestrator ready for another attempt.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()

	err := o.start(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) start(ctx context.Context) error {
	var n notifications
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.pending != nil:
		o.mu.Unlock()
		return ErrSessionStarting
	case o.session != nil:
		o.mu.Unlock()
		return ErrSessionActive
	}
	sc := newSessionContext()
	o.pending = sc
	o.notifyState(&n)
	o.mu.Unlock()
	n.run()

	if o.tokens == nil {
		return o.abandonStart(sc, fmt.Errorf("%w: no token source configured", ErrTokenUnavailable))
	}
	token, err := o.tokens.FetchToken(ctx)
	if err != nil {
		return o.abandonStart(sc, fmt.Errorf("%w: %w", ErrTokenUnavailable, err))
	}
	if token == "" {
		return o.abandonStart(sc, fmt.Errorf("%w: empty token", ErrTokenUnavailable))
	}
	if !o.stillPending(sc) {
		return o.abandonStart(sc, ErrStartAborted)
	}

	switch {
	case o.microphone == nil && !o.textOnly:
		return o.abandonStart(sc, fmt.Errorf("%w: no microphone configured", ErrMicrophoneDenied))
	case o.microphone != nil:
		if err := o.microphone.Acquire(ctx); err != nil {
			return o.abandonStart(sc, fmt.Errorf("%w: %w", ErrMicrophoneDenied, err))
		}
		if err := o.microphone.Release(); err != nil {
			return o.abandonStart(sc, fmt.Errorf("%w: %w", ErrMicrophoneDenied, err))
		}
		if !o.stillPending(sc) {
			return o.abandonStart(sc, ErrStartAborted)
		}
	}

	if o.newClient == nil {
		return o.abandonStart(sc, fmt.Errorf("%w: no avatar client configured", ErrConnectionFailed))
	}
	options := o.clientOptions
	options.Token = token
	client, err := o.newClient(options)
	if err != nil {
		return o.abandonStart(sc, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}

	o.mu.Lock()
	sc.client = client
	if o.pending != sc {
		o.mu.Unlock()
		return o.abandonStart(sc, ErrStartAborted)
	}
	sc.unsubscribes = o.subscribe(sc, client)
	o.mu.Unlock()

	info, err := client.CreateSession(ctx, o.sessionConfig)
	if err != nil {
		return o.abandonStart(sc, fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}

	n = nil
	o.mu.Lock()
	if o.pending != sc {
		disconnected := sc.disconnected
		o.mu.Unlock()
		if disconnected {
			return o.abandonStart(sc, fmt.Errorf("%w: session disconnected while starting", ErrConnectionFailed))
		}
		return o.abandonStart(sc, ErrStartAborted)
	}
	sc.info = info
	o.pending = nil
	o.session = sc
	o.notifyState(&n)
	o.mu.Unlock()
	n.run()

	logger.Info("avatar session started", "session_id", info.SessionID, "context_id", sc.id)
	return nil
}

func (o *Orchestrator) stillPending(sc *sessionContext) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending == sc
}

// abandonStart undoes everything a failed Start set up and returns err.
func (o *Orchestrator) abandonStart(sc *sessionContext, err error) error {
	var n notifications
	o.mu.Lock()
	if o.pending == sc {
		o.pending = nil
	}
	sc.detach()
	client := sc.client
	held := sc.microphoneHeld
	sc.microphoneHeld = false
	o.notifyState(&n)
	o.mu.Unlock()

	if held && o.microphone != nil {
		if releaseErr := o.microphone.Release(); releaseErr != nil {
			o.diagnose(&n, fmt.Errorf("failed to release microphone: %w", releaseErr))
		}
	}
	if client != nil {
		if stopErr := client.Stop(context.Background()); stopErr != nil {
			o.diagnose(&n, fmt.Errorf("failed to stop abandoned session: %w", stopErr))
		}
	}
	n.run()

	return err
}

// subscribe registers every session handler on client. Must be called with
// o.mu held, before the session is created so no event is missed.
func (o *Orchestrator) subscribe(sc *sessionContext, client avatar.Client) []func() {
	return []func(){
		client.On(events.KindStreamReady, func(e events.Event) {
			if event, ok := e.(events.StreamReady); ok {
				o.handleStreamReady(sc, event)
			}
		}),
		client.On(events.KindAvatarStartTalking, func(events.Event) { o.handleAvatarTalking(sc, true) }),
		client.On(events.KindAvatarStopTalking, func(events.Event) { o.handleAvatarTalking(sc, false) }),
		client.On(events.KindAvatarFragment, func(e events.Event) {
			if event, ok := e.(events.AvatarFragment); ok {
				o.handleAvatarFragment(sc, event.Text)
			}
		}),
		client.On(events.KindAvatarEndOfMessage, func(events.Event) { o.handleAvatarEndOfMessage(sc) }),
		client.On(events.KindUserStart, func(events.Event) { o.handleUserTalking(sc, true) }),
		client.On(events.KindUserStop, func(events.Event) { o.handleUserTalking(sc, false) }),
		client.On(events.KindUserTranscript, func(e events.Event) {
			if event, ok := e.(events.UserTranscript); ok {
				o.handleVoiceTranscript(sc, event.Text)
			}
		}),
		client.On(events.KindStreamDisconnected, func(e events.Event) {
			reason := ""
			if event, ok := e.(events.StreamDisconnected); ok {
				reason = event.Reason
			}
			o.handleDisconnect(sc, reason)
		}),
	}
}

// current reports whether events of sc should still be applied. Must be
// called with o.mu held.
func (o *Orchestrator) current(sc *sessionContext) bool {
	return o.session == sc || o.pending == sc
}

func (o *Orchestrator) handleStreamReady(sc *sessionContext, event events.StreamReady) {
	var n notifications
	defer func() { n.run() }()

	stream, err := avatar.NewMediaStream(event.URL, event.AccessToken)

	o.mu.Lock()
	if !o.current(sc) {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.diagnose(&n, fmt.Errorf("invalid media stream: %w", err))
		o.mu.Unlock()
		return
	}
	sc.stream = &stream
	acquire := o.microphone != nil && !sc.microphoneHeld && !sc.acquiring
	sc.acquiring = acquire
	o.notifyStreamReady(&n, stream)
	o.mu.Unlock()

	if !acquire {
		return
	}
	err = o.microphone.Acquire(sc.ctx)

	o.mu.Lock()
	sc.acquiring = false
	if err != nil {
		if o.current(sc) {
			o.diagnose(&n, fmt.Errorf("failed to acquire microphone: %w", err))
		}
		o.mu.Unlock()
		return
	}
	if !o.current(sc) {
		o.mu.Unlock()
		if err := o.microphone.Release(); err != nil {
			o.diagnose(&n, fmt.Errorf("failed to release microphone: %w", err))
		}
		return
	}
	sc.microphoneHeld = true
	o.mu.Unlock()
}

func (o *Orchestrator) handleAvatarTalking(sc *sessionContext, talking bool) {
	var n notifications
	o.mu.Lock()
	if o.current(sc) && sc.avatarTalking != talking {
		sc.avatarTalking = talking
		o.notifyAvatarTalking(&n, talking)
		o.notifyState(&n)
	}
	o.mu.Unlock()
	n.run()
}

func (o *Orchestrator) handleUserTalking(sc *sessionContext, talking bool) {
	var n notifications
	o.mu.Lock()
	if o.current(sc) && sc.userTalking != talking {
		sc.userTalking = talking
		o.notifyUserTalking(&n, talking)
		o.notifyState(&n)
	}
	o.mu.Unlock()
	n.run()
}

func (o *Orchestrator) handleDisconnect(sc *sessionContext, reason string) {
	o.mu.Lock()
	switch {
	case o.session == sc:
		o.session = nil
	case o.pending == sc:
		// The pending Start notices and cleans up after CreateSession returns.
		sc.disconnected = true
		o.pending = nil
		var n notifications
		o.notifyState(&n)
		o.mu.Unlock()
		n.run()
		return
	default:
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	logger.Warn("avatar session disconnected", "context_id", sc.id, "reason", reason)
	if err := o.teardown(context.Background(), sc, endReasonDisconnected); err != nil {
		var n notifications
		o.diagnose(&n, err)
		n.run()
	}
}

// End stops the live session. Without a session End does nothing; a Start
// in progress is aborted and returns ErrStartAborted.
func (o *Orchestrator) End(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "end session")
	defer span.End()

	var n notifications
	o.mu.Lock()
	if pending := o.pending; pending != nil {
		o.pending = nil
		pending.detach()
		o.notifyState(&n)
	}
	sc := o.session
	o.session = nil
	o.mu.Unlock()
	n.run()

	if sc == nil {
		return nil
	}
	span.SetAttributes(attribute.String("avatar.session_id", sc.remoteID()))

	err := o.teardown(ctx, sc, endReasonUser)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// teardown releases everything held by sc. sc must already be detached from
// o.session so no new work can reach it.
func (o *Orchestrator) teardown(ctx context.Context, sc *sessionContext, reason string) error {
	var n notifications
	o.mu.Lock()
	sc.detach()
	client := sc.client
	held := sc.microphoneHeld
	sc.microphoneHeld = false
	listening := sc.listening
	sc.listening = false
	wasVoice := sc.mode == VoiceMode
	if sc.userTalking {
		sc.userTalking = false
		o.notifyUserTalking(&n, false)
	}
	if sc.avatarTalking {
		sc.avatarTalking = false
		o.notifyAvatarTalking(&n, false)
	}
	if wasVoice {
		o.notifyMode(&n, TextMode)
	}
	o.notifyState(&n)
	o.notifySessionEnded(&n, reason)
	session := transcript.Session{
		ID:        sc.id,
		RemoteID:  sc.remoteID(),
		StartedAt: sc.startedAt,
		EndedAt:   time.Now(),
		Messages:  append([]transcript.Message(nil), sc.messages...),
	}
	o.mu.Unlock()

	var errs []error
	if listening {
		if err := o.localVoice.stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop local transcription: %w", err))
		}
	}
	if held && o.microphone != nil {
		if err := o.microphone.Release(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release microphone: %w", err))
		}
	}
	if client != nil {
		if err := client.Stop(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop avatar session: %w", err))
		}
	}
	if o.archive != nil && len(session.Messages) > 0 {
		if err := o.archive.Save(context.WithoutCancel(ctx), session); err != nil {
			errs = append(errs, fmt.Errorf("failed to archive transcript: %w", err))
		}
	}

	n.run()
	logger.Info("avatar session ended", "context_id", sc.id, "reason", reason)
	return errors.Join(errs...)
}
