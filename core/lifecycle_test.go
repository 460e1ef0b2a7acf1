package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
)

var sessionEventKinds = []events.Kind{
	events.KindStreamReady,
	events.KindAvatarStartTalking,
	events.KindAvatarStopTalking,
	events.KindAvatarFragment,
	events.KindAvatarEndOfMessage,
	events.KindUserStart,
	events.KindUserStop,
	events.KindUserTranscript,
	events.KindStreamDisconnected,
}

func TestStartSubscribesBeforeCreatingSession(t *testing.T) {
	client := newAvatarClientStub()
	client.createSession = func(context.Context, avatar.SessionConfig) (*avatar.SessionInfo, error) {
		for _, kind := range sessionEventKinds {
			if client.bus.HandlerCount(kind) != 1 {
				t.Errorf("expected a %s handler before the session is created", kind)
			}
		}
		client.emit(events.NewStreamReady("wss://room.example", "room-token"))
		return &avatar.SessionInfo{SessionID: "session-1", URL: "wss://room.example", AccessToken: "room-token"}, nil
	}

	config := avatar.SessionConfig{AvatarID: "avatar-1", KnowledgeBaseID: "kb-1", Language: "nl", Quality: avatar.QualityHigh}
	o := newTestOrchestrator(t, client, WithSessionConfig(config), WithDebug(true))
	startSession(t, o)

	if client.options.Token != "token-1" || !client.options.Debug {
		t.Fatalf("unexpected client options %+v", client.options)
	}
	if len(client.configs) != 1 || client.configs[0] != config {
		t.Fatalf("expected session created with %+v, got %+v", config, client.configs)
	}

	stream, ok := o.Stream()
	if !ok || stream.URL != "wss://room.example" || stream.AccessToken != "room-token" {
		t.Fatalf("expected stream from stream ready event, got %+v (ok=%v)", stream, ok)
	}
	if got := o.SessionID(); got != "session-1" {
		t.Fatalf("expected session-1, got %q", got)
	}
	if state := o.State(); state.Phase != PhaseActive || state.Mode != TextMode {
		t.Fatalf("expected active text session, got %+v", state)
	}
}

func TestStartFailuresLeaveOrchestratorStartable(t *testing.T) {
	tests := []struct {
		name    string
		tokens  TokenSource
		mic     *microphoneStub
		factory func(client *avatarClientStub) avatar.Factory
		create  error
		isErr   error
	}{
		{
			name:   "token unavailable",
			tokens: TokenSourceFunc(func(context.Context) (string, error) { return "", errors.New("503") }),
			isErr:  ErrTokenUnavailable,
		},
		{
			name:   "empty token",
			tokens: staticToken(""),
			isErr:  ErrTokenUnavailable,
		},
		{
			name:  "microphone denied",
			mic:   &microphoneStub{acquireErr: errors.New("permission denied")},
			isErr: ErrMicrophoneDenied,
		},
		{
			name: "client construction fails",
			factory: func(*avatarClientStub) avatar.Factory {
				return func(avatar.ClientOptions) (avatar.Client, error) { return nil, errors.New("bad token") }
			},
			isErr: ErrConnectionFailed,
		},
		{
			name:   "session creation fails",
			create: errors.New("quota exceeded"),
			isErr:  ErrConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newAvatarClientStub()
			client.createSession = func(context.Context, avatar.SessionConfig) (*avatar.SessionInfo, error) {
				if tt.create != nil {
					return nil, tt.create
				}
				return &avatar.SessionInfo{SessionID: "session-1"}, nil
			}

			opts := []OrchestratorOption{}
			if tt.tokens != nil {
				opts = append(opts, WithTokenSource(tt.tokens))
			}
			if tt.mic != nil {
				opts = append(opts, WithMicrophone(tt.mic))
			}
			if tt.factory != nil {
				opts = append(opts, WithAvatarFactory(tt.factory(client)))
			}
			o := newTestOrchestrator(t, client, opts...)

			err := o.Start(context.Background())
			if !errors.Is(err, tt.isErr) {
				t.Fatalf("expected %v, got %v", tt.isErr, err)
			}
			if state := o.State(); state.Phase != PhaseIdle {
				t.Fatalf("expected idle after failed start, got %+v", state)
			}
			for _, kind := range sessionEventKinds {
				if client.bus.HandlerCount(kind) != 0 {
					t.Fatalf("expected no %s handler after failed start", kind)
				}
			}
			if err := o.SendTyped(context.Background(), "Hallo"); !errors.Is(err, ErrNoActiveSession) {
				t.Fatalf("expected ErrNoActiveSession, got %v", err)
			}

			if tt.create != nil {
				if _, _, stops := client.counts(); stops != 1 {
					t.Fatalf("expected the half-created client to be stopped, got %d stops", stops)
				}
				tt.create = nil
			}
			if tt.mic != nil {
				tt.mic.acquireErr = nil
			}
			o.tokens = staticToken("token-2")
			o.newClient = client.factory()
			if err := o.Start(context.Background()); err != nil {
				t.Fatalf("expected retry to succeed, got %v", err)
			}
		})
	}
}

func TestStartWhileStartingOrActive(t *testing.T) {
	client := newAvatarClientStub()
	entered := make(chan struct{})
	release := make(chan struct{})
	client.createSession = func(context.Context, avatar.SessionConfig) (*avatar.SessionInfo, error) {
		close(entered)
		<-release
		return &avatar.SessionInfo{SessionID: "session-1"}, nil
	}
	o := newTestOrchestrator(t, client)

	started := make(chan error, 1)
	go func() { started <- o.Start(context.Background()) }()
	<-entered

	if state := o.State(); state.Phase != PhaseStarting {
		t.Fatalf("expected starting phase, got %+v", state)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrSessionStarting) {
		t.Fatalf("expected ErrSessionStarting, got %v", err)
	}

	close(release)
	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("expected first start to succeed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for start")
	}

	if err := o.Start(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestEndAbortsPendingStart(t *testing.T) {
	client := newAvatarClientStub()
	entered := make(chan struct{})
	release := make(chan struct{})
	client.createSession = func(context.Context, avatar.SessionConfig) (*avatar.SessionInfo, error) {
		close(entered)
		<-release
		return &avatar.SessionInfo{SessionID: "session-1"}, nil
	}
	o := newTestOrchestrator(t, client)

	started := make(chan error, 1)
	go func() { started <- o.Start(context.Background()) }()
	<-entered

	if err := o.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed, got %v", err)
	}
	close(release)

	select {
	case err := <-started:
		if !errors.Is(err, ErrStartAborted) {
			t.Fatalf("expected ErrStartAborted, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for start")
	}

	if _, _, stops := client.counts(); stops != 1 {
		t.Fatalf("expected the aborted session to be stopped, got %d stops", stops)
	}
	if state := o.State(); state.Phase != PhaseIdle || state.SessionID != "" {
		t.Fatalf("expected idle after aborted start, got %+v", state)
	}
	for _, kind := range sessionEventKinds {
		if client.bus.HandlerCount(kind) != 0 {
			t.Fatalf("expected no %s handler after aborted start", kind)
		}
	}
}

func TestEndIsIdempotent(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)

	if err := o.End(context.Background()); err != nil {
		t.Fatalf("expected end without session to succeed, got %v", err)
	}
	if o.Mode() != TextMode {
		t.Fatalf("expected text mode, got %s", o.Mode())
	}

	startSession(t, o)
	if err := o.SetMode(context.Background(), VoiceMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := o.End(context.Background()); err != nil {
			t.Fatalf("end %d: expected success, got %v", i+1, err)
		}
		if o.Mode() != TextMode {
			t.Fatalf("end %d: expected text mode, got %s", i+1, o.Mode())
		}
	}

	if _, _, stops := client.counts(); stops != 1 {
		t.Fatalf("expected one remote stop, got %d", stops)
	}
	if _, ok := o.Stream(); ok {
		t.Fatalf("expected no stream after end")
	}
	if o.SessionID() != "" {
		t.Fatalf("expected no session id after end")
	}
}

func TestEndDiscardsPendingFragments(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)
	startSession(t, o)

	client.emit(events.NewAvatarFragment("Hallo, ik ben"))
	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a late event for the ended session, delivered past the unsubscribe
	client.deliverToAll(events.NewAvatarFragment(" uw adviseur."))
	client.deliverToAll(events.NewAvatarEndOfMessage())

	expectTranscript(t, o)

	startSession(t, o)
	client.emit(events.NewAvatarFragment("Welkom terug."))
	expectTranscript(t, o, "avatar: Welkom terug.")
}

func TestRemoteDisconnectTearsDown(t *testing.T) {
	client := newAvatarClientStub()
	mic := &microphoneStub{}
	ended := make(chan string, 1)
	o := newTestOrchestrator(t, client,
		WithMicrophone(mic),
		WithSessionEndedCallback(func(reason string) { ended <- reason }),
	)
	startSession(t, o)
	client.emit(events.NewStreamReady("wss://room.example", "room-token"))
	if mic.held() != 1 {
		t.Fatalf("expected microphone held while streaming, got %d", mic.held())
	}

	client.emit(events.NewStreamDisconnected("idle timeout"))

	select {
	case reason := <-ended:
		if reason != endReasonDisconnected {
			t.Fatalf("expected %q, got %q", endReasonDisconnected, reason)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected session ended callback")
	}

	if state := o.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle after disconnect, got %+v", state)
	}
	if mic.held() != 0 {
		t.Fatalf("expected microphone released, got %d held", mic.held())
	}
	if _, _, stops := client.counts(); stops != 1 {
		t.Fatalf("expected remote stop after disconnect, got %d", stops)
	}

	startSession(t, o)
}

func TestStreamReadyHoldsMicrophoneUntilEnd(t *testing.T) {
	client := newAvatarClientStub()
	mic := &microphoneStub{}
	streams := make(chan avatar.MediaStream, 1)
	o := newTestOrchestrator(t, client,
		WithMicrophone(mic),
		WithStreamReadyCallback(func(stream avatar.MediaStream) { streams <- stream }),
	)

	startSession(t, o)
	if mic.acquired != 1 || mic.released != 1 {
		t.Fatalf("expected microphone probed once, got %d acquired %d released", mic.acquired, mic.released)
	}

	client.emit(events.NewStreamReady("wss://room.example", "opaque"))
	select {
	case stream := <-streams:
		if stream.URL != "wss://room.example" {
			t.Fatalf("unexpected stream %+v", stream)
		}
	default:
		t.Fatalf("expected stream ready callback")
	}
	if mic.held() != 1 {
		t.Fatalf("expected microphone held, got %d", mic.held())
	}

	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mic.held() != 0 {
		t.Fatalf("expected microphone released, got %d held", mic.held())
	}
}

func TestStartRequiresMicrophone(t *testing.T) {
	client := newAvatarClientStub()
	o := NewOrchestrator(
		WithTokenSource(staticToken("token-1")),
		WithAvatarFactory(client.factory()),
	)
	t.Cleanup(func() { _ = o.Close() })

	err := o.Start(context.Background())
	if !errors.Is(err, ErrMicrophoneDenied) {
		t.Fatalf("expected ErrMicrophoneDenied, got %v", err)
	}
	if state := o.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle after failed start, got %+v", state)
	}
	client.mu.Lock()
	created := len(client.configs)
	client.mu.Unlock()
	if created != 0 {
		t.Fatalf("expected no remote session, got %d", created)
	}
}

func TestStartWithoutMicrophoneWhenTextOnly(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client, WithoutMicrophone())

	startSession(t, o)
	client.emit(events.NewStreamReady("wss://room.example", "opaque"))
	if state := o.State(); state.Phase != PhaseActive {
		t.Fatalf("expected active session, got %+v", state)
	}
	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRepeatedStreamReadyAcquiresMicrophoneOnce(t *testing.T) {
	client := newAvatarClientStub()
	mic := &microphoneStub{}
	o := newTestOrchestrator(t, client, WithMicrophone(mic))
	startSession(t, o)

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	mic.acquiring = func() {
		entered <- struct{}{}
		<-release
	}

	var wg sync.WaitGroup
	emit := func() {
		defer wg.Done()
		client.emit(events.NewStreamReady("wss://room.example", "opaque"))
	}
	wg.Add(2)
	go emit()
	<-entered
	go emit()
	close(release)
	wg.Wait()

	if mic.held() != 1 {
		t.Fatalf("expected microphone held once, got %d", mic.held())
	}
	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mic.held() != 0 {
		t.Fatalf("expected microphone released, got %d held", mic.held())
	}
}

func TestCloseRejectsStart(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)
	startSession(t, o)

	if err := o.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("expected second close to succeed, got %v", err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, stops := client.counts(); stops != 1 {
		t.Fatalf("expected close to stop the session, got %d stops", stops)
	}
}

func TestArchiveReceivesSessionTranscript(t *testing.T) {
	client := newAvatarClientStub()
	archive := &archiveStub{}
	o := newTestOrchestrator(t, client, WithTranscriptArchive(archive))
	startSession(t, o)

	if err := o.SendTyped(context.Background(), "Wat is een PhD?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.emit(events.NewAvatarFragment("Een promotietraject."))
	o.ClearTranscript()

	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(archive.sessions) != 1 {
		t.Fatalf("expected one archived session, got %d", len(archive.sessions))
	}
	session := archive.sessions[0]
	if session.RemoteID != "session-1" || session.ID == "" {
		t.Fatalf("unexpected session ids %+v", session)
	}
	if got := texts(session.Messages); len(got) != 2 || got[0] != "user: Wat is een PhD?" || got[1] != "avatar: Een promotietraject." {
		t.Fatalf("unexpected archived messages %q", got)
	}
	if session.EndedAt.Before(session.StartedAt) {
		t.Fatalf("expected end after start")
	}

	startSession(t, o)
	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.sessions) != 1 {
		t.Fatalf("expected empty session not to be archived")
	}
}
