package orchestration

import (
	"context"
	"sync"
	"testing"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/speechtotext"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

// avatarClientStub stands in for the remote avatar service. Events are
// dispatched through a real bus; every handler ever registered is also kept
// so tests can deliver events to handlers that were already unsubscribed.
type avatarClientStub struct {
	bus *events.Bus

	createSession  func(ctx context.Context, config avatar.SessionConfig) (*avatar.SessionInfo, error)
	speak          func(ctx context.Context, request avatar.SpeakRequest) error
	startVoiceChat func(ctx context.Context, options avatar.VoiceChatOptions) error
	closeVoiceChat func(ctx context.Context) error

	mu          sync.Mutex
	options     avatar.ClientOptions
	configs     []avatar.SessionConfig
	spoken      []avatar.SpeakRequest
	voiceStarts int
	voiceCloses int
	stops       int
	registered  map[events.Kind][]events.Handler
}

func newAvatarClientStub() *avatarClientStub {
	return &avatarClientStub{
		bus:        events.NewBus(),
		registered: map[events.Kind][]events.Handler{},
	}
}

func (c *avatarClientStub) CreateSession(ctx context.Context, config avatar.SessionConfig) (*avatar.SessionInfo, error) {
	c.mu.Lock()
	c.configs = append(c.configs, config)
	c.mu.Unlock()
	if c.createSession != nil {
		return c.createSession(ctx, config)
	}
	return &avatar.SessionInfo{SessionID: "session-1", URL: "wss://room.example", AccessToken: "room-token"}, nil
}

func (c *avatarClientStub) Speak(ctx context.Context, request avatar.SpeakRequest) error {
	c.mu.Lock()
	c.spoken = append(c.spoken, request)
	c.mu.Unlock()
	if c.speak != nil {
		return c.speak(ctx, request)
	}
	return nil
}

func (c *avatarClientStub) StartVoiceChat(ctx context.Context, options avatar.VoiceChatOptions) error {
	c.mu.Lock()
	c.voiceStarts++
	c.mu.Unlock()
	if c.startVoiceChat != nil {
		return c.startVoiceChat(ctx, options)
	}
	return nil
}

func (c *avatarClientStub) CloseVoiceChat(ctx context.Context) error {
	c.mu.Lock()
	c.voiceCloses++
	c.mu.Unlock()
	if c.closeVoiceChat != nil {
		return c.closeVoiceChat(ctx)
	}
	return nil
}

func (c *avatarClientStub) Stop(context.Context) error {
	c.mu.Lock()
	c.stops++
	c.mu.Unlock()
	return nil
}

func (c *avatarClientStub) On(kind events.Kind, handler events.Handler) func() {
	c.mu.Lock()
	c.registered[kind] = append(c.registered[kind], handler)
	c.mu.Unlock()
	return c.bus.Subscribe(kind, handler)
}

func (c *avatarClientStub) emit(event events.Event) {
	c.bus.Publish(event)
}

// deliverToAll calls every handler ever registered for the event's kind,
// including unsubscribed ones.
func (c *avatarClientStub) deliverToAll(event events.Event) {
	c.mu.Lock()
	handlers := append([]events.Handler(nil), c.registered[event.Kind()]...)
	c.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}

func (c *avatarClientStub) counts() (voiceStarts, voiceCloses, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voiceStarts, c.voiceCloses, c.stops
}

func (c *avatarClientStub) spokenRequests() []avatar.SpeakRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]avatar.SpeakRequest(nil), c.spoken...)
}

func (c *avatarClientStub) factory() avatar.Factory {
	return func(options avatar.ClientOptions) (avatar.Client, error) {
		c.mu.Lock()
		c.options = options
		c.mu.Unlock()
		return c, nil
	}
}

type microphoneStub struct {
	mu         sync.Mutex
	acquireErr error
	acquired   int
	released   int

	// acquiring, when set, is called before every acquisition outside the
	// stub's lock.
	acquiring func()
}

func (m *microphoneStub) Acquire(context.Context) error {
	if m.acquiring != nil {
		m.acquiring()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return m.acquireErr
	}
	m.acquired++
	return nil
}

func (m *microphoneStub) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

// held reports how many acquisitions are not yet released.
func (m *microphoneStub) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired - m.released
}

type speechToTextStub struct {
	mu      sync.Mutex
	options speechtotext.TranscriptionOptions
	started int
	closed  int
	audio   [][]byte
}

func (s *speechToTextStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&s.options)
	}
	s.started++
	return nil
}

func (s *speechToTextStub) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, audio)
	return nil
}

func (s *speechToTextStub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *speechToTextStub) transcriptionOptions() speechtotext.TranscriptionOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

type audioCaptureStub struct {
	mu      sync.Mutex
	onAudio func(audio []byte)
	stopped int
}

func (c *audioCaptureStub) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = onAudio
	return nil
}

func (c *audioCaptureStub) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = nil
	c.stopped++
	return nil
}

func (c *audioCaptureStub) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}

func (c *audioCaptureStub) record(chunk []byte) {
	c.mu.Lock()
	onAudio := c.onAudio
	c.mu.Unlock()
	if onAudio != nil {
		onAudio(chunk)
	}
}

type archiveStub struct {
	mu       sync.Mutex
	sessions []transcript.Session
}

func (a *archiveStub) Save(_ context.Context, session transcript.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, session)
	return nil
}

func staticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return token, nil })
}

func newTestOrchestrator(t *testing.T, client *avatarClientStub, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(append([]OrchestratorOption{
		WithTokenSource(staticToken("token-1")),
		WithAvatarFactory(client.factory()),
		WithMicrophone(&microphoneStub{}),
	}, opts...)...)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func startSession(t *testing.T, o *Orchestrator) {
	t.Helper()
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
}

func texts(messages []transcript.Message) []string {
	result := make([]string, 0, len(messages))
	for _, message := range messages {
		result = append(result, string(message.Sender)+": "+message.Text)
	}
	return result
}

func expectTranscript(t *testing.T, o *Orchestrator, want ...string) {
	t.Helper()
	got := texts(o.Transcript())
	if len(got) != len(want) {
		t.Fatalf("expected transcript %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected transcript %q, got %q", want, got)
		}
	}
}
