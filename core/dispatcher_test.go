package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
)

func TestAvatarFragmentsBecomeSentences(t *testing.T) {
	client := newAvatarClientStub()
	var appended []transcript.Message
	o := newTestOrchestrator(t, client, WithTranscriptCallback(func(message transcript.Message) {
		appended = append(appended, message)
	}))
	startSession(t, o)

	client.emit(events.NewAvatarFragment("Hello. How are"))
	expectTranscript(t, o, "avatar: Hello.")

	client.emit(events.NewAvatarFragment(" you?"))
	client.emit(events.NewAvatarEndOfMessage())
	expectTranscript(t, o, "avatar: Hello.", "avatar: How are you?")

	client.emit(events.NewAvatarFragment("Tot ziens"))
	client.emit(events.NewAvatarEndOfMessage())
	client.emit(events.NewAvatarEndOfMessage())
	expectTranscript(t, o, "avatar: Hello.", "avatar: How are you?", "avatar: Tot ziens")

	if got := texts(appended); len(got) != 3 || got[2] != "avatar: Tot ziens" {
		t.Fatalf("expected transcript callbacks in order, got %q", got)
	}
}

func TestSendTypedRejectsEmptyMessages(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)
	startSession(t, o)

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := o.SendTyped(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("expected ErrEmptyMessage for %q, got %v", text, err)
		}
	}
	expectTranscript(t, o)
	if len(client.spokenRequests()) != 0 {
		t.Fatalf("expected nothing sent")
	}
}

func TestSendTyped(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)

	if err := o.SendTyped(context.Background(), "Hallo"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	startSession(t, o)
	if err := o.SendTyped(context.Background(), "  Hoe lang duurt een PhD?  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectTranscript(t, o, "user: Hoe lang duurt een PhD?")

	spoken := client.spokenRequests()
	want := avatar.SpeakRequest{Text: "Hoe lang duurt een PhD?", TaskType: avatar.TaskTypeTalk, TaskMode: avatar.TaskModeSync}
	if len(spoken) != 1 || spoken[0] != want {
		t.Fatalf("expected %+v, got %+v", want, spoken)
	}

	if err := o.SetMode(context.Background(), VoiceMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.SendTyped(context.Background(), "Nog een vraag"); !errors.Is(err, ErrVoiceModeActive) {
		t.Fatalf("expected ErrVoiceModeActive, got %v", err)
	}
	expectTranscript(t, o, "user: Hoe lang duurt een PhD?")
}

func TestSendTypedFailureKeepsMessage(t *testing.T) {
	client := newAvatarClientStub()
	client.speak = func(context.Context, avatar.SpeakRequest) error { return errors.New("timeout") }
	var diagnostics []error
	o := newTestOrchestrator(t, client, WithDiagnosticCallback(func(err error) { diagnostics = append(diagnostics, err) }))
	startSession(t, o)

	if err := o.SendTyped(context.Background(), "Hallo"); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	expectTranscript(t, o, "user: Hallo")
	if len(diagnostics) != 1 || !errors.Is(diagnostics[0], ErrSendFailed) {
		t.Fatalf("expected send failure diagnostic, got %v", diagnostics)
	}
	if o.State().Sending {
		t.Fatalf("expected sending flag cleared")
	}
}

func TestSendingStateWhileDelivering(t *testing.T) {
	client := newAvatarClientStub()
	entered := make(chan struct{})
	release := make(chan struct{})
	client.speak = func(context.Context, avatar.SpeakRequest) error {
		close(entered)
		<-release
		return nil
	}
	o := newTestOrchestrator(t, client)
	startSession(t, o)

	sent := make(chan error, 1)
	go func() { sent <- o.SendTyped(context.Background(), "Hallo") }()
	<-entered

	if !o.State().Sending {
		t.Fatalf("expected sending state while delivering")
	}
	close(release)
	if err := <-sent; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State().Sending {
		t.Fatalf("expected sending state cleared")
	}
}

func TestVoiceTranscriptsOnlyInVoiceMode(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)
	startSession(t, o)

	client.emit(events.NewUserTranscript("dit hoort niemand"))
	expectTranscript(t, o)

	if err := o.SetMode(context.Background(), VoiceMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.emit(events.NewUserTranscript("Wat kost een promotie?"))
	client.emit(events.NewUserTranscript("   "))
	expectTranscript(t, o, "user: Wat kost een promotie?")

	if err := o.SetMode(context.Background(), TextMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.emit(events.NewUserTranscript("te laat"))
	expectTranscript(t, o, "user: Wat kost een promotie?")

	if len(client.spokenRequests()) != 0 {
		t.Fatalf("expected voice transcripts of the avatar service not to be sent back")
	}
}

func TestLocalVoiceTranscription(t *testing.T) {
	client := newAvatarClientStub()
	spoken := make(chan avatar.SpeakRequest, 1)
	client.speak = func(_ context.Context, request avatar.SpeakRequest) error {
		spoken <- request
		return nil
	}
	stt := &speechToTextStub{}
	capture := &audioCaptureStub{}
	o := newTestOrchestrator(t, client,
		WithSpeechToText(stt, capture),
		WithSessionConfig(avatar.SessionConfig{Language: "nl"}),
	)
	startSession(t, o)

	if err := o.SetMode(context.Background(), VoiceMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	options := stt.transcriptionOptions()
	if stt.started != 1 || options.Language != "nl" || options.TranscriptionCallback == nil {
		t.Fatalf("expected transcription started in dutch, got %d starts %+v", stt.started, options)
	}

	capture.record([]byte{1, 2})
	if len(stt.audio) != 1 {
		t.Fatalf("expected captured audio to reach transcription, got %d chunks", len(stt.audio))
	}

	options.SpeechStartedCallback()
	if !o.State().UserTalking {
		t.Fatalf("expected user talking after speech start")
	}
	options.SpeechEndedCallback()
	options.TranscriptionCallback("Ik wil promoveren.")

	select {
	case request := <-spoken:
		if request.Text != "Ik wil promoveren." || request.TaskType != avatar.TaskTypeTalk {
			t.Fatalf("unexpected forwarded request %+v", request)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected local transcript to be forwarded")
	}
	expectTranscript(t, o, "user: Ik wil promoveren.")

	if err := o.SetMode(context.Background(), TextMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stt.closed != 1 || capture.stopped != 1 {
		t.Fatalf("expected transcription and capture stopped, got %d closes %d stops", stt.closed, capture.stopped)
	}
}

func TestConcurrentEventsAndSends(t *testing.T) {
	client := newAvatarClientStub()
	o := newTestOrchestrator(t, client)
	startSession(t, o)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for n := 0; n < 50; n++ {
			client.emit(events.NewAvatarFragment("Ja. "))
		}
	}()
	go func() {
		defer wg.Done()
		for n := 0; n < 50; n++ {
			_ = o.SendTyped(context.Background(), "Nee")
		}
	}()
	wg.Wait()

	var avatarCount, userCount int
	for _, message := range o.Transcript() {
		switch message.Sender {
		case transcript.SenderAvatar:
			avatarCount++
		case transcript.SenderUser:
			userCount++
		}
	}
	if avatarCount != 50 || userCount != 50 {
		t.Fatalf("expected 50 messages each, got %d avatar %d user", avatarCount, userCount)
	}
}

func TestLocalVoiceTurnsKeepTranscriptionOrder(t *testing.T) {
	client := newAvatarClientStub()
	spoken := make(chan string, 5)
	client.speak = func(_ context.Context, request avatar.SpeakRequest) error {
		spoken <- request.Text
		return nil
	}
	stt := &speechToTextStub{}
	o := newTestOrchestrator(t, client, WithSpeechToText(stt, &audioCaptureStub{}))
	startSession(t, o)
	if err := o.SetMode(context.Background(), VoiceMode); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns := []string{"turn 0.", "turn 1.", "turn 2.", "turn 3.", "turn 4."}
	transcribed := stt.transcriptionOptions().TranscriptionCallback
	for _, turn := range turns {
		transcribed(turn)
	}

	expectTranscript(t, o, "user: turn 0.", "user: turn 1.", "user: turn 2.", "user: turn 3.", "user: turn 4.")
	for _, want := range turns {
		select {
		case got := <-spoken:
			if got != want {
				t.Fatalf("expected %q forwarded next, got %q", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("expected %q to be forwarded", want)
		}
	}
}

func TestSendFailureAfterEndIsNotReported(t *testing.T) {
	client := newAvatarClientStub()
	entered := make(chan struct{})
	release := make(chan struct{})
	client.speak = func(context.Context, avatar.SpeakRequest) error {
		close(entered)
		<-release
		return errors.New("session closed")
	}
	var mu sync.Mutex
	var diagnostics []error
	o := newTestOrchestrator(t, client, WithDiagnosticCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		diagnostics = append(diagnostics, err)
	}))
	startSession(t, o)

	sent := make(chan error, 1)
	go func() { sent <- o.SendTyped(context.Background(), "Hallo") }()
	<-entered

	if err := o.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	if err := <-sent; !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(diagnostics) != 0 {
		t.Fatalf("expected no diagnostics for an ended session, got %v", diagnostics)
	}
}
