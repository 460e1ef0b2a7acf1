// Command avatar-chat is a terminal client for a streaming avatar session:
// it starts and ends sessions, sends typed messages, switches between text
// and voice mode and shows the transcript as it grows.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/accesstoken"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio/miniaudio"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio/portaudio"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar/heygen"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/speechtotext/deepgram"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/transcript/sqlite"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	printSchema := flag.Bool("schema", false, "print the JSON schema of the config file and exit")
	altScreen := flag.Bool("alt-screen", true, "run in the terminal's alternate screen")
	flag.Parse()

	if *printSchema {
		schema, err := config.Schema()
		if err != nil {
			log.Fatalf("error generating schema: %v", err)
		}
		fmt.Println(string(schema))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	// Callbacks fire only after a session is started from the UI, by then
	// the program is set.
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	opts, cleanup, err := orchestratorOptions(cfg, send)
	if err != nil {
		log.Fatalf("error setting up client: %v", err)
	}
	defer cleanup()

	orchestrator := orchestration.NewOrchestrator(opts...)
	defer func() {
		if err := orchestrator.Close(); err != nil {
			log.Printf("error closing session: %v", err)
		}
	}()

	programOpts := []tea.ProgramOption{}
	if *altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program = tea.NewProgram(newModel(orchestrator, cfg), programOpts...)
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "avatar-chat fatal error: %v\n", err)
		os.Exit(1)
	}
}

func orchestratorOptions(cfg *config.Config, send func(tea.Msg)) ([]orchestration.OrchestratorOption, func(), error) {
	sessionConfig, err := cfg.SessionConfig()
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithTokenSource(accesstoken.NewClient(cfg.Client.TokenEndpoint)),
		orchestration.WithAvatarFactory(heygen.NewFactory()),
		orchestration.WithSessionConfig(sessionConfig),
		orchestration.WithDebug(cfg.Client.Debug),
		orchestration.WithAutoplay(cfg.Client.Autoplay),
		orchestration.WithSilencePrompt(cfg.Client.SilencePrompt),
		orchestration.WithTranscriptCallback(func(message transcript.Message) {
			send(transcriptMsg{message: message})
		}),
		orchestration.WithModeChangedCallback(func(mode orchestration.Mode) {
			send(modeMsg{mode: mode})
		}),
		orchestration.WithStateChangedCallback(func(state orchestration.State) {
			send(stateMsg{state: state})
		}),
		orchestration.WithUserTalkingCallback(func(talking bool) {
			send(talkingMsg{user: true, talking: talking})
		}),
		orchestration.WithAvatarTalkingCallback(func(talking bool) {
			send(talkingMsg{talking: talking})
		}),
		orchestration.WithStreamReadyCallback(func(stream avatar.MediaStream) {
			send(streamMsg{stream: stream})
		}),
		orchestration.WithSessionEndedCallback(func(reason string) {
			send(sessionEndedMsg{reason: reason})
		}),
		orchestration.WithDiagnosticCallback(func(err error) {
			send(diagnosticMsg{err: err})
		}),
	}

	var capture orchestration.AudioCapture
	switch cfg.Client.Audio {
	case config.AudioMiniaudio:
		mic, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, mic.Close)
		opts = append(opts, orchestration.WithMicrophone(mic))
		capture = mic
	case config.AudioPortaudio:
		mic := portaudio.NewClient(portaudio.DefaultBufferSize)
		opts = append(opts, orchestration.WithMicrophone(mic))
		capture = mic
	case config.AudioNone:
		opts = append(opts, orchestration.WithoutMicrophone())
	}

	if cfg.Deepgram.APIKey != "" {
		if capture == nil {
			cleanup()
			return nil, nil, errors.New("local transcription needs an audio backend")
		}
		var deepgramOpts []deepgram.Option
		if cfg.Deepgram.Model != "" {
			deepgramOpts = append(deepgramOpts, deepgram.WithModel(cfg.Deepgram.Model))
		}
		stt, err := deepgram.NewTranscriptionClient(cfg.Deepgram.APIKey, deepgramOpts...)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, orchestration.WithSpeechToText(stt, capture))
	}

	if cfg.Client.ArchivePath != "" {
		archive, err := sqlite.Open(cfg.Client.ArchivePath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = archive.Close() })
		opts = append(opts, orchestration.WithTranscriptArchive(archive))
	}

	return opts, cleanup, nil
}

// run executes an orchestrator call on behalf of the UI.
func run(status string, call func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{status: status, err: call(context.Background())}
	}
}
