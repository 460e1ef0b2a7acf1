package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/audio"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/speechtotext"
)

type controlMessage struct {
	Type string `json:"type"`
}

// Transcribe opens the listen socket and starts delivering results to the
// configured callbacks. It returns once the socket is open; results keep
// arriving until ctx is done or Close is called.
func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	ctx, span := tracer.Start(ctx, "start transcription")
	defer span.End()

	options := speechtotext.TranscriptionOptions{EncodingInfo: audio.DefaultEncodingInfo(), Language: defaultLanguage}
	for _, opt := range opts {
		opt(&options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		err = fmt.Errorf("invalid encoding: %w", err)
		span.RecordError(err)
		return err
	}
	span.SetAttributes(
		attribute.Int("audio.sample_rate", encoding.SampleRate),
		attribute.String("audio.encoding", encoding.Format),
		attribute.String("transcription.language", options.Language),
	)

	s.connMu.Lock()
	if s.conn != nil {
		s.connMu.Unlock()
		return ErrAlreadyStreaming
	}
	s.connMu.Unlock()

	cb, wsConfig := newCallbackConfig(options)

	conn, err := s.connect(ctx, encoding, options.Language, wsConfig)
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.connMu.Lock()
	s.conn = conn
	s.lastMsgTs = time.Now()
	s.stop = cancel
	s.accumulatedTranscript = ""
	s.unendedSegment = false
	s.connMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-streamCtx.Done():
		}
	}()
	go s.keepAlive(streamCtx)
	go s.readAndProcessMessages(conn, cb, cancel)

	return nil
}

func (s *TranscriptionClient) connect(ctx context.Context, encoding *encodingInfo, language string, config websocketConfig) (*websocket.Conn, error) {
	listenURL, err := url.Parse(s.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format)
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", strconv.Itoa(encoding.Channels))
	queryParams.Set("model", s.model)
	queryParams.Set("language", language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("punctuate", "true")
	if config.shouldEnhanceSpeechEndingDetection {
		queryParams.Set("utterance_end_ms", "1000")
		queryParams.Set("interim_results", "true")
	} else if config.shouldRequestInterimResults {
		queryParams.Set("interim_results", "true")
	}
	queryParams.Set("endpointing", "300")
	if config.shouldDetectSpeechStart || config.shouldEnhanceSpeechEndingDetection {
		queryParams.Set("vad_events", "true")
	}
	listenURL.RawQuery = queryParams.Encode()

	conn, resp, err := s.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return ErrNotTranscribing
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// Close asks the service to flush pending results and closes the socket.
func (s *TranscriptionClient) Close() error {
	s.connMu.Lock()
	conn := s.conn
	stop := s.stop
	s.conn = nil
	s.stop = nil
	var err error
	if conn != nil {
		if writeErr := conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); writeErr != nil {
			err = fmt.Errorf("failed to close deepgram stream: %w", writeErr)
		}
	}
	s.connMu.Unlock()

	if stop != nil {
		stop()
	}
	if conn != nil {
		_ = conn.Close()
	}
	return err
}

func (s *TranscriptionClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.keepAliveInterval / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil && time.Since(s.lastMsgTs) >= s.keepAliveInterval {
				s.lastMsgTs = time.Now()
				if err := s.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
					logger.Warn("failed to send keep alive to deepgram", slog.String("error", err.Error()))
				}
			}
			s.connMu.Unlock()
		}
	}
}

func (s *TranscriptionClient) readAndProcessMessages(conn *websocket.Conn, cb callbacks, stop func()) {
	defer stop()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.connMu.Lock()
				closedByUs := s.conn != conn
				s.connMu.Unlock()
				if !closedByUs {
					logger.Warn("failed to read deepgram websocket message", slog.String("error", err.Error()))
				}
			}

			s.connMu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.connMu.Unlock()
			conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg, cb)
		}
	}
}

func (s *TranscriptionClient) processMessage(msg []byte, cb callbacks) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", slog.String("error", err.Error()))
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", slog.String("error", err.Error()))
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if !msgResp.IsFinal {
			if transcript != "" {
				cb.interimTranscriptionCallback(strings.TrimSpace(s.accumulatedTranscript + " " + transcript))
			}
			return
		}

		if transcript != "" {
			s.accumulatedTranscript += " " + transcript
			cb.partialTranscriptionCallback(transcript)
		}
		if msgResp.SpeechFinal {
			s.onSpeechEnded(cb)
		}

	case api.TypeUtteranceEndResponse:
		if s.unendedSegment || strings.TrimSpace(s.accumulatedTranscript) != "" {
			s.onSpeechEnded(cb)
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
		cb.startSpeechCallback()
	}
}

func (s *TranscriptionClient) onSpeechEnded(cb callbacks) {
	s.unendedSegment = false
	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	if fullTranscript != "" {
		cb.transcriptionCallback(fullTranscript)
	}
	cb.endSpeechCallback()
}
