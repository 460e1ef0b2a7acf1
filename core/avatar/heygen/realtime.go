package heygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
)

const (
	messageAvatarStartTalking = "avatar_start_talking"
	messageAvatarStopTalking  = "avatar_stop_talking"
	messageAvatarTalking      = "avatar_talking_message"
	messageAvatarEndMessage   = "avatar_end_message"
	messageUserStart          = "user_start"
	messageUserStop           = "user_stop"
	messageUserTalking        = "user_talking_message"
	messageUserEndMessage     = "user_end_message"
	messageStreamDisconnected = "stream_disconnected"

	messageVoiceChatStart = "voice_chat.start"
	messageVoiceChatStop  = "voice_chat.stop"
)

type realtimeMessage struct {
	Type    string `json:"type"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

type voiceChatMessage struct {
	Type             string `json:"type"`
	UseSilencePrompt bool   `json:"use_silence_prompt,omitempty"`
}

func (c *Client) dial(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	address, err := c.realtimeURL(sessionID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, address, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stopped := c.stopped
			c.mu.Unlock()
			if !stopped {
				logger.Warn("realtime connection lost", slog.String("error", err.Error()))
				c.bus.Publish(events.NewStreamDisconnected(err.Error()))
			}
			return
		}

		message := realtimeMessage{}
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Warn("failed to decode realtime message", slog.String("error", err.Error()))
			continue
		}
		if c.debug {
			logger.Debug("realtime message",
				slog.String("type", message.Type),
				slog.String("task_id", message.TaskID),
				slog.String("message", message.Message),
			)
		}

		if event, ok := decodeEvent(message); ok {
			c.bus.Publish(event)
		}
		if message.Type == messageStreamDisconnected {
			return
		}
	}
}

func decodeEvent(message realtimeMessage) (events.Event, bool) {
	switch message.Type {
	case messageAvatarStartTalking:
		return events.NewAvatarStartTalking(), true
	case messageAvatarStopTalking:
		return events.NewAvatarStopTalking(), true
	case messageAvatarTalking:
		return events.NewAvatarFragment(message.Message), true
	case messageAvatarEndMessage:
		return events.NewAvatarEndOfMessage(), true
	case messageUserStart:
		return events.NewUserStart(), true
	case messageUserStop:
		return events.NewUserStop(), true
	case messageUserTalking:
		return events.NewUserTranscript(message.Message), true
	case messageStreamDisconnected:
		return events.NewStreamDisconnected(message.Message), true
	default:
		return nil, false
	}
}

// StartVoiceChat asks the session to listen to the user's microphone and
// answer spoken questions.
func (c *Client) StartVoiceChat(ctx context.Context, options avatar.VoiceChatOptions) error {
	_, span := tracer.Start(ctx, "start voice chat")
	defer span.End()

	err := c.send(voiceChatMessage{Type: messageVoiceChatStart, UseSilencePrompt: options.UseSilencePrompt})
	if err != nil {
		err = fmt.Errorf("failed to start voice chat: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) CloseVoiceChat(ctx context.Context) error {
	_, span := tracer.Start(ctx, "close voice chat")
	defer span.End()

	err := c.send(voiceChatMessage{Type: messageVoiceChatStop})
	if err != nil {
		err = fmt.Errorf("failed to close voice chat: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(message any) error {
	c.mu.Lock()
	conn := c.conn
	stopped := c.stopped
	c.mu.Unlock()
	if conn == nil {
		return ErrNoSession
	}
	if stopped {
		return ErrRealtimeOffline
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(message); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return ErrRealtimeOffline
		}
		return err
	}
	return nil
}
