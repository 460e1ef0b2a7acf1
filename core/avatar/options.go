// Package avatar describes the remote streaming-avatar client the
// orchestrator drives, independent of any particular provider.
package avatar

import (
	"context"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
)

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

type TaskType string

const (
	TaskTypeTalk   TaskType = "talk"
	TaskTypeRepeat TaskType = "repeat"
)

type TaskMode string

const (
	TaskModeSync  TaskMode = "sync"
	TaskModeAsync TaskMode = "async"
)

// ClientOptions are the construction parameters of a remote client.
type ClientOptions struct {
	// Token authenticates every call of the client; it is issued by the
	// token service for a single session.
	Token    string
	Debug    bool
	Autoplay bool
}

type Voice struct {
	VoiceID string `yaml:"voice_id" json:"voice_id,omitempty"`
}

// SessionConfig selects the avatar and knowledge base of a new session.
type SessionConfig struct {
	Quality            Quality
	AvatarID           string
	KnowledgeBaseID    string
	Language           string
	DisableIdleTimeout bool
	Voice              Voice
}

// SessionInfo is what the remote service returns for a created session.
type SessionInfo struct {
	SessionID string
	// URL and AccessToken address the media room that carries the avatar's
	// audio and video.
	URL         string
	AccessToken string
}

type SpeakRequest struct {
	Text     string
	TaskType TaskType
	TaskMode TaskMode
}

type VoiceChatOptions struct {
	UseSilencePrompt bool
}

// Client is a connection to the remote avatar service for one session.
type Client interface {
	CreateSession(ctx context.Context, config SessionConfig) (*SessionInfo, error)
	Speak(ctx context.Context, request SpeakRequest) error
	StartVoiceChat(ctx context.Context, options VoiceChatOptions) error
	CloseVoiceChat(ctx context.Context) error
	Stop(ctx context.Context) error
	// On subscribes handler to events of kind emitted by the session. The
	// returned function unsubscribes it.
	On(kind events.Kind, handler events.Handler) (unsubscribe func())
}

// Factory constructs a client; it is called once per session start.
type Factory func(options ClientOptions) (Client, error)
