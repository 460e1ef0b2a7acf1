// Package deepgram transcribes streamed microphone audio with the Deepgram
// live listen API.
package deepgram

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultListenURL = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-2"
	defaultLanguage  = "nl"
)

var (
	ErrMissingAPIKey    = errors.New("deepgram api key is required")
	ErrNotTranscribing  = errors.New("transcription is not running")
	ErrAlreadyStreaming = errors.New("transcription already running")
)

type Option func(*TranscriptionClient)

func WithListenURL(listenURL string) Option {
	return func(c *TranscriptionClient) {
		c.listenURL = listenURL
	}
}

func WithModel(model string) Option {
	return func(c *TranscriptionClient) {
		c.model = model
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *TranscriptionClient) {
		c.dialer = dialer
	}
}

// WithKeepAliveInterval sets how long the stream may stay without audio
// before a keep alive is sent.
func WithKeepAliveInterval(interval time.Duration) Option {
	return func(c *TranscriptionClient) {
		c.keepAliveInterval = interval
	}
}

type TranscriptionClient struct {
	apiKey            string
	listenURL         string
	model             string
	dialer            *websocket.Dialer
	keepAliveInterval time.Duration

	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time
	stop      func()

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient(apiKey string, opts ...Option) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := &TranscriptionClient{
		apiKey:            apiKey,
		listenURL:         defaultListenURL,
		model:             defaultModel,
		dialer:            websocket.DefaultDialer,
		keepAliveInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.keepAliveInterval <= 0 {
		client.keepAliveInterval = 5 * time.Second
	}
	return client, nil
}
