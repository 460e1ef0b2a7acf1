// Package heygen implements the avatar client on top of the HeyGen
// streaming API: REST calls for the session and its tasks, and a realtime
// websocket for talking, transcript and voice chat events.
package heygen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/avatar"
	"github.com/MarketingSimonMaree/phd-digitale-adviseur-final-v1/core/events"
)

var (
	ErrMissingToken    = errors.New("session token is required")
	ErrNoSession       = errors.New("no session created")
	ErrSessionExists   = errors.New("session already created")
	ErrRealtimeOffline = errors.New("realtime connection is not open")
)

type Option func(*Client)

// WithBaseURL points the client at a different API host, the realtime
// socket address is derived from it.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// NewFactory returns an [avatar.Factory] creating HeyGen clients.
func NewFactory(opts ...Option) avatar.Factory {
	return func(options avatar.ClientOptions) (avatar.Client, error) {
		return NewClient(options, opts...)
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	token string
	debug bool

	bus *events.Bus

	mu        sync.Mutex
	sessionID string
	conn      *websocket.Conn
	stopped   bool

	writeMu sync.Mutex
}

func NewClient(options avatar.ClientOptions, opts ...Option) (*Client, error) {
	if options.Token == "" {
		return nil, ErrMissingToken
	}

	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: newHTTPClient(),
		dialer:     websocket.DefaultDialer,
		token:      options.Token,
		debug:      options.Debug,
		bus:        events.NewBus(),
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) On(kind events.Kind, handler events.Handler) (unsubscribe func()) {
	return c.bus.Subscribe(kind, handler)
}

type newSessionRequest struct {
	Quality            avatar.Quality `json:"quality,omitempty"`
	AvatarName         string         `json:"avatar_name,omitempty"`
	KnowledgeBaseID    string         `json:"knowledge_base_id,omitempty"`
	Language           string         `json:"language,omitempty"`
	DisableIdleTimeout bool           `json:"disable_idle_timeout"`
	Voice              *avatar.Voice  `json:"voice,omitempty"`
	Version            string         `json:"version"`
	VideoEncoding      string         `json:"video_encoding"`
}

type newSessionResponse struct {
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// CreateSession creates and starts a remote session and opens its realtime
// connection. Once everything is up a [events.StreamReady] is published.
func (c *Client) CreateSession(ctx context.Context, config avatar.SessionConfig) (*avatar.SessionInfo, error) {
	ctx, span := tracer.Start(ctx, "create avatar session")
	defer span.End()
	span.SetAttributes(
		attribute.String("avatar.id", config.AvatarID),
		attribute.String("avatar.quality", string(config.Quality)),
		attribute.String("avatar.language", config.Language),
	)

	c.mu.Lock()
	if c.sessionID != "" {
		c.mu.Unlock()
		return nil, ErrSessionExists
	}
	c.mu.Unlock()

	request := newSessionRequest{
		Quality:            config.Quality,
		AvatarName:         config.AvatarID,
		KnowledgeBaseID:    config.KnowledgeBaseID,
		Language:           config.Language,
		DisableIdleTimeout: config.DisableIdleTimeout,
		Version:            "v2",
		VideoEncoding:      "H264",
	}
	if config.Voice.VoiceID != "" {
		request.Voice = &config.Voice
	}

	answer := newSessionResponse{}
	if err := call(ctx, c.httpClient, c.baseURL, pathNewSession, c.authHeader(), request, &answer); err != nil {
		err = fmt.Errorf("failed to create session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("avatar.session_id", answer.SessionID))

	if err := call(ctx, c.httpClient, c.baseURL, pathStart, c.authHeader(), sessionRequest{SessionID: answer.SessionID}, nil); err != nil {
		err = fmt.Errorf("failed to start session: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	conn, err := c.dial(ctx, answer.SessionID)
	if err != nil {
		err = fmt.Errorf("failed to open realtime connection: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// Release the remote session, nobody else knows its ID.
		_ = call(context.WithoutCancel(ctx), c.httpClient, c.baseURL, pathStop, c.authHeader(), sessionRequest{SessionID: answer.SessionID}, nil)
		return nil, err
	}

	c.mu.Lock()
	c.sessionID = answer.SessionID
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	c.bus.Publish(events.NewStreamReady(answer.URL, answer.AccessToken))

	return &avatar.SessionInfo{
		SessionID:   answer.SessionID,
		URL:         answer.URL,
		AccessToken: answer.AccessToken,
	}, nil
}

type taskRequest struct {
	SessionID string          `json:"session_id"`
	Text      string          `json:"text"`
	TaskType  avatar.TaskType `json:"task_type"`
	TaskMode  avatar.TaskMode `json:"task_mode,omitempty"`
}

// Speak submits text to the session. A talk task routes the text through the
// knowledge base, a repeat task makes the avatar say it verbatim.
func (c *Client) Speak(ctx context.Context, request avatar.SpeakRequest) error {
	ctx, span := tracer.Start(ctx, "send avatar task")
	defer span.End()
	span.SetAttributes(
		attribute.String("avatar.task_type", string(request.TaskType)),
		attribute.Int("avatar.text_length", len(request.Text)),
	)

	sessionID, err := c.currentSession()
	if err != nil {
		span.RecordError(err)
		return err
	}

	taskType := request.TaskType
	if taskType == "" {
		taskType = avatar.TaskTypeTalk
	}

	err = call(ctx, c.httpClient, c.baseURL, pathTask, c.authHeader(), taskRequest{
		SessionID: sessionID,
		Text:      request.Text,
		TaskType:  taskType,
		TaskMode:  request.TaskMode,
	}, nil)
	if err != nil {
		err = fmt.Errorf("failed to send task: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Stop ends the remote session and closes the realtime connection. Closing
// the connection this way does not publish [events.StreamDisconnected].
func (c *Client) Stop(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "stop avatar session")
	defer span.End()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	sessionID := c.sessionID
	conn := c.conn
	c.mu.Unlock()

	var errs []error
	if sessionID != "" {
		if err := call(ctx, c.httpClient, c.baseURL, pathStop, c.authHeader(), sessionRequest{SessionID: sessionID}, nil); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop session: %w", err))
		}
	}

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close realtime connection: %w", err))
		}
	}

	c.bus.Close()

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) currentSession() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" || c.stopped {
		return "", ErrNoSession
	}
	return c.sessionID, nil
}

func (c *Client) authHeader() http.Header {
	return http.Header{"Authorization": {"Bearer " + c.token}}
}

func (c *Client) realtimeURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + pathChat

	query := url.Values{}
	query.Set("session_id", sessionID)
	query.Set("session_token", c.token)
	query.Set("silence_response", strconv.FormatBool(false))
	u.RawQuery = query.Encode()
	return u.String(), nil
}
