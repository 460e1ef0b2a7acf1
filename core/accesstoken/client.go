// Package accesstoken fetches and issues the short-lived session tokens that
// authenticate a streaming-avatar client.
package accesstoken

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultPath is where the token server answers token requests.
const DefaultPath = "/api/get-access-token"

var ErrEmptyToken = errors.New("token service returned an empty token")

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client fetches tokens from a token server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchToken requests a new token. The server answers with the token as a
// plain-text body.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "fetch access token")
	defer span.End()
	span.SetAttributes(attribute.String("token.endpoint", c.endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, nil)
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("token service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		span.RecordError(ErrEmptyToken)
		span.SetStatus(codes.Error, ErrEmptyToken.Error())
		return "", ErrEmptyToken
	}

	return token, nil
}
