package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultBaseURL = "https://api.heygen.com"

const (
	pathCreateToken = "/v1/streaming.create_token"
	pathNewSession  = "/v1/streaming.new"
	pathStart       = "/v1/streaming.start"
	pathTask        = "/v1/streaming.task"
	pathStop        = "/v1/streaming.stop"
	pathChat        = "/v1/ws/streaming.chat"
)

// APIError is a non-success answer of the streaming API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("streaming api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("streaming api returned status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
			return operationName + " " + request.URL.Path
		}),
	)}
}

// call posts body to path and decodes the data field of the answer into out
// when out is not nil.
func call(ctx context.Context, httpClient *http.Client, baseURL, path string, header http.Header, body, out any) error {
	span := trace.SpanFromContext(ctx)

	requestBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(baseURL, "/")+path, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	answer := envelope{}
	if len(bytes.TrimSpace(responseBody)) > 0 {
		if err := json.Unmarshal(responseBody, &answer); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("error unmarshalling JSON: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: answer.Code, Message: answer.Message}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if out != nil {
		if len(answer.Data) == 0 {
			return fmt.Errorf("streaming api response has no data")
		}
		if err := json.Unmarshal(answer.Data, out); err != nil {
			return fmt.Errorf("error unmarshalling response data: %w", err)
		}
	}

	return nil
}

type createTokenResponse struct {
	Token string `json:"token"`
}

// CreateToken exchanges the account API key for a short-lived session token.
// It must only run server side; the API key never reaches the client.
func CreateToken(ctx context.Context, apiKey string, opts ...Option) (string, error) {
	ctx, span := tracer.Start(ctx, "create session token")
	defer span.End()

	if apiKey == "" {
		err := fmt.Errorf("streaming api key is empty")
		span.RecordError(err)
		return "", err
	}

	client := &Client{baseURL: defaultBaseURL, httpClient: newHTTPClient()}
	for _, opt := range opts {
		opt(client)
	}

	answer := createTokenResponse{}
	if err := call(ctx, client.httpClient, client.baseURL, pathCreateToken, http.Header{"X-Api-Key": {apiKey}}, struct{}{}, &answer); err != nil {
		err = fmt.Errorf("failed to create session token: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if answer.Token == "" {
		err := fmt.Errorf("streaming api returned an empty token")
		span.RecordError(err)
		return "", err
	}

	return answer.Token, nil
}
