// Package provision talks to the agent provisioning backend: access tokens,
// remote agent sessions and optional avatar render tasks.
//
// The coordinator only needs the resulting ids as opaque strings; everything
// behind these calls is out of scope.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, e.g. for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token issues an access credential for the (userID, roomID) pair.
func (c *Client) Token(ctx context.Context, userID, roomID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/v1/tokens", map[string]string{
		"userId": userID,
		"roomId": roomID,
	}, &resp); err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("provisioning backend returned an empty token")
	}

	return resp.Token, nil
}

// AgentSession is a provisioned remote agent session. AudioStreamID and
// VideoStreamID may be equal when the agent publishes a unified stream, and
// VideoStreamID may be empty for audio-only agents.
type AgentSession struct {
	SessionID     string `json:"sessionId"`
	AudioStreamID string `json:"audioStreamId"`
	VideoStreamID string `json:"videoStreamId"`
}

// StartAgent creates a remote agent session for the room.
func (c *Client) StartAgent(ctx context.Context, roomID, userID string) (AgentSession, error) {
	var session AgentSession
	if err := c.post(ctx, "/v1/agent-sessions", map[string]string{
		"roomId": roomID,
		"userId": userID,
	}, &session); err != nil {
		return AgentSession{}, fmt.Errorf("failed to create agent session: %w", err)
	}
	if session.SessionID == "" {
		return AgentSession{}, fmt.Errorf("provisioning backend returned an empty session id")
	}

	return session, nil
}

// StopAgent stops a remote agent session.
func (c *Client) StopAgent(ctx context.Context, sessionID string) error {
	if err := c.post(ctx, "/v1/agent-sessions/"+sessionID+"/stop", struct{}{}, nil); err != nil {
		return fmt.Errorf("failed to stop agent session: %w", err)
	}
	return nil
}

// AvatarTask identifies a scheduled video-avatar render.
type AvatarTask struct {
	TaskID        string `json:"taskId"`
	VideoStreamID string `json:"videoStreamId"`
}

// StartAvatar schedules a video-avatar render task for the agent session.
func (c *Client) StartAvatar(ctx context.Context, sessionID string) (AvatarTask, error) {
	var task AvatarTask
	if err := c.post(ctx, "/v1/agent-sessions/"+sessionID+"/avatar", struct{}{}, &task); err != nil {
		return AvatarTask{}, fmt.Errorf("failed to schedule avatar task: %w", err)
	}

	return task, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return nil
}
