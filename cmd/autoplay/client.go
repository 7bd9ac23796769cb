package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/service"
)

// Client drives one session through the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is attached to
func (c *Client) SessionID() string {
	return c.sessionID
}

// Attach points the client at an existing session
func (c *Client) Attach(sessionID string) {
	c.sessionID = sessionID
}

func (c *Client) CreateSession(ctx context.Context, configID string) (*engine.GameState, error) {
	var body interface{}
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.sessionID = session.ID
	return session.GameState, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Input(ctx context.Context, code string) (*service.ActionResult, error) {
	return c.action(ctx, "/input", map[string]string{"code": code})
}

func (c *Client) Fire(ctx context.Context) (*service.ActionResult, error) {
	return c.action(ctx, "/fire", nil)
}

func (c *Client) Tick(ctx context.Context, kind string) (*service.ActionResult, error) {
	return c.action(ctx, "/tick", map[string]string{"kind": kind})
}

type resetResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp resetResponse
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

func (c *Client) action(ctx context.Context, path string, body interface{}) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(path), body, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return &result, nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, target interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s - %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s - %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
