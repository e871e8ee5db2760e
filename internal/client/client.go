// Package client is a typed HTTP client for the choreo API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"choreo-backend/internal/model"
)

const DefaultBaseURL = "http://localhost:3000"

// APIError a non-2xx response
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Kind, e.Message)
	}
	if e.Kind != "" {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Kind)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks to one API server. The token is sent as a bearer token on
// every request once set; it is not safe to change it concurrently with
// requests.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. Empty baseURL means DefaultBaseURL; nil httpClient
// means http.DefaultClient.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates an account, stores the returned token and returns it.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", credentials{username, password}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// Login exchanges credentials for a token, stores it and returns it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{username, password}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) ListDances(ctx context.Context) ([]model.Dance, error) {
	var dances []model.Dance
	if err := c.do(ctx, http.MethodGet, "/api/dances", nil, &dances); err != nil {
		return nil, err
	}
	return dances, nil
}

func (c *Client) GetDance(ctx context.Context, id string) (*model.Dance, error) {
	var d model.Dance
	if err := c.do(ctx, http.MethodGet, dancePath(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CreateDance(ctx context.Context, name string, numberOfDancers int) (*model.Dance, error) {
	body := map[string]any{"name": name, "numberOfDancers": numberOfDancers}
	var d model.Dance
	if err := c.do(ctx, http.MethodPost, "/api/dances", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UpdateDance(ctx context.Context, id string, update model.DanceUpdate) error {
	return c.do(ctx, http.MethodPut, dancePath(id), update, nil)
}

func (c *Client) DeleteDance(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, dancePath(id), nil, nil)
}

func (c *Client) AddFormation(ctx context.Context, danceID string) (*model.Formation, error) {
	var f model.Formation
	if err := c.do(ctx, http.MethodPost, dancePath(danceID)+"/formations", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) UpdateFormation(ctx context.Context, danceID, formationID string, positions []model.Position) error {
	if positions == nil {
		positions = []model.Position{}
	}
	body := map[string]any{"positions": positions}
	return c.do(ctx, http.MethodPut, formationPath(danceID, formationID), body, nil)
}

func (c *Client) DeleteFormation(ctx context.Context, danceID, formationID string) error {
	return c.do(ctx, http.MethodDelete, formationPath(danceID, formationID), nil, nil)
}

func dancePath(id string) string {
	return "/api/dances/" + url.PathEscape(id)
}

func formationPath(danceID, formationID string) string {
	return dancePath(danceID) + "/formations/" + url.PathEscape(formationID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Kind, apiErr.Message = errBody.Error, errBody.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
