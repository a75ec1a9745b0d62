package caseflowsdk

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
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client is a minimal Caseflow HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	// OwnerID is sent as X-Owner-Id when no credential is set; servers accept it only in local mode.
	OwnerID    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RetryFor bounds retries of 503 persistence_unavailable responses. Zero disables retries.
	RetryFor time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Timeout:  10 * time.Second,
		RetryFor: 3 * time.Second,
	}
}

type Stage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Position    int    `json:"position"`
	IsDefault   bool   `json:"is_default"`
	IsFinal     bool   `json:"is_final"`
}

type Assignment struct {
	CaseID    string  `json:"case_id"`
	StageID   string  `json:"stage_id"`
	Priority  string  `json:"priority"`
	DueDate   *string `json:"due_date,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	EnteredAt string  `json:"entered_at"`
	UpdatedAt string  `json:"updated_at"`
}

type Activity struct {
	ID           string  `json:"id"`
	CaseID       string  `json:"case_id"`
	ActivityType string  `json:"activity_type"`
	Description  string  `json:"description"`
	FromStageID  *string `json:"from_stage_id,omitempty"`
	ToStageID    *string `json:"to_stage_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type Transition struct {
	From       Stage      `json:"from"`
	To         Stage      `json:"to"`
	Assignment Assignment `json:"assignment"`
	Activity   Activity   `json:"activity"`
}

type Task struct {
	ID          string  `json:"id"`
	CaseID      string  `json:"case_id"`
	Title       string  `json:"title"`
	IsCompleted bool    `json:"is_completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type Card struct {
	CaseID        string  `json:"case_id"`
	ClientID      string  `json:"client_id"`
	ClientName    string  `json:"client_name"`
	OpposingParty string  `json:"opposing_party,omitempty"`
	ProcessNumber string  `json:"process_number,omitempty"`
	ActionType    string  `json:"action_type,omitempty"`
	StageID       string  `json:"stage_id"`
	Assigned      bool    `json:"assigned"`
	Priority      string  `json:"priority,omitempty"`
	DueDate       *string `json:"due_date,omitempty"`
}

type Column struct {
	Stage Stage  `json:"stage"`
	Count int    `json:"count"`
	Cards []Card `json:"cards"`
}

type Board struct {
	Columns []Column `json:"columns"`
	Total   int      `json:"total"`
}

// Filters narrow board queries. Empty fields are not sent.
type Filters struct {
	Search     string
	ClientID   string
	ActionType string
	Priority   string
}

func (f Filters) query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{
		"search":      f.Search,
		"client_id":   f.ClientID,
		"action_type": f.ActionType,
		"priority":    f.Priority,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether the server rejected the call because storage was unavailable.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

func (c *Client) ListStages(ctx context.Context) ([]Stage, error) {
	var resp []Stage
	err := c.do(ctx, http.MethodGet, "v0/stages", nil, &resp)
	return resp, err
}

// SeedDefaultStages creates the default stages when the owner has none.
func (c *Client) SeedDefaultStages(ctx context.Context) ([]Stage, bool, error) {
	var resp struct {
		Created bool    `json:"created"`
		Stages  []Stage `json:"stages"`
	}
	err := c.do(ctx, http.MethodPost, "v0/stages/defaults", nil, &resp)
	return resp.Stages, resp.Created, err
}

// ReorderStages sends the full stage order.
func (c *Client) ReorderStages(ctx context.Context, stageIDs []string) ([]Stage, error) {
	var resp []Stage
	err := c.do(ctx, http.MethodPut, "v0/stages/reorder", map[string]any{"stage_ids": stageIDs}, &resp)
	return resp, err
}

// MoveCase moves a case to a stage.
func (c *Client) MoveCase(ctx context.Context, caseID, stageID string) (Transition, error) {
	var resp Transition
	endpoint := fmt.Sprintf("v0/cases/%s/move", url.PathEscape(caseID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"stage_id": stageID}, &resp)
	return resp, err
}

func (c *Client) Activities(ctx context.Context, caseID string) ([]Activity, error) {
	var resp []Activity
	endpoint := fmt.Sprintf("v0/cases/%s/activities", url.PathEscape(caseID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) Tasks(ctx context.Context, caseID string) ([]Task, error) {
	var resp []Task
	endpoint := fmt.Sprintf("v0/cases/%s/tasks", url.PathEscape(caseID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) AddTask(ctx context.Context, caseID, title string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/cases/%s/tasks", url.PathEscape(caseID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"title": title}, &resp)
	return resp, err
}

func (c *Client) ToggleTask(ctx context.Context, taskID string, completed bool) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"is_completed": completed}, &resp)
	return resp, err
}

// Board returns the kanban projection.
func (c *Client) Board(ctx context.Context, f Filters) (Board, error) {
	endpoint := "v0/board"
	if q := f.query(); len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp Board
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// do sends one request. 503 responses are retried with exponential backoff
// until RetryFor elapses; every other failure is returned at once.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var payload []byte
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		payload = buf.Bytes()
	}
	attempt := func() error {
		err := c.once(ctx, method, endpoint, payload, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Retryable() {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if c.RetryFor <= 0 {
		return c.once(ctx, method, endpoint, payload, out)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = c.RetryFor
	return backoff.Retry(attempt, backoff.WithContext(policy, ctx))
}

func (c *Client) once(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.OwnerID != "":
		req.Header.Set("X-Owner-Id", c.OwnerID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
