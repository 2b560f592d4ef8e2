package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opsnotify/notification-hub/internal/debug"
	"github.com/opsnotify/notification-hub/internal/notify"
)

// Authentication methods accepted by NewClient.
const (
	AuthBasic = "basic"
	AuthToken = "token"
)

// Client provides HTTP access to the Jira REST API v2.
// v2 is used because issue descriptions are sent as wiki markup, not ADF.
type Client struct {
	URL        string
	Username   string
	APIToken   string
	AuthMethod string
	HTTPClient *http.Client
}

// NewClient creates a new Jira client.
func NewClient(cfg notify.Config) *Client {
	method := strings.ToLower(cfg.AuthMethod)
	if method == "" {
		method = AuthBasic
	}
	return &Client{
		URL:        strings.TrimSuffix(cfg.Server, "/"),
		Username:   cfg.User,
		APIToken:   cfg.Token,
		AuthMethod: method,
		HTTPClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
	}
}

// issueFields is the default set of fields requested when fetching an issue.
const issueFields = "summary,description,status,priority,issuetype,project,assignee,labels,created,updated"

// GetIssue fetches a single Jira issue by key (e.g., "PROJ-123").
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=%s", c.URL, url.PathEscape(key), issueFields)

	body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}

	return &issue, nil
}

// CreateIssue creates a new issue in Jira.
// fields should include "project", "summary", "issuetype", and optionally other fields.
// Jira answers with the id, key and self link only.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]interface{}) (*IssueRef, error) {
	data, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue", c.URL)

	body, err := c.doRequest(ctx, http.MethodPost, apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	var created IssueRef
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse create response: %w", err)
	}

	return &created, nil
}

// UpdateIssue updates fields of an existing Jira issue by key.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	data, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return fmt.Errorf("marshal update request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s", c.URL, url.PathEscape(key))

	if _, err := c.doRequest(ctx, http.MethodPut, apiURL, data); err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// DeleteIssue deletes a Jira issue by key.
func (c *Client) DeleteIssue(ctx context.Context, key string) error {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s", c.URL, url.PathEscape(key))

	if _, err := c.doRequest(ctx, http.MethodDelete, apiURL, nil); err != nil {
		return fmt.Errorf("delete issue %s: %w", key, err)
	}
	return nil
}

// GetTransitions lists the transitions currently available on an issue.
func (c *Client) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/transitions", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get transitions for %s: %w", key, err)
	}

	var result struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse transitions response: %w", err)
	}

	return result.Transitions, nil
}

// DoTransition applies a transition to an issue.
func (c *Client) DoTransition(ctx context.Context, key, transitionID string) error {
	data, err := json.Marshal(map[string]interface{}{
		"transition": map[string]string{"id": transitionID},
	})
	if err != nil {
		return fmt.Errorf("marshal transition request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/transitions", c.URL, url.PathEscape(key))

	if _, err := c.doRequest(ctx, http.MethodPost, apiURL, data); err != nil {
		return fmt.Errorf("transition issue %s: %w", key, err)
	}
	return nil
}

// doRequest executes an authenticated HTTP request and returns the response body.
// Non-2xx responses are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nhub/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	debug.Logger().Debug("jira request", "method", method, "url", apiURL, "status", resp.StatusCode)

	// PUT, DELETE and transitions return 204 No Content on success
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// setAuth sets the authentication header for the configured method.
func (c *Client) setAuth(req *http.Request) {
	if c.AuthMethod == AuthToken {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
		return
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
	req.Header.Set("Authorization", "Basic "+auth)
}
