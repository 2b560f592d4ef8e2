package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsnotify/notification-hub/internal/notify"
)

// recordedRequest captures what the fake Jira server received.
type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type fakeServer struct {
	*httptest.Server
	mu   sync.Mutex
	reqs []recordedRequest
}

// Requests returns a copy of the requests received so far.
func (f *fakeServer) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.reqs...)
}

// fakeJira serves a single canned response and records every request.
func fakeJira(t *testing.T, status int, response string) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		f.mu.Lock()
		f.reqs = append(f.reqs, rec)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestProvider(t *testing.T, server string) *Provider {
	t.Helper()
	p, err := NewProvider(notify.Config{Server: server, User: "user", Token: "token"})
	require.NoError(t, err)
	return p
}

func TestRegistered(t *testing.T) {
	for _, tag := range []string{"jira", "JIRA", "Jira"} {
		p, err := notify.NewProvider(tag, notify.Config{Server: "http://jira", User: "u", Token: "t"})
		require.NoError(t, err, tag)
		assert.Equal(t, "jira", p.Name())
		_, ok := p.(*Provider)
		assert.True(t, ok, "factory should build *jira.Provider")
	}
}

func TestNewProviderConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  notify.Config
	}{
		{"missing server", notify.Config{User: "u", Token: "t"}},
		{"missing token", notify.Config{Server: "http://jira", User: "u"}},
		{"basic without user", notify.Config{Server: "http://jira", Token: "t"}},
		{"unknown auth method", notify.Config{Server: "http://jira", User: "u", Token: "t", AuthMethod: "oauth"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			assert.Nil(t, p)
			assert.True(t, notify.IsConfigError(err), "got %v", err)
		})
	}

	_, err := NewProvider(notify.Config{Server: "http://jira", Token: "t", AuthMethod: "token"})
	assert.NoError(t, err, "token auth does not need a user")
}

func TestSendNotificationDefaults(t *testing.T) {
	srv := fakeJira(t, http.StatusCreated,
		`{"id":"10001","key":"PROJ-123","self":"http://jira/rest/api/2/issue/10001"}`)
	p := newTestProvider(t, srv.URL)

	res, err := p.SendNotification(context.Background(), "PROJ", "Title", notify.Options{})
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/api/2/issue", req.Path)

	fields := req.Body["fields"].(map[string]any)
	assert.Equal(t, "PROJ", fields["project"].(map[string]any)["key"])
	assert.Equal(t, "Title", fields["summary"])
	assert.Equal(t, "Task", fields["issuetype"].(map[string]any)["name"])
	assert.Equal(t, "", fields["description"])

	assert.Equal(t, notify.Result{
		"key":  "PROJ-123",
		"id":   "10001",
		"self": "http://jira/rest/api/2/issue/10001",
	}, res)
}

func TestCreateIssueExplicit(t *testing.T) {
	srv := fakeJira(t, http.StatusCreated, `{"id":"10002","key":"PROJ-456","self":"http://jira/issue/10002"}`)
	p := newTestProvider(t, srv.URL)

	ref, err := p.CreateIssue(context.Background(), "PROJ", "Bug report", "Detailed description", "Bug")
	require.NoError(t, err)
	assert.Equal(t, &IssueRef{Key: "PROJ-456", ID: "10002", Self: "http://jira/issue/10002"}, ref)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	fields := reqs[0].Body["fields"].(map[string]any)
	assert.Equal(t, "Detailed description", fields["description"])
	assert.Equal(t, "Bug", fields["issuetype"].(map[string]any)["name"])
}

func TestSendNotificationFailurePropagates(t *testing.T) {
	srv := fakeJira(t, http.StatusBadRequest, `{"errorMessages":["Bad Request"]}`)
	p := newTestProvider(t, srv.URL)

	_, err := p.SendNotification(context.Background(), "PROJ", "Fail", notify.Options{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Bad Request")
}

func TestAuthHeaders(t *testing.T) {
	srv := fakeJira(t, http.StatusNoContent, "")

	basic, err := NewProvider(notify.Config{Server: srv.URL, User: "me@example.com", Token: "secret"})
	require.NoError(t, err)
	require.NoError(t, basic.DeleteIssue(context.Background(), "PROJ-1"))

	bearer, err := NewProvider(notify.Config{Server: srv.URL, Token: "pat", AuthMethod: "TOKEN"})
	require.NoError(t, err)
	require.NoError(t, bearer.DeleteIssue(context.Background(), "PROJ-1"))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	wantBasic := "Basic " + base64.StdEncoding.EncodeToString([]byte("me@example.com:secret"))
	assert.Equal(t, wantBasic, reqs[0].Auth)
	assert.Equal(t, "Bearer pat", reqs[1].Auth)
}

func TestUpdateDeleteTransition(t *testing.T) {
	srv := fakeJira(t, http.StatusNoContent, "")
	p := newTestProvider(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, p.UpdateIssue(ctx, "PROJ-1", map[string]interface{}{"summary": "New title"}))
	require.NoError(t, p.DeleteIssue(ctx, "PROJ-1"))
	require.NoError(t, p.TransitionIssue(ctx, "PROJ-1", "31"))

	reqs := srv.Requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/rest/api/2/issue/PROJ-1", reqs[0].Path)
	assert.Equal(t, "New title", reqs[0].Body["fields"].(map[string]any)["summary"])

	assert.Equal(t, http.MethodDelete, reqs[1].Method)
	assert.Equal(t, "/rest/api/2/issue/PROJ-1", reqs[1].Path)

	assert.Equal(t, http.MethodPost, reqs[2].Method)
	assert.Equal(t, "/rest/api/2/issue/PROJ-1/transitions", reqs[2].Path)
	assert.Equal(t, "31", reqs[2].Body["transition"].(map[string]any)["id"])
}

func TestTransitionIDForStatus(t *testing.T) {
	srv := fakeJira(t, http.StatusOK,
		`{"transitions":[{"id":"5","name":"Finish","to":{"name":"Done"}},{"id":"7","name":"Reopen","to":{"name":"To Do"}}]}`)
	p := newTestProvider(t, srv.URL)
	ctx := context.Background()

	id, found, err := p.TransitionIDForStatus(ctx, "PROJ-1", "done")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "5", id)

	id, found, err = p.TransitionIDForStatus(ctx, "PROJ-1", "Missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, id)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/rest/api/2/issue/PROJ-1/transitions", reqs[0].Path)
}

func TestTransitionIDForStatusError(t *testing.T) {
	srv := fakeJira(t, http.StatusNotFound, `{"errorMessages":["Issue does not exist"]}`)
	p := newTestProvider(t, srv.URL)

	_, found, err := p.TransitionIDForStatus(context.Background(), "NOPE-1", "Done")
	assert.False(t, found)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestGetIssue(t *testing.T) {
	srv := fakeJira(t, http.StatusOK, `{
		"id": "10001",
		"key": "PROJ-42",
		"self": "http://jira/rest/api/2/issue/10001",
		"fields": {
			"summary": "Fix login bug",
			"description": "h2. Details",
			"status": {"id": "3", "name": "In Progress"},
			"updated": "2025-01-16T14:20:00.000+0000"
		}
	}`)
	p := newTestProvider(t, srv.URL)

	issue, err := p.GetIssue(context.Background(), "PROJ-42")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-42", issue.Key)
	assert.Equal(t, "Fix login bug", issue.Fields.Summary)
	assert.Equal(t, "h2. Details", issue.Fields.Description)
	assert.Equal(t, "In Progress", issue.StatusName())
	assert.False(t, issue.UpdatedAt().IsZero())
	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/rest/api/2/issue/PROJ-42", reqs[0].Path)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(notify.Config{Server: "https://jira.example.com/", Token: "t"})
	assert.Equal(t, "https://jira.example.com", c.URL)
	assert.Equal(t, AuthBasic, c.AuthMethod)
	assert.Equal(t, notify.DefaultTimeout, c.HTTPClient.Timeout)
}
