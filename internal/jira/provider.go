package jira

import (
	"context"
	"strings"

	"github.com/opsnotify/notification-hub/internal/notify"
)

// DefaultIssueType is used when no issue type is given.
const DefaultIssueType = "Task"

func init() {
	notify.Register("jira", func(cfg notify.Config) (notify.Provider, error) {
		p, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// Provider is the issue-tracker notification provider.
// A notification becomes a new issue: destination is the project key and
// message the summary.
type Provider struct {
	client *Client
}

// NewProvider validates cfg and builds a Provider.
func NewProvider(cfg notify.Config) (*Provider, error) {
	if cfg.Server == "" {
		return nil, &notify.ConfigError{Provider: "jira", Field: "server URL"}
	}
	if cfg.Token == "" {
		return nil, &notify.ConfigError{Provider: "jira", Field: "API token"}
	}
	switch strings.ToLower(cfg.AuthMethod) {
	case "", AuthBasic:
		if cfg.User == "" {
			return nil, &notify.ConfigError{Provider: "jira", Field: "user (required for basic auth)"}
		}
	case AuthToken:
	default:
		return nil, &notify.ConfigError{Provider: "jira", Field: "auth method " + cfg.AuthMethod + " (want basic or token)"}
	}
	return &Provider{client: NewClient(cfg)}, nil
}

// Name implements notify.Provider.
func (p *Provider) Name() string { return "jira" }

// Client exposes the underlying REST client.
func (p *Provider) Client() *Client { return p.client }

// SendNotification creates an issue in project destination with summary message.
// opts.Description becomes the issue body and opts.IssueType the type (default Task).
// The result holds the created issue's key, id and self link.
func (p *Provider) SendNotification(ctx context.Context, destination, message string, opts notify.Options) (notify.Result, error) {
	ref, err := p.CreateIssue(ctx, destination, message, opts.Description, opts.IssueType)
	if err != nil {
		return nil, err
	}
	return notify.Result{"key": ref.Key, "id": ref.ID, "self": ref.Self}, nil
}

// CreateIssue is SendNotification with the issue vocabulary.
func (p *Provider) CreateIssue(ctx context.Context, project, summary, description, issueType string) (*IssueRef, error) {
	if issueType == "" {
		issueType = DefaultIssueType
	}
	return p.client.CreateIssue(ctx, map[string]interface{}{
		"project":     map[string]string{"key": project},
		"summary":     summary,
		"description": description,
		"issuetype":   map[string]string{"name": issueType},
	})
}

// GetIssue fetches an issue by key.
func (p *Provider) GetIssue(ctx context.Context, key string) (*Issue, error) {
	return p.client.GetIssue(ctx, key)
}

// UpdateIssue sets the given fields (e.g., "summary", "description") on an issue.
func (p *Provider) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	return p.client.UpdateIssue(ctx, key, fields)
}

// DeleteIssue deletes an issue.
func (p *Provider) DeleteIssue(ctx context.Context, key string) error {
	return p.client.DeleteIssue(ctx, key)
}

// TransitionIssue applies the transition with the given id.
func (p *Provider) TransitionIssue(ctx context.Context, key, transitionID string) error {
	return p.client.DoTransition(ctx, key, transitionID)
}

// Transitions lists the transitions available on an issue right now.
func (p *Provider) Transitions(ctx context.Context, key string) ([]Transition, error) {
	return p.client.GetTransitions(ctx, key)
}

// TransitionIDForStatus finds the transition leading to status, compared
// case-insensitively. found is false when no transition matches; that is not
// an error.
func (p *Provider) TransitionIDForStatus(ctx context.Context, key, status string) (id string, found bool, err error) {
	transitions, err := p.client.GetTransitions(ctx, key)
	if err != nil {
		return "", false, err
	}
	for _, t := range transitions {
		if strings.EqualFold(t.To.Name, status) {
			return t.ID, true, nil
		}
	}
	return "", false, nil
}
