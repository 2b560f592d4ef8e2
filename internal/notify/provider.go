// Package notify defines the provider abstraction shared by every notification
// backend, the options and result shapes passed through it, and the registry
// used to build a provider from its type tag.
package notify

import (
	"context"
	"time"
)

// DefaultTimeout bounds every provider round trip when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Provider sends a notification to one external system.
//
// Each backend interprets destination and message in its own terms: the Jira
// provider treats them as project key and issue summary, the Slack provider as
// channel and message text. Backend-specific operations live on the concrete
// types, not on this interface.
type Provider interface {
	// Name returns the lowercase registry tag (e.g., "jira", "slack").
	Name() string

	// SendNotification performs a single synchronous call against the backend.
	SendNotification(ctx context.Context, destination, message string, opts Options) (Result, error)
}

// Options carries the recognized per-call settings.
type Options struct {
	// Description is the issue body for issue-tracker providers.
	Description string

	// IssueType names the issue type for issue-tracker providers (default "Task").
	IssueType string

	// Extra holds chat pass-through parameters (e.g., "thread_ts", "username").
	// Each provider documents the keys it accepts and rejects the rest.
	Extra map[string]string
}

// Result is the JSON-shaped mapping returned by a provider call.
type Result map[string]any

// Config is the connection configuration handed to a provider factory.
// Fields that a backend does not use are ignored.
type Config struct {
	Server     string        // issue tracker base URL
	User       string        // account identifier for basic auth
	Token      string        // API or bot token
	AuthMethod string        // "basic" (default) or "token"
	Timeout    time.Duration // per-request bound, DefaultTimeout when zero
	APIURL     string        // chat API endpoint override
}

// RequestTimeout returns the configured timeout or DefaultTimeout.
func (c Config) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
