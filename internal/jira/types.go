// Package jira provides the Jira REST client and the issue-tracker
// notification provider built on it.
package jira

import (
	"fmt"
	"time"
)

// Issue represents a Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the fields of a Jira issue.
type IssueFields struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description"` // wiki markup (API v2)
	Status      *StatusField    `json:"status"`
	Priority    *PriorityField  `json:"priority"`
	IssueType   *IssueTypeField `json:"issuetype"`
	Project     *ProjectField   `json:"project"`
	Assignee    *UserField      `json:"assignee"`
	Labels      []string        `json:"labels"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
}

// StatusField represents a Jira issue status.
type StatusField struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// PriorityField represents a Jira issue priority.
type PriorityField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueTypeField represents a Jira issue type.
type IssueTypeField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectField represents a Jira project.
type ProjectField struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// UserField represents a Jira user.
type UserField struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// IssueRef is the identity Jira returns for a created issue.
type IssueRef struct {
	Key  string `json:"key"`
	ID   string `json:"id"`
	Self string `json:"self"`
}

// Transition is a workflow transition currently available on an issue.
type Transition struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	To   StatusField `json:"to"`
}

// StatusName returns the name of the issue's current status, or "".
func (i *Issue) StatusName() string {
	if i.Fields.Status == nil {
		return ""
	}
	return i.Fields.Status.Name
}

// UpdatedAt parses the issue's updated timestamp; zero when missing or malformed.
func (i *Issue) UpdatedAt() time.Time {
	t, err := ParseTimestamp(i.Fields.Updated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// APIError is a non-2xx response from Jira.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, e.Body)
}
