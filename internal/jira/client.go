package jira

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth is returned when Jira rejects the configured credentials.
	ErrAuth = errors.New("jira authentication failed")
	// ErrRateLimited is returned when Jira answers 429.
	ErrRateLimited = errors.New("jira rate limit exceeded")
	// ErrNotFound is returned when the requested issue does not exist.
	ErrNotFound = errors.New("jira resource not found")
)

// Client is the interface for interacting with Jira.
type Client interface {
	// SearchIssuesWithHistory runs a JQL search expanding each issue's changelog.
	SearchIssuesWithHistory(ctx context.Context, jql string, startAt int, maxResults int) (*SearchResponse, error)
	// GetIssue fetches a single issue with its changelog.
	GetIssue(ctx context.Context, key string) (*IssueDTO, error)
}

// Config holds the authentication and connection settings for Jira.
type Config struct {
	BaseURL string

	// Personal Access Token, preferred over cookies when set
	Token string

	// Data Center Cookies
	XsrfToken  string
	SessionID  string
	RememberMe string

	// Load Balancer Cookies
	GCILB string
	GCLB  string

	// Performance Settings
	RequestDelay time.Duration
	CacheTTL     time.Duration
}

// NewClient creates a new Jira client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewDataCenterClient(cfg)
}
