// Package github talks to the code-hosting platform's REST API: it collects
// contribution events for a pull request and posts the reconciliation report
// back as a sticky comment.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/willynilly/action-update-cff-authors/internal/transport"
	"github.com/willynilly/action-update-cff-authors/pkg/errors"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

const acceptJSON = "application/vnd.github+json"

// timeline events still require the preview media type.
const acceptTimeline = "application/vnd.github.mockingbird-preview+json"

// Client is a minimal GitHub REST client covering the endpoints the tool
// needs. Construct with NewClient.
type Client struct {
	baseURL   string
	transport *transport.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API endpoint, mainly for
// tests and GitHub Enterprise installs.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTransport replaces the underlying transport client.
func WithTransport(t *transport.Client) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// NewClient creates a GitHub API client. An empty token yields an
// unauthenticated client, which works against public repositories at a
// reduced rate limit.
func NewClient(token string, opts ...ClientOption) *Client {
	var auth transport.Authenticator = &transport.NoAuth{}
	if token != "" {
		auth = &transport.TokenAuth{Token: token}
	}
	c := &Client{
		baseURL:   DefaultBaseURL,
		transport: transport.New(auth),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path, accept string, target any) error {
	resp, err := c.transport.Get(ctx, c.baseURL+path, map[string]string{"Accept": accept})
	if err != nil {
		return err
	}
	return transport.DecodeResponse("github", resp, target)
}

// User is a platform account profile.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
	Type  string `json:"type"` // "User" or "Organization"
}

// IsOrganization reports whether the account is an organization.
func (u *User) IsOrganization() bool {
	return u.Type == "Organization"
}

// User fetches an account profile by login.
func (c *Client) User(ctx context.Context, login string) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/"+login, acceptJSON, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// comment is the subset of the issue-comment resource the upsert needs.
type comment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// UpsertComment posts body as a pull-request comment, updating the existing
// comment that contains marker instead of creating a second one.
func (c *Client) UpsertComment(ctx context.Context, repo string, prNumber int, marker, body string) error {
	var existing []comment
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repo, prNumber)
	if err := c.get(ctx, path, acceptJSON, &existing); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return errors.WrapParse("json", "comment payload", err)
	}

	for _, cm := range existing {
		if strings.Contains(cm.Body, marker) {
			resp, err := c.transport.Patch(ctx,
				fmt.Sprintf("%s/repos/%s/issues/comments/%d", c.baseURL, repo, cm.ID),
				bytes.NewReader(payload))
			if err != nil {
				return err
			}
			return transport.DecodeResponse("github", resp, nil)
		}
	}

	resp, err := c.transport.Post(ctx, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return transport.DecodeResponse("github", resp, nil)
}
