// Package gitsource imports assignment text from GitHub, where course
// assignments commonly live as a README or markdown brief in a classroom
// repository.
package gitsource

import (
	"context"
	"fmt"
	"strings"

	gogh "github.com/google/go-github/v68/github"
)

// Client fetches assignment files from GitHub repositories.
type Client struct {
	gh *gogh.Client
}

// New creates a GitHub client. An empty token gives unauthenticated access
// to public repositories (subject to lower rate limits).
func New(token string) *Client {
	gh := gogh.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh}
}

// FetchAssignment downloads the file at path in the given "owner/repo"
// repository and returns its decoded text. Path defaults to README.md.
func (c *Client) FetchAssignment(ctx context.Context, repo, path string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = "README.md"
	}

	content, _, _, err := c.gh.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return "", fmt.Errorf("fetching %s from %s: %w", path, repo, err)
	}
	if content == nil {
		return "", fmt.Errorf("%s in %s is not a file", path, repo)
	}

	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s from %s: %w", path, repo, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s in %s is empty", path, repo)
	}
	return text, nil
}

func splitRepo(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q, expected \"owner/repo\"", fullName)
	}
	return parts[0], parts[1], nil
}
