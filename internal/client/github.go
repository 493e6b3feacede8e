package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	githubBaseURL    = "https://api.github.com"
	githubAPIVersion = "2022-11-28"
	githubTimeout    = 30 * time.Second
	githubPageSize   = 100
)

// GitHub's secondary rate limits reject bursts; stay well under them.
var githubRequestRate = rate.Limit(2)

var githubTokenPattern = regexp.MustCompile(
	`^(gh[ps]_[a-zA-Z0-9]{36}|github_pat_[a-zA-Z0-9]{22}_[a-zA-Z0-9]{59})$`)

// GitHubClient lists open issues and pull requests for one repository.
// The repository issues endpoint returns both; pull requests are told apart
// by the pull_request field and tagged with their kind.
type GitHubClient struct {
	name    string
	owner   string
	repo    string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewGitHub creates a GitHub client for owner/repo. The token is opaque to
// the caller but must look like a GitHub token; a malformed one is a
// configuration error, not something to discover mid-fetch.
func NewGitHub(name, owner, repo, token string) (*GitHubClient, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return nil, fmt.Errorf("%w: client %q: owner and repo are required", ErrConfiguration, name)
	}
	if !githubTokenPattern.MatchString(token) {
		return nil, fmt.Errorf("%w: client %q: access token does not look like a GitHub token", ErrConfiguration, name)
	}
	return &GitHubClient{
		name:    name,
		owner:   owner,
		repo:    repo,
		token:   token,
		client:  &http.Client{Timeout: githubTimeout},
		limiter: rate.NewLimiter(githubRequestRate, 1),
		baseURL: githubBaseURL,
	}, nil
}

// Name returns the configured display name.
func (g *GitHubClient) Name() string {
	return g.name
}

// githubIssue is a raw record from the repository issues endpoint.
type githubIssue struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

// Fetch retrieves open issues and pull requests, issues first, each group in
// API-natural order. A record with unparseable timestamps becomes a Failure
// item instead of being dropped.
func (g *GitHubClient) Fetch(ctx context.Context) ([]Item, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("client %q: %w: %v", g.name, ErrTransport, err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&per_page=%d",
		g.baseURL, g.owner, g.repo, githubPageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client %q: create request: %w", g.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w: %v", g.name, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("client %q: %w: %s/%s: HTTP %d", g.name, ErrAuthentication, g.owner, g.repo, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("client %q: %w: %s/%s: HTTP %d", g.name, ErrTransport, g.owner, g.repo, resp.StatusCode)
	}

	var raw []githubIssue
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("client %q: %w: decode issues: %v", g.name, ErrNormalization, err)
	}

	var issues, prs []Item
	for _, r := range raw {
		item, err := issueFromRaw(r)
		if err != nil {
			issues = append(issues, Failure{
				Ref:   fmt.Sprintf("#%d", r.Number),
				Cause: err.Error(),
			})
			continue
		}
		if item.Kind == KindPullRequest {
			prs = append(prs, item)
		} else {
			issues = append(issues, item)
		}
	}

	return append(issues, prs...), nil
}

func issueFromRaw(r githubIssue) (Issue, error) {
	created, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return Issue{}, fmt.Errorf("%w: created_at %q: %v", ErrNormalization, r.CreatedAt, err)
	}
	updated, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return Issue{}, fmt.Errorf("%w: updated_at %q: %v", ErrNormalization, r.UpdatedAt, err)
	}

	kind := KindIssue
	if r.PullRequest != nil {
		kind = KindPullRequest
	}

	return Issue{
		Kind:      kind,
		Number:    r.Number,
		Title:     r.Title,
		Author:    r.User.Login,
		URL:       r.HTMLURL,
		CreatedAt: created,
		UpdatedAt: updated,
		Body:      r.Body,
	}, nil
}
