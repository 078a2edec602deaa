package vcs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"AssetWarden/internal/asset"
	"AssetWarden/internal/snapshot"
)

const (
	// perPage is the page size for listings.
	perPage = 100

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 10 * time.Second
)

// Client reads pull requests from GitHub and comments on them.
type Client struct {
	gh      *github.Client // gh issues REST calls
	timeout time.Duration  // timeout bounds each call
}

// New creates a client. An empty token makes anonymous calls, an empty
// apiURL targets api.github.com and a non-positive timeout uses
// DefaultTimeout.
func New(httpClient *http.Client, token, apiURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	gh := github.NewClient(httpClient)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}

	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}

		u, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("parse github api url:\n%w", err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, timeout: timeout}, nil
}

// bounded derives the context of one API call.
func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Snapshot fetches everything a review needs about pull request number.
func (c *Client) Snapshot(ctx context.Context, owner, repo string, number int) (*snapshot.Snapshot, error) {
	callCtx, cancel := c.bounded(ctx)
	pr, _, err := c.gh.PullRequests.Get(callCtx, owner, repo, number)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("get pull request %s/%s#%d:\n%w", owner, repo, number, err)
	}

	snap := &snapshot.Snapshot{
		Owner: owner,
		Repo:  repo,
		PullRequest: snapshot.PullRequest{
			Number:  pr.GetNumber(),
			State:   pr.GetState(),
			Draft:   pr.GetDraft(),
			Locked:  pr.GetLocked(),
			Body:    pr.GetBody(),
			HTMLURL: pr.GetHTMLURL(),
			BaseSHA: pr.GetBase().GetSHA(),
			HeadSHA: pr.GetHead().GetSHA(),
		},
		FetchedAt: time.Now().UTC(),
	}

	snap.Files, snap.Commits, err = c.compare(ctx, owner, repo, snap.PullRequest.BaseSHA, snap.PullRequest.HeadSHA)
	if err != nil {
		return nil, err
	}

	snap.Comments, err = c.comments(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// compare lists the files and commits between base and head, commits oldest first.
func (c *Client) compare(ctx context.Context, owner, repo, base, head string) ([]asset.File, []string, error) {
	var (
		files   []asset.File
		commits []string
		seen    = make(map[string]bool)
	)

	opts := &github.ListOptions{PerPage: perPage}

	for {
		callCtx, cancel := c.bounded(ctx)
		cmp, resp, err := c.gh.Repositories.CompareCommits(callCtx, owner, repo, base, head, opts)
		cancel()
		if err != nil {
			return nil, nil, fmt.Errorf("compare %s...%s:\n%w", base, head, err)
		}

		for _, rc := range cmp.Commits {
			commits = append(commits, rc.GetSHA())
		}

		// files are repeated on every page
		for _, f := range cmp.Files {
			if seen[f.GetFilename()] {
				continue
			}

			seen[f.GetFilename()] = true
			files = append(files, asset.File{
				Path:   f.GetFilename(),
				RawURL: f.GetRawURL(),
				Status: f.GetStatus(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, commits, nil
}

// comments returns every issue comment body on the pull request.
func (c *Client) comments(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var bodies []string

	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	for {
		callCtx, cancel := c.bounded(ctx)
		page, resp, err := c.gh.Issues.ListComments(callCtx, owner, repo, number, opts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("list comments of %s/%s#%d:\n%w", owner, repo, number, err)
		}

		for _, ic := range page {
			bodies = append(bodies, ic.GetBody())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return bodies, nil
}

// Comment posts body on pull request number.
func (c *Client) Comment(ctx context.Context, owner, repo string, number int, body string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	_, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: github.String(body)})
	if err != nil {
		return fmt.Errorf("comment on %s/%s#%d:\n%w", owner, repo, number, err)
	}

	return nil
}

// SplitRepo splits "owner/name" into its parts.
func SplitRepo(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository %q is not owner/name", full)
	}

	return owner, repo, nil
}
