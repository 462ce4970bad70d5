package repoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Client = (*GitHubClient)(nil)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"

	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw"
)

// GitHubClient reads a repository through the GitHub REST v3 contents
// endpoint. Listings come back as JSON; file contents are requested with
// the raw media type so no base64 round trip is needed.
type GitHubClient struct {
	owner     string
	repo      string
	ref       string
	token     string
	baseURL   string
	userAgent string
	delay     time.Duration
	http      *http.Client
}

// GitHubOption configures a GitHubClient.
type GitHubOption func(*GitHubClient)

// WithToken sets the API token sent as a bearer credential. Without one
// the client runs against the unauthenticated quota.
func WithToken(token string) GitHubOption {
	return func(c *GitHubClient) { c.token = token }
}

// WithRef pins requests to a branch, tag, or commit SHA instead of the
// repository's default branch.
func WithRef(ref string) GitHubOption {
	return func(c *GitHubClient) { c.ref = ref }
}

// WithBaseURL points the client at a different API host (GitHub Enterprise,
// test servers).
func WithBaseURL(base string) GitHubOption {
	return func(c *GitHubClient) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithRequestDelay sets the pause applied before every remote call. This is
// the rate-limit pacing knob: per client, no globals.
func WithRequestDelay(d time.Duration) GitHubOption {
	return func(c *GitHubClient) { c.delay = d }
}

// WithUserAgent overrides the User-Agent header. GitHub rejects requests
// without one.
func WithUserAgent(ua string) GitHubOption {
	return func(c *GitHubClient) { c.userAgent = ua }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) GitHubOption {
	return func(c *GitHubClient) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) GitHubOption {
	return func(c *GitHubClient) { c.http = hc }
}

// NewGitHubClient creates a client for one repository.
func NewGitHubClient(owner, repo string, opts ...GitHubOption) *GitHubClient {
	c := &GitHubClient{
		owner:     owner,
		repo:      repo,
		baseURL:   defaultBaseURL,
		userAgent: "incgraph",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the entries of one directory, in API order.
func (c *GitHubClient) List(ctx context.Context, dir string) ([]Entry, error) {
	body, err := c.fetch(ctx, "list", dir, acceptJSON)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &TransportError{Op: "list", Path: dir, Detail: "response is not a directory listing", Err: err}
	}
	for i := range entries {
		switch entries[i].Type {
		case EntryFile, EntryDir:
		default:
			entries[i].Type = EntryOther
		}
	}
	return entries, nil
}

// GetContent returns the raw bytes of one file.
func (c *GitHubClient) GetContent(ctx context.Context, path string) ([]byte, error) {
	return c.fetch(ctx, "content", path, acceptRaw)
}

// apiResponse is one completed HTTP exchange, pre-read so classification
// and the auth fallback can inspect it freely.
type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

// fetch performs one paced GET against the contents endpoint, retrying
// exactly once without credentials when an authenticated request is
// rejected as unauthorized. Rate-limit rejections never trigger the
// fallback: dropping credentials only shrinks the remaining quota.
func (c *GitHubClient) fetch(ctx context.Context, op, path, accept string) ([]byte, error) {
	u := c.contentsURL(path)

	if err := c.pace(ctx); err != nil {
		return nil, &TransportError{Op: op, Path: path, Err: err}
	}
	resp, err := c.do(ctx, op, path, u, accept, c.token)
	if err != nil {
		return nil, err
	}

	if c.token != "" && authRejected(resp) {
		if err := c.pace(ctx); err != nil {
			return nil, &TransportError{Op: op, Path: path, Err: err}
		}
		resp, err = c.do(ctx, op, path, u, accept, "")
		if err != nil {
			return nil, err
		}
	}
	return classify(op, path, resp)
}

// do executes a single request and reads the whole response.
func (c *GitHubClient) do(ctx context.Context, op, path, rawURL, accept, token string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Path: path, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}
	return &apiResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// pace waits out the configured per-request delay, honoring cancellation.
func (c *GitHubClient) pace(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// contentsURL builds /repos/{owner}/{repo}/contents/{path}, escaping each
// path segment but keeping the separators.
func (c *GitHubClient) contentsURL(path string) string {
	u := c.baseURL + "/repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo) + "/contents"
	if p := strings.Trim(path, "/"); p != "" {
		segs := strings.Split(p, "/")
		for i, s := range segs {
			segs[i] = url.PathEscape(s)
		}
		u += "/" + strings.Join(segs, "/")
	}
	if c.ref != "" {
		u += "?ref=" + url.QueryEscape(c.ref)
	}
	return u
}

// authRejected reports whether the response is an authorization failure
// eligible for the unauthenticated retry.
func authRejected(r *apiResponse) bool {
	if r.status == http.StatusUnauthorized {
		return true
	}
	return r.status == http.StatusForbidden && !rateLimited(r)
}

// rateLimited recognizes GitHub's rate-limit rejections: 429, or 403 with
// the quota header at zero.
func rateLimited(r *apiResponse) bool {
	if r.status == http.StatusTooManyRequests {
		return true
	}
	return r.status == http.StatusForbidden && r.header.Get("x-ratelimit-remaining") == "0"
}

// classify maps a completed response onto the package error taxonomy.
func classify(op, path string, r *apiResponse) ([]byte, error) {
	switch {
	case r.status >= 200 && r.status < 300:
		return r.body, nil
	case r.status == http.StatusNotFound:
		return nil, &NotFoundError{Path: path}
	case rateLimited(r):
		return nil, &RateLimitError{Path: path, Reset: resetTime(r.header)}
	default:
		return nil, &TransportError{Op: op, Path: path, Status: r.status, Detail: trimBody(r.body)}
	}
}

// resetTime decodes the x-ratelimit-reset header (unix seconds).
func resetTime(h http.Header) time.Time {
	raw := h.Get("x-ratelimit-reset")
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// trimBody keeps error bodies readable in logs.
func trimBody(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
