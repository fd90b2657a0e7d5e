// Package gh is a minimal client for the GitHub repository contents API.
package gh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/retry"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// rawHost serves download_url links; it accepts the same token as the API.
const rawHost = "raw.githubusercontent.com"

// maxBodySize caps listing and file responses. Workflow files are small.
const maxBodySize = 1 << 20

// ErrHTTPStatus matches every StatusError.
var ErrHTTPStatus = errors.New("gh: unexpected HTTP status")

// StatusError reports a non-success response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// Entry is one item of a contents directory listing.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// IsFile reports whether the entry is a regular file.
func (e Entry) IsFile() bool {
	return e.Type == "file"
}

// API defines the contents operations wfsync needs.
type API interface {
	// ListDir lists a directory of owner/repo at ref (default branch if empty).
	ListDir(ctx context.Context, owner, repo, dir, ref string) ([]Entry, error)
	// Download fetches raw file content from a download_url.
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

var _ API = (*Client)(nil)

// Client implements API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	userAgent  string
	retry      retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise
// or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient replaces the default client (30s timeout). nil is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithToken sends a bearer token on API and raw content requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetry enables retries of network errors, 429 and 5xx responses.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// New returns a Client for the public GitHub API.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "wfsync",
		retry:      retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDir lists a repository directory.
func (c *Client) ListDir(ctx context.Context, owner, repo, dir, ref string) ([]Entry, error) {
	u, err := url.JoinPath(c.baseURL, "repos", owner, repo, "contents", strings.Trim(dir, "/"))
	if err != nil {
		return nil, fmt.Errorf("build contents URL: %w", err)
	}
	if ref != "" {
		u += "?" + url.Values{"ref": {ref}}.Encode()
	}

	body, err := c.get(ctx, u, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode listing of %s/%s/%s: %w", owner, repo, dir, err)
	}
	clog.Debug("listed directory", "repo", owner+"/"+repo, "dir", dir, "entries", len(entries))
	return entries, nil
}

// Download fetches raw file content.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("gh: empty download URL")
	}
	return c.get(ctx, rawURL, "")
}

func (c *Client) get(ctx context.Context, u, accept string) ([]byte, error) {
	return retry.Do(ctx, c.retry, func() ([]byte, error) {
		return c.getOnce(ctx, u, accept)
	})
}

func (c *Client) getOnce(ctx context.Context, u, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	}
	if c.token != "" && c.trusted(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	clog.Debug("http request", "method", req.Method, "url", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Retryable(fmt.Errorf("GET %s: %w", u, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{Code: resp.StatusCode, URL: u}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, retry.Retryable(serr)
		}
		return nil, serr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("read %s: %w", u, err))
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("GET %s: response body exceeds %d bytes", u, maxBodySize)
	}
	return data, nil
}

// trusted limits the Authorization header to the API host and GitHub's raw
// content host so a listing cannot redirect the token elsewhere.
func (c *Client) trusted(u *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return u.Host == base.Host || u.Host == rawHost
}
