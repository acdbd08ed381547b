// Package huggingface fetches pretrained weights from the HuggingFace Hub.
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/containerd/errdefs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultBaseURL is the public HuggingFace Hub.
	DefaultBaseURL   = "https://huggingface.co"
	defaultUserAgent = "model-zoo"
	defaultRevision  = "main"
)

// Client talks to the two Hub endpoints a weights fetch needs: the
// repository tree API and the resolve endpoint.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	token     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken authenticates requests with a Hub access token.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBaseURL points the client at a Hub mirror, as HF_ENDPOINT does.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// NewClient returns a client for the public Hub unless WithBaseURL says
// otherwise. Requests are traced through otelhttp.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the Hub endpoint in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListFiles walks the repository tree at revision and returns every file,
// directories expanded in the order the Hub lists them.
func (c *Client) ListFiles(ctx context.Context, repo, revision string) ([]RepoFile, error) {
	if revision == "" {
		revision = defaultRevision
	}

	var files []RepoFile
	pending := []string{""}
	for len(pending) > 0 {
		dir := pending[0]
		pending = pending[1:]

		entries, err := c.tree(ctx, repo, revision, dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch e.Type {
			case "file":
				files = append(files, e)
			case "directory":
				pending = append(pending, e.Path)
			}
		}
	}
	return files, nil
}

func (c *Client) tree(ctx context.Context, repo, revision, dir string) ([]RepoFile, error) {
	resp, err := c.get(ctx, repo, dir, "api/models", repo, "tree", path.Join(revision, dir))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []RepoFile
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode tree of %s/%s: %w", repo, dir, err)
	}
	return entries, nil
}

// DownloadFile opens filename at revision through the resolve endpoint,
// which follows LFS redirects. The size is -1 when the server does not send
// a Content-Length. The caller closes the body.
func (c *Client) DownloadFile(ctx context.Context, repo, revision, filename string) (io.ReadCloser, int64, error) {
	if revision == "" {
		revision = defaultRevision
	}
	resp, err := c.get(ctx, repo, filename, repo, "resolve", revision, filename)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// get issues an authenticated GET for the joined path segments and turns
// any non-200 answer into a HubError about file in repo.
func (c *Client) get(ctx context.Context, repo, file string, segments ...string) (*http.Response, error) {
	u, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", repo, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, &HubError{
		Repo:       repo,
		File:       file,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// HubError is a non-200 answer from the Hub. It unwraps to the errdefs
// class matching the status, so callers can tell a private repository from
// an outage.
type HubError struct {
	Repo       string
	File       string
	StatusCode int
	Body       string
}

func (e *HubError) Error() string {
	target := e.Repo
	if e.File != "" {
		target += "/" + e.File
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("%s: access denied (status %d)", target, e.StatusCode)
	case http.StatusNotFound:
		return fmt.Sprintf("%s: not found", target)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("%s: rate limited", target)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", target, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", target, e.StatusCode, e.Body)
}

func (e *HubError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return errdefs.ErrUnauthenticated
	case e.StatusCode == http.StatusForbidden:
		return errdefs.ErrPermissionDenied
	case e.StatusCode == http.StatusNotFound:
		return errdefs.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return errdefs.ErrResourceExhausted
	case e.StatusCode >= http.StatusInternalServerError:
		return errdefs.ErrUnavailable
	}
	return errdefs.ErrUnknown
}
