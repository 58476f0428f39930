// internal/fetch/client.go
//
// Retrying JSON client for widget loaders.
//
// Context
// -------
// Every widget that reads from the ThreadStead API or a third-party service
// goes through one Client.  It wraps hashicorp/go-retryablehttp so transient
// 5xx and connection errors are retried with jittered backoff, and decodes
// bodies with json-iterator.
//
// Errors
// ------
// A non-2xx final response becomes *StatusError.  Its message is the text a
// card shows under "Retry", so it stays short and human-readable.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • The request context bounds the whole retry sequence, not each attempt.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBody caps how much of a response is read.  Widget payloads are small.
const maxBody = 4 << 20

// Options tunes a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	Logger  *zap.SugaredLogger
}

// Client issues GET requests and decodes JSON responses.
type Client struct {
	base *url.URL
	hc   *retryablehttp.Client
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.Status, http.StatusText(e.Status))
}

// New builds a Client.  BaseURL may be empty when callers always pass
// absolute URLs.
func New(opts Options) (*Client, error) {
	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("fetch: base url: %w", err)
		}
		base = u
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = opts.Retries
	hc.RetryWaitMin = 100 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	if opts.Timeout > 0 {
		hc.HTTPClient.Timeout = opts.Timeout
	}
	hc.Logger = nil
	if opts.Logger != nil {
		hc.Logger = leveled{opts.Logger}
	}
	// Hand the last response back instead of the library's generic
	// "giving up" error so StatusError carries the real code.
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{base: base, hc: hc}, nil
}

// Resolve joins path onto the base URL.  Absolute URLs pass through.
func (c *Client) Resolve(path string, q url.Values) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() {
		if c.base == nil {
			return "", fmt.Errorf("fetch: relative path %q without base url", path)
		}
		u = c.base.ResolveReference(&url.URL{
			Path:     c.base.Path + "/" + strings.TrimLeft(u.Path, "/"),
			RawQuery: u.RawQuery,
		})
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// GetJSON fetches path and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, q url.Values, out any) error {
	target, err := c.Resolve(path, q)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return &StatusError{URL: target, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
