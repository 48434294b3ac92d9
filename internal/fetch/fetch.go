// Package fetch retrieves patch note pages over HTTP, optionally through an
// on-disk page cache, or through a headless browser when the notes are
// assembled client side.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/patchday/internal/cache"
	"github.com/hyperifyio/patchday/internal/robots"
)

// maxRetryAfter caps how long a Retry-After header may stall a run.
const maxRetryAfter = 30 * time.Second

// Client fetches HTML pages with bounded retry and cache revalidation.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	// Backoff is the delay before the second attempt; it grows linearly.
	// Zero means 200ms.
	Backoff time.Duration
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int

	Cache *cache.PageCache
	// MaxAge serves cached pages younger than this without any request.
	// Zero always revalidates.
	MaxAge time.Duration
	// Robots, when set, is consulted before the first request.
	Robots *robots.Policy
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL        string
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

// Get returns the page body and its content type.
func (c *Client) Get(ctx context.Context, pageURL string) ([]byte, string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, "", fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}

	var prev *cache.Entry
	if c.Cache != nil {
		if body, ok := c.Cache.Fresh(ctx, pageURL, false, c.MaxAge); ok {
			ct := ""
			if meta, err := c.Cache.LoadMeta(ctx, pageURL, false); err == nil && meta != nil {
				ct = meta.ContentType
			}
			return body, ct, nil
		}
		if meta, err := c.Cache.LoadMeta(ctx, pageURL, false); err == nil {
			prev = meta
		}
	}
	if c.Robots != nil {
		if err := c.Robots.Check(ctx, pageURL); err != nil {
			return nil, "", err
		}
	}

	resp, err := c.retry(ctx, pageURL, prev)
	if err != nil {
		return nil, "", err
	}
	if resp.status == http.StatusNotModified {
		if c.Cache == nil || prev == nil {
			return nil, "", &StatusError{URL: pageURL, Code: resp.status}
		}
		body, err := c.Cache.LoadBody(ctx, pageURL, false)
		if err != nil {
			return nil, "", fmt.Errorf("not modified but cache unreadable: %w", err)
		}
		// Refresh SavedAt so MaxAge counts from the last confirmation.
		_ = c.Cache.Save(ctx, cache.Entry{URL: pageURL, ContentType: prev.ContentType, ETag: prev.ETag, LastModified: prev.LastModified}, body)
		return body, prev.ContentType, nil
	}
	if c.Cache != nil {
		_ = c.Cache.Save(ctx, cache.Entry{URL: pageURL, ContentType: resp.contentType, ETag: resp.etag, LastModified: resp.lastModified}, resp.body)
	}
	return resp.body, resp.contentType, nil
}

func (c *Client) retry(ctx context.Context, pageURL string, prev *cache.Entry) (response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	for i := 1; ; i++ {
		resp, err := c.do(ctx, pageURL, prev)
		if err == nil {
			return resp, nil
		}
		if i >= attempts || !isTransient(err) {
			return response{}, err
		}
		wait := time.Duration(i) * backoff
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > wait {
			wait = se.RetryAfter
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return response{}, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) do(ctx context.Context, pageURL string, prev *cache.Entry) (response, error) {
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if prev != nil {
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
		if prev.LastModified != "" {
			req.Header.Set("If-Modified-Since", prev.LastModified)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	switch {
	case resp.StatusCode == http.StatusNotModified:
		return out, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return response{}, &StatusError{URL: pageURL, Code: resp.StatusCode, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case !isHTMLContentType(out.contentType):
		return response{}, fmt.Errorf("unsupported content type: %s", out.contentType)
	}
	if out.body, err = io.ReadAll(resp.Body); err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	return out, nil
}

func (c *Client) httpClient() *http.Client {
	hops := c.RedirectMaxHops
	if hops <= 0 {
		hops = 5
	}
	hc := &http.Client{}
	if c.HTTPClient != nil {
		copied := *c.HTTPClient
		hc = &copied
	}
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= hops {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
	return hc
}

// isTransient reports whether another attempt may succeed: 5xx, 429 and
// per-attempt timeouts.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && (se.Code >= 500 || se.Code == http.StatusTooManyRequests)
}

// retryAfter parses the delta-seconds form of Retry-After.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
