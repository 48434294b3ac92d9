package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	DefaultAPIBase  = "https://oauth.reddit.com"
	DefaultWebBase  = "https://www.reddit.com"
)

// RedditConfig holds script-app credentials and endpoints. The endpoint
// fields default to the public Reddit hosts.
type RedditConfig struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	TokenURL string
	APIBase  string
	WebBase  string

	// Limiter paces every API call. Nil allows one call per second.
	Limiter    *rate.Limiter
	HTTPClient *http.Client
}

// Validate reports the first missing credential.
func (c RedditConfig) Validate() error {
	for _, f := range []struct{ name, v string }{
		{"client id", c.ClientID},
		{"client secret", c.ClientSecret},
		{"username", c.Username},
		{"password", c.Password},
		{"user agent", c.UserAgent},
	} {
		if strings.TrimSpace(f.v) == "" {
			return fmt.Errorf("reddit: missing %s", f.name)
		}
	}
	return nil
}

// Reddit posts through the OAuth API using the password grant.
type Reddit struct {
	cfg     RedditConfig
	limiter *rate.Limiter

	mu     sync.Mutex
	client *http.Client
}

// APIError carries the error triples Reddit returns inside a 200 response.
type APIError struct {
	Endpoint string
	Errors   [][]string
}

func (e *APIError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, tr := range e.Errors {
		parts = append(parts, strings.Join(tr, ": "))
	}
	return fmt.Sprintf("reddit %s: %s", e.Endpoint, strings.Join(parts, "; "))
}

// NewReddit validates cfg and fills endpoint defaults. No request is made
// until the first post.
func NewReddit(cfg RedditConfig) (*Reddit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.WebBase == "" {
		cfg.WebBase = DefaultWebBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	cfg.WebBase = strings.TrimRight(cfg.WebBase, "/")
	lim := cfg.Limiter
	if lim == nil {
		lim = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &Reddit{cfg: cfg, limiter: lim}, nil
}

type userAgentTransport struct {
	ua   string
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}

func (r *Reddit) authClient(ctx context.Context) (*http.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	base := http.DefaultTransport
	if r.cfg.HTTPClient != nil && r.cfg.HTTPClient.Transport != nil {
		base = r.cfg.HTTPClient.Transport
	}
	hc := &http.Client{Transport: userAgentTransport{ua: r.cfg.UserAgent, base: base}, Timeout: 30 * time.Second}
	oc := &oauth2.Config{
		ClientID:     r.cfg.ClientID,
		ClientSecret: r.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: r.cfg.TokenURL, AuthStyle: oauth2.AuthStyleInHeader},
	}
	octx := context.WithValue(ctx, oauth2.HTTPClient, hc)
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tok, err := oc.PasswordCredentialsToken(octx, r.cfg.Username, r.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("reddit: login: %w", err)
	}
	// The token source keeps the background context so later refreshes are
	// not tied to the first call's deadline.
	r.client = oc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, hc), tok)
	return r.client, nil
}

type apiResponse struct {
	JSON struct {
		Errors [][]string      `json:"errors"`
		Data   json.RawMessage `json:"data"`
	} `json:"json"`
}

func (r *Reddit) call(ctx context.Context, endpoint string, form url.Values) (json.RawMessage, error) {
	client, err := r.authClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	form.Set("api_type", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.APIBase+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reddit %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("reddit %s: unexpected status: %d", endpoint, resp.StatusCode)
	}
	var ar apiResponse
	if err := json.Unmarshal(b, &ar); err != nil {
		return nil, fmt.Errorf("reddit %s: decode: %w", endpoint, err)
	}
	if len(ar.JSON.Errors) > 0 {
		return nil, &APIError{Endpoint: endpoint, Errors: ar.JSON.Errors}
	}
	return ar.JSON.Data, nil
}

// Submit creates a self post.
func (r *Reddit) Submit(ctx context.Context, t Thread) (Posted, error) {
	if strings.TrimSpace(t.Subreddit) == "" {
		return Posted{}, errors.New("reddit: missing subreddit")
	}
	data, err := r.call(ctx, "/api/submit", url.Values{
		"kind":     {"self"},
		"sr":       {t.Subreddit},
		"title":    {t.Title},
		"text":     {t.Body},
		"resubmit": {"true"},
	})
	if err != nil {
		return Posted{}, err
	}
	var d struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(data, &d); err != nil || d.Name == "" {
		return Posted{}, fmt.Errorf("reddit /api/submit: missing thing name in %s", string(data))
	}
	return Posted{ID: d.Name, URL: d.URL}, nil
}

// Reply adds a comment under parentID.
func (r *Reddit) Reply(ctx context.Context, parentID string, body string) (Posted, error) {
	data, err := r.call(ctx, "/api/comment", url.Values{
		"thing_id": {parentID},
		"text":     {body},
	})
	if err != nil {
		return Posted{}, err
	}
	var d struct {
		Things []struct {
			Data struct {
				Name      string `json:"name"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"things"`
	}
	if err := json.Unmarshal(data, &d); err != nil || len(d.Things) == 0 || d.Things[0].Data.Name == "" {
		return Posted{}, fmt.Errorf("reddit /api/comment: missing comment in %s", string(data))
	}
	c := d.Things[0].Data
	link := c.Permalink
	if strings.HasPrefix(link, "/") {
		link = r.cfg.WebBase + link
	}
	return Posted{ID: c.Name, URL: link}, nil
}

// Edit replaces the text of a thread or comment.
func (r *Reddit) Edit(ctx context.Context, thingID string, body string) error {
	_, err := r.call(ctx, "/api/editusertext", url.Values{
		"thing_id": {thingID},
		"text":     {body},
	})
	return err
}

var (
	_ Poster = (*Reddit)(nil)
	_ Poster = (*DirPoster)(nil)
)
