// Package robots decides whether a page may be fetched according to the
// site's robots.txt.
package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/patchday/internal/cache"
)

// ErrDisallowed is returned by Check when robots.txt forbids the page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

type rule struct {
	allow bool
	re    *regexp.Regexp
	score int
}

type group struct {
	agents []string
	rules  []rule
}

// Rules is a parsed robots.txt.
type Rules struct {
	groups []group
}

// Policy fetches robots.txt once per host and answers Check for pages on it.
// A missing robots.txt (any 4xx) allows everything; a 5xx or network error
// disallows until the entry expires.
type Policy struct {
	HTTPClient *http.Client
	Cache      *cache.PageCache
	UserAgent  string
	// TTL bounds how long rules are reused in memory. Zero means 30m.
	TTL time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  Rules
	err    error
	expiry time.Time
}

// Check returns nil when pageURL may be fetched, ErrDisallowed when the
// rules forbid it, or the error that prevented reading robots.txt.
func (p *Policy) Check(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return fmt.Errorf("unsupported url scheme: %q", pageURL)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	rules, err := p.rules(ctx, robotsURL)
	if err != nil {
		return fmt.Errorf("robots.txt %s: %w", u.Host, err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !rules.Allowed(p.UserAgent, path) {
		return fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
	}
	return nil
}

func (p *Policy) rules(ctx context.Context, robotsURL string) (Rules, error) {
	p.mu.Lock()
	if p.now == nil {
		p.now = time.Now
	}
	if p.mem == nil {
		p.mem = make(map[string]memEntry)
	}
	if ent, ok := p.mem[robotsURL]; ok && p.now().Before(ent.expiry) {
		p.mu.Unlock()
		return ent.rules, ent.err
	}
	p.mu.Unlock()

	rules, err := p.fetch(ctx, robotsURL)
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	p.mu.Lock()
	p.mem[robotsURL] = memEntry{rules: rules, err: err, expiry: p.now().Add(ttl)}
	p.mu.Unlock()
	return rules, err
}

func (p *Policy) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	var etag, lastMod string
	if p.Cache != nil {
		if meta, err := p.Cache.LoadMeta(ctx, robotsURL, false); err == nil {
			etag, lastMod = meta.ETag, meta.LastModified
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, fmt.Errorf("new request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && p.Cache != nil:
		body, err := p.Cache.LoadBody(ctx, robotsURL, false)
		if err != nil {
			return Rules{}, fmt.Errorf("load cached robots: %w", err)
		}
		return Parse(string(body)), nil
	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		return Rules{}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Rules{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return Rules{}, fmt.Errorf("read robots: %w", err)
	}
	if p.Cache != nil {
		_ = p.Cache.Save(ctx, cache.Entry{URL: robotsURL, ContentType: "text/plain", ETag: resp.Header.Get("ETag"), LastModified: resp.Header.Get("Last-Modified")}, data)
	}
	return Parse(string(data)), nil
}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var groups []group
	var current group
	flush := func() {
		if len(current.agents) > 0 {
			groups = append(groups, current)
		}
		current = group{}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent", "useragent":
			if len(current.rules) > 0 {
				flush()
			}
			current.agents = append(current.agents, strings.ToLower(val))
		case "allow", "disallow":
			if val == "" {
				continue
			}
			current.rules = append(current.rules, rule{allow: key == "allow", re: compilePattern(val), score: specificity(val)})
		}
	}
	flush()
	return Rules{groups: groups}
}

// Allowed reports whether path (with optional query) may be fetched by
// userAgent. The most specific matching group applies; within it the longest
// matching pattern wins and Allow wins ties. No match means allowed.
func (r Rules) Allowed(userAgent, path string) bool {
	g := r.selectGroup(userAgent)
	if g == nil {
		return true
	}
	best, allow := -1, true
	for _, ru := range g.rules {
		if !ru.re.MatchString(path) {
			continue
		}
		if ru.score > best || (ru.score == best && ru.allow) {
			best, allow = ru.score, ru.allow
		}
	}
	return allow
}

// selectGroup prefers the longest agent token contained in userAgent over
// the "*" group. Ties keep the first group.
func (r Rules) selectGroup(userAgent string) *group {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	var best *group
	bestScore := -1
	for i := range r.groups {
		for _, a := range r.groups[i].agents {
			score := -1
			switch {
			case a == "*":
				score = 0
			case a != "" && strings.Contains(ua, a):
				score = len(a)
			}
			if score > bestScore {
				bestScore, best = score, &r.groups[i]
			}
		}
	}
	return best
}

// compilePattern supports '*' for any run of characters and a trailing '$'
// anchoring the end. Patterns are anchored at the start of the path.
func compilePattern(pattern string) *regexp.Regexp {
	anchorEnd := strings.HasSuffix(pattern, "$")
	parts := strings.Split(strings.TrimSuffix(pattern, "$"), "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchorEnd {
		expr += "$"
	}
	return regexp.MustCompile(expr)
}

func specificity(pattern string) int {
	return len(strings.ReplaceAll(strings.TrimSuffix(pattern, "$"), "*", ""))
}
