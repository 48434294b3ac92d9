package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hyperifyio/patchday/internal/cache"
	"github.com/hyperifyio/patchday/internal/robots"
)

// Renderer loads a page in headless Chrome and returns the serialized DOM
// after scripts have run. The patch site builds its notes client side, so
// the raw HTTP body can lack the hero section entirely.
type Renderer struct {
	// RemoteURL is the DevTools WebSocket of an existing Chrome. Empty
	// launches a local headless instance.
	RemoteURL string
	// Timeout bounds navigation plus settling. Zero means 60s.
	Timeout time.Duration
	// Settle is how long the DOM must stay unchanged before it is captured.
	// Zero means 1s.
	Settle time.Duration

	Cache  *cache.PageCache
	MaxAge time.Duration
	Robots *robots.Policy
}

// ownsBrowser reports whether Render launches, and therefore shuts down,
// its own Chrome.
func (r *Renderer) ownsBrowser() bool {
	return strings.TrimSpace(r.RemoteURL) == ""
}

// Render returns the outer HTML of url's document element.
func (r *Renderer) Render(ctx context.Context, url string) ([]byte, error) {
	if r.Cache != nil {
		if body, ok := r.Cache.Fresh(ctx, url, true, r.MaxAge); ok {
			return body, nil
		}
	}
	if r.Robots != nil {
		if err := r.Robots.Check(ctx, url); err != nil {
			return nil, err
		}
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	settle := r.Settle
	if settle <= 0 {
		settle = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wsURL := strings.TrimSpace(r.RemoteURL)
	if r.ownsBrowser() {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("render: launch: %w", err)
		}
		wsURL = u
		defer l.Cleanup()
	}
	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("render: connect: %w", err)
	}
	// A remote Chrome belongs to the user; only our tab is closed there.
	if r.ownsBrowser() {
		defer b.Close()
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("render: create tab: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("render: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("render: wait load %s: %w", url, err)
	}
	if err := page.WaitDOMStable(settle, 0); err != nil {
		return nil, fmt.Errorf("render: wait stable %s: %w", url, err)
	}
	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("render: get DOM: %w", err)
	}
	body := []byte(res.Value.Str())
	if r.Cache != nil {
		_ = r.Cache.Save(ctx, cache.Entry{URL: url, ContentType: "text/html", Rendered: true}, body)
	}
	return body, nil
}
