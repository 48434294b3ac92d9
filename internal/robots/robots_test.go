package robots

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/hyperifyio/patchday/internal/cache"
)

func robotsServer(t *testing.T, hits *int32, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/robots.txt" {
            http.NotFound(w, r)
            return
        }
        atomic.AddInt32(hits, 1)
        handler(w, r)
    }))
    t.Cleanup(srv.Close)
    return srv
}

func TestPolicy_FetchOnce_ThenRevalidateWithETag(t *testing.T) {
    t.Parallel()
    var hits int32
    const etag = "W/\"v1\""
    srv := robotsServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
        if r.Header.Get("If-None-Match") == etag {
            w.WriteHeader(http.StatusNotModified)
            return
        }
        w.Header().Set("Content-Type", "text/plain")
        w.Header().Set("ETag", etag)
        _, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
    })

    ctx := context.Background()
    p := &Policy{HTTPClient: srv.Client(), Cache: &cache.PageCache{Dir: t.TempDir()}, UserAgent: "patchday-test/1.0", TTL: time.Hour}
    if err := p.Check(ctx, srv.URL+"/patches/7.36"); err != nil {
        t.Fatalf("patch page should be allowed: %v", err)
    }
    if err := p.Check(ctx, srv.URL+"/private/x"); !errors.Is(err, ErrDisallowed) {
        t.Fatalf("expected ErrDisallowed, got %v", err)
    }
    if n := atomic.LoadInt32(&hits); n != 1 {
        t.Fatalf("expected 1 server hit, got %d", n)
    }

    // Expire the memory entry; the server answers 304 and the cached body is reused
    p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
    if err := p.Check(ctx, srv.URL+"/private/y"); !errors.Is(err, ErrDisallowed) {
        t.Fatalf("expected cached rules after 304, got %v", err)
    }
    if n := atomic.LoadInt32(&hits); n != 2 {
        t.Fatalf("expected 2 server hits (200 then 304), got %d", n)
    }
}

func TestPolicy_MissingRobotsAllows(t *testing.T) {
    t.Parallel()
    var hits int32
    srv := robotsServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
        http.NotFound(w, r)
    })
    p := &Policy{HTTPClient: srv.Client(), TTL: time.Minute}
    for i := 0; i < 3; i++ {
        if err := p.Check(context.Background(), srv.URL+"/anything"); err != nil {
            t.Fatalf("404 robots should allow: %v", err)
        }
    }
    if n := atomic.LoadInt32(&hits); n != 1 {
        t.Fatalf("negative result should be remembered, got %d hits", n)
    }
}

func TestPolicy_ServerErrorDisallows(t *testing.T) {
    t.Parallel()
    var hits int32
    srv := robotsServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusServiceUnavailable)
    })
    p := &Policy{HTTPClient: srv.Client()}
    err := p.Check(context.Background(), srv.URL+"/patches/7.36")
    if err == nil || errors.Is(err, ErrDisallowed) {
        t.Fatalf("expected a robots fetch error, got %v", err)
    }
    if err := p.Check(context.Background(), "ftp://example.test/x"); err == nil {
        t.Fatalf("expected error for non-http scheme")
    }
}

func TestAllowed_AgentPrecedenceAndSpecificity(t *testing.T) {
    rules := Parse(`User-agent: *
Disallow: /

# ours
User-agent: patchday
Disallow: /private
Allow: /private/public
`)
    cases := []struct {
        ua, path string
        want     bool
    }{
        {"patchday/1.0", "/patches/7.36", true},
        {"patchday/1.0", "/private/page", false},
        {"patchday/1.0", "/private/public/info", true},
        {"otherbot", "/patches/7.36", false},
    }
    for _, tc := range cases {
        if got := rules.Allowed(tc.ua, tc.path); got != tc.want {
            t.Fatalf("Allowed(%q, %q) = %v, want %v", tc.ua, tc.path, got, tc.want)
        }
    }
}

func TestAllowed_WildcardsAndAnchors(t *testing.T) {
    rules := Parse("User-agent: *\nDisallow: /*.zip$\nDisallow: /tmp*\nAllow: /downloads/*.zip$\n")
    cases := []struct {
        path string
        want bool
    }{
        {"/foo/file.zip", false},
        {"/downloads/file.zip", true},
        {"/foo/file.zip?x=1", true},
        {"/tmpfiles", false},
        {"/patches", true},
    }
    for _, tc := range cases {
        if got := rules.Allowed("any", tc.path); got != tc.want {
            t.Fatalf("Allowed(%q) = %v, want %v", tc.path, got, tc.want)
        }
    }
    if !(Rules{}).Allowed("any", "/x") {
        t.Fatalf("empty rules should allow")
    }
}
