package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/time/rate"
)

func TestDirPoster_SubmitReplyEdit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p := &DirPoster{Dir: dir}
	ctx := context.Background()
	th, err := p.Submit(ctx, Thread{Title: "Patch 7.36 - Hero Changes Discussion", Body: "intro"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	c1, err := p.Reply(ctx, th.ID, "# Axe")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	c2, err := p.Reply(ctx, th.ID, "# Lina")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if filepath.Base(c1.URL) != "comment-001.md" || filepath.Base(c2.URL) != "comment-002.md" {
		t.Fatalf("unexpected comment files: %s %s", c1.URL, c2.URL)
	}
	if err := p.Edit(ctx, th.ID, "intro\n\n| table |"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "thread.md"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "# Patch 7.36 - Hero Changes Discussion\n\nintro\n\n| table |\n" {
		t.Fatalf("thread.md = %q", got)
	}
	if _, err := p.Reply(ctx, "t3_nope", "x"); err == nil {
		t.Fatalf("expected error for unknown parent")
	}
	if err := p.Edit(ctx, "comment-009", "x"); err == nil {
		t.Fatalf("expected error for unknown thing")
	}
}

func TestDirPoster_RequiresDir(t *testing.T) {
	if _, err := (&DirPoster{}).Submit(context.Background(), Thread{}); err == nil {
		t.Fatalf("expected error without dir")
	}
}

func TestRedditConfig_Validate(t *testing.T) {
	cfg := RedditConfig{ClientID: "id", ClientSecret: "s", Username: "u", Password: "p"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "user agent") {
		t.Fatalf("expected missing user agent, got %v", err)
	}
	if _, err := NewReddit(cfg); err == nil {
		t.Fatalf("NewReddit should validate")
	}
}

type fakeReddit struct {
	mu       sync.Mutex
	logins   int
	calls    []string
	forms    []map[string]string
	agents   []string
	failWith string
}

func (f *fakeReddit) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "csecret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "password" || r.Form.Get("username") != "bot" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.logins++
		f.agents = append(f.agents, r.UserAgent())
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	api := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.calls = append(f.calls, r.URL.Path)
		f.forms = append(f.forms, form)
		f.agents = append(f.agents, r.UserAgent())
		fail := f.failWith
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if fail != "" {
			_, _ = w.Write([]byte(`{"json":{"errors":[["` + fail + `","slow down","ratelimit"]]}}`))
			return
		}
		switch r.URL.Path {
		case "/api/submit":
			_, _ = w.Write([]byte(`{"json":{"errors":[],"data":{"url":"https://www.reddit.com/r/test/comments/abc/patch/","id":"abc","name":"t3_abc"}}}`))
		case "/api/comment":
			_ = json.NewEncoder(w).Encode(map[string]any{"json": map[string]any{"errors": []any{}, "data": map[string]any{
				"things": []any{map[string]any{"kind": "t1", "data": map[string]any{"name": "t1_c" + form["thing_id"], "permalink": "/r/test/comments/abc/patch/c1/"}}},
			}}})
		case "/api/editusertext":
			_, _ = w.Write([]byte(`{"json":{"errors":[],"data":{}}}`))
		}
	}
	mux.HandleFunc("/api/submit", api)
	mux.HandleFunc("/api/comment", api)
	mux.HandleFunc("/api/editusertext", api)
	return mux
}

func newTestReddit(t *testing.T, f *fakeReddit) *Reddit {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	r, err := NewReddit(RedditConfig{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Username:     "bot",
		Password:     "pw",
		UserAgent:    "patchday-test/1.0",
		TokenURL:     srv.URL + "/api/v1/access_token",
		APIBase:      srv.URL,
		WebBase:      "https://www.reddit.com",
		Limiter:      rate.NewLimiter(rate.Inf, 1),
	})
	if err != nil {
		t.Fatalf("NewReddit: %v", err)
	}
	return r
}

func TestReddit_SubmitReplyEdit(t *testing.T) {
	f := &fakeReddit{}
	r := newTestReddit(t, f)
	ctx := context.Background()

	th, err := r.Submit(ctx, Thread{Subreddit: "test", Title: "Patch 7.36 - Hero Changes Discussion", Body: "intro"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if th.ID != "t3_abc" || !strings.HasSuffix(th.URL, "/comments/abc/patch/") {
		t.Fatalf("unexpected thread: %+v", th)
	}
	c, err := r.Reply(ctx, th.ID, "# Axe")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if c.ID != "t1_ct3_abc" || c.URL != "https://www.reddit.com/r/test/comments/abc/patch/c1/" {
		t.Fatalf("unexpected comment: %+v", c)
	}
	if err := r.Edit(ctx, th.ID, "intro + table"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logins != 1 {
		t.Fatalf("expected a single login, got %d", f.logins)
	}
	if strings.Join(f.calls, ",") != "/api/submit,/api/comment,/api/editusertext" {
		t.Fatalf("unexpected calls: %v", f.calls)
	}
	sub := f.forms[0]
	if sub["kind"] != "self" || sub["sr"] != "test" || sub["text"] != "intro" || sub["api_type"] != "json" {
		t.Fatalf("unexpected submit form: %v", sub)
	}
	if f.forms[2]["thing_id"] != "t3_abc" || f.forms[2]["text"] != "intro + table" {
		t.Fatalf("unexpected edit form: %v", f.forms[2])
	}
	for _, ua := range f.agents {
		if ua != "patchday-test/1.0" {
			t.Fatalf("expected custom user agent, got %q", ua)
		}
	}
}

func TestReddit_APIErrors(t *testing.T) {
	f := &fakeReddit{failWith: "RATELIMIT"}
	r := newTestReddit(t, f)
	_, err := r.Submit(context.Background(), Thread{Subreddit: "test", Title: "x", Body: "y"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Error(), "RATELIMIT") {
		t.Fatalf("unexpected message: %v", apiErr)
	}
	if _, err := r.Submit(context.Background(), Thread{Title: "x"}); err == nil {
		t.Fatalf("expected error for missing subreddit")
	}
}

func TestReddit_LoginFailure(t *testing.T) {
	f := &fakeReddit{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()
	r, err := NewReddit(RedditConfig{
		ClientID: "cid", ClientSecret: "wrong", Username: "bot", Password: "pw", UserAgent: "ua",
		TokenURL: srv.URL + "/api/v1/access_token", APIBase: srv.URL, Limiter: rate.NewLimiter(rate.Inf, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Submit(context.Background(), Thread{Subreddit: "test", Title: "x"}); err == nil || !strings.Contains(err.Error(), "login") {
		t.Fatalf("expected login error, got %v", err)
	}
}
