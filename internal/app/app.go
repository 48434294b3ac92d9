package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/patchday/internal/cache"
	"github.com/hyperifyio/patchday/internal/dom"
	"github.com/hyperifyio/patchday/internal/extract"
	"github.com/hyperifyio/patchday/internal/fetch"
	"github.com/hyperifyio/patchday/internal/patch"
	"github.com/hyperifyio/patchday/internal/post"
	"github.com/hyperifyio/patchday/internal/render"
	"github.com/hyperifyio/patchday/internal/robots"
	"github.com/hyperifyio/patchday/internal/roster"
)

type App struct {
	cfg      Config
	engine   *extract.Engine
	renderer render.Renderer
	roster   *roster.Set
	fetcher  *fetch.Client
	browser  *fetch.Renderer
	poster   post.Poster
}

func New(ctx context.Context, cfg Config) (*App, error) {
	classes, err := extract.DefaultClasses.WithOverrides(cfg.Classes)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:      cfg,
		engine:   extract.New(classes, cfg.Marker),
		renderer: render.Renderer{LinkPrefix: cfg.LinkPrefix},
	}

	if strings.TrimSpace(cfg.RosterPath) != "" {
		r, err := roster.Load(cfg.RosterPath)
		if err != nil {
			return nil, err
		}
		a.roster = r
	} else {
		a.roster = roster.Default()
	}

	var pages *cache.PageCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if n, err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			} else {
				log.Debug().Int("removed", n).Msg("cleared page cache")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale pages")
			}
		}
		pages = &cache.PageCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	var gate *robots.Policy
	if !cfg.IgnoreRobots {
		gate = &robots.Policy{HTTPClient: newPageHTTPClient(), Cache: pages, UserAgent: ua}
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        newPageHTTPClient(),
		UserAgent:         ua,
		MaxAttempts:       3,
		PerRequestTimeout: 30 * time.Second,
		Cache:             pages,
		MaxAge:            cfg.CacheMaxAge,
		Robots:            gate,
	}
	if cfg.Render {
		a.browser = &fetch.Renderer{RemoteURL: cfg.ChromeURL, Cache: pages, MaxAge: cfg.CacheMaxAge, Robots: gate}
	}

	if cfg.DryRun {
		dir := cfg.OutputDir
		if dir == "" {
			dir = outputDirDefault
		}
		a.poster = &post.DirPoster{Dir: dir}
	} else {
		var lim *rate.Limiter
		if cfg.PostInterval > 0 {
			lim = rate.NewLimiter(rate.Every(cfg.PostInterval), 1)
		}
		redditUA := cfg.RedditUserAgent
		if strings.TrimSpace(redditUA) == "" {
			redditUA = fmt.Sprintf("patchday/%s by u/%s", userAgentVersion(), cfg.RedditUsername)
		}
		rp, err := post.NewReddit(post.RedditConfig{
			ClientID:     cfg.RedditClientID,
			ClientSecret: cfg.RedditClientSecret,
			Username:     cfg.RedditUsername,
			Password:     cfg.RedditPassword,
			UserAgent:    redditUA,
			Limiter:      lim,
			HTTPClient:   newPageHTTPClient(),
		})
		if err != nil {
			return nil, err
		}
		a.poster = rp
	}
	return a, nil
}

// Run fetches the patch page, extracts per-hero changes and publishes the
// discussion thread. Everything up to the first post is validated before
// anything is published.
func (a *App) Run(ctx context.Context) error {
	src, err := a.load(ctx)
	if err != nil {
		return err
	}
	root, err := dom.Parse(src)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	res, err := a.engine.Run(root)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	log.Info().Str("locator", res.Locator).Int("located", res.Located).Int("heroes", len(res.Records)).Msg("extracted hero changes")

	for _, name := range patch.Names(res.Records) {
		if !a.roster.Contains(name) {
			log.Warn().Str("hero", name).Msg("hero not in roster")
		}
	}
	unmodified := a.roster.Unmodified(patch.Names(res.Records))

	comments := make([]string, len(res.Records))
	for i, rec := range res.Records {
		comments[i] = a.renderer.Comment(rec)
	}
	title := render.ThreadTitle(a.threadVersion())

	if a.cfg.JSONPath != "" {
		b, err := json.MarshalIndent(res.Records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode records: %w", err)
		}
		if err := writeFile(a.cfg.JSONPath, append(b, '\n')); err != nil {
			return err
		}
		log.Info().Str("path", a.cfg.JSONPath).Msg("wrote records")
	}
	if a.cfg.PreviewPath != "" || a.cfg.PDFPath != "" {
		links := make([]render.Link, len(res.Records))
		for i, rec := range res.Records {
			links[i] = render.Link{Name: rec.Name, Changes: rec.ChangeCount()}
		}
		md := render.Preview(title, a.renderer.ThreadBody(links, unmodified), comments)
		if a.cfg.PreviewPath != "" {
			if err := writeFile(a.cfg.PreviewPath, []byte(md)); err != nil {
				return err
			}
			log.Info().Str("path", a.cfg.PreviewPath).Msg("wrote preview")
		}
		if a.cfg.PDFPath != "" {
			if err := ensureParent(a.cfg.PDFPath); err != nil {
				return err
			}
			if err := render.WritePDF(md, a.cfg.PDFPath); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}
			log.Info().Str("path", a.cfg.PDFPath).Msg("wrote pdf")
		}
	}

	return a.publish(ctx, title, res.Records, comments, unmodified)
}

func (a *App) publish(ctx context.Context, title string, records []patch.ChangeRecord, comments []string, unmodified []string) error {
	thread, err := a.poster.Submit(ctx, post.Thread{
		Subreddit: a.cfg.Subreddit,
		Title:     title,
		Body:      a.renderer.ThreadBody(nil, unmodified),
	})
	if err != nil {
		return fmt.Errorf("submit thread: %w", err)
	}
	log.Info().Str("id", thread.ID).Str("url", thread.URL).Msg("thread submitted")

	var errs []error
	links := make([]render.Link, 0, len(records))
	for i, rec := range records {
		c, err := a.poster.Reply(ctx, thread.ID, comments[i])
		if err != nil {
			log.Error().Err(err).Str("hero", rec.Name).Msg("comment failed")
			errs = append(errs, fmt.Errorf("comment %s: %w", rec.Name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Debug().Str("hero", rec.Name).Str("url", c.URL).Msg("comment posted")
		links = append(links, render.Link{Name: rec.Name, Changes: rec.ChangeCount(), URL: c.URL})
	}
	if len(links) > 0 {
		if err := a.poster.Edit(ctx, thread.ID, a.renderer.ThreadBody(links, unmodified)); err != nil {
			errs = append(errs, fmt.Errorf("edit thread: %w", err))
		}
	}
	log.Info().Int("comments", len(links)).Int("failed", len(records)-len(links)).Msg("thread complete")
	return errors.Join(errs...)
}

func (a *App) load(ctx context.Context) ([]byte, error) {
	if in := strings.TrimSpace(a.cfg.InputPath); in != "" {
		b, err := os.ReadFile(in)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		log.Debug().Str("path", in).Int("bytes", len(b)).Msg("loaded page from file")
		return b, nil
	}
	url := a.cfg.PageURL()
	if a.browser != nil {
		b, err := a.browser.Render(ctx, url)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("url", url).Int("bytes", len(b)).Msg("rendered page")
		return b, nil
	}
	b, ct, err := a.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	log.Debug().Str("url", url).Str("content_type", ct).Int("bytes", len(b)).Msg("fetched page")
	return b, nil
}

// threadVersion is the configured version, else the last segment of the
// page URL or the input file name.
func (a *App) threadVersion() string {
	if v := strings.TrimSpace(a.cfg.Version); v != "" {
		return v
	}
	if in := strings.TrimSpace(a.cfg.InputPath); in != "" {
		base := filepath.Base(in)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return path.Base(strings.TrimRight(a.cfg.PageURL(), "/"))
}

func ensureParent(p string) error {
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

func writeFile(p string, b []byte) error {
	if err := ensureParent(p); err != nil {
		return err
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
