package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/patchday/internal/app"
)

// classFlag collects repeated -class category=prefix overrides.
type classFlag map[string]string

func (c classFlag) String() string {
	parts := make([]string, 0, len(c))
	for k, v := range c {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (c classFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
		return fmt.Errorf("want category=prefix, got %q", s)
	}
	c[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath  string
		envFiles    string
		showVersion bool
		flagCfg     app.Config
		classes     = classFlag{}
	)

	flag.StringVar(&configPath, "config", os.Getenv("PATCHDAY_CONFIG"), "Path to YAML or JSON config file")
	flag.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load before reading the environment")
	flag.BoolVar(&showVersion, "version", false, "Print build information and exit")

	flag.StringVar(&flagCfg.Version, "patch", "", "Patch version, e.g. 7.36 (env PATCH_VERSION)")
	flag.StringVar(&flagCfg.URL, "url", "", "Patch notes URL; defaults to the official page for -patch")
	flag.StringVar(&flagCfg.InputPath, "input", "", "Read the patch page from a local HTML file instead of fetching")
	flag.BoolVar(&flagCfg.Render, "render", false, "Render the page in headless Chrome before extracting")
	flag.StringVar(&flagCfg.ChromeURL, "chrome", "", "DevTools WebSocket URL of a running Chrome (default: launch one)")
	flag.StringVar(&flagCfg.UserAgent, "ua", app.DefaultUserAgent, "User-Agent for page fetches")
	flag.BoolVar(&flagCfg.IgnoreRobots, "robots.ignore", false, "Fetch even when robots.txt disallows the patch page")
	flag.Var(classes, "class", "Override a class prefix as category=prefix (repeatable), e.g. entity=PatchNoteHero")
	flag.StringVar(&flagCfg.Marker, "marker", "", "Section heading text that precedes the hero list")
	flag.StringVar(&flagCfg.LinkPrefix, "link-prefix", "", "Image link family for hero icons (default hero)")
	flag.StringVar(&flagCfg.RosterPath, "roster", "", "Hero roster file, one name per line (default: built-in list)")
	flag.StringVar(&flagCfg.OutputDir, "out", "out", "Directory for the dry-run thread and comment files")
	flag.StringVar(&flagCfg.JSONPath, "json", "", "Write extracted records as JSON to this path")
	flag.StringVar(&flagCfg.PreviewPath, "preview", "", "Write a Markdown preview of the whole thread to this path")
	flag.StringVar(&flagCfg.PDFPath, "pdf", "", "Write a PDF preview of the whole thread to this path")
	flag.StringVar(&flagCfg.Subreddit, "subreddit", "DotA2", "Subreddit to post the discussion thread in")
	flag.DurationVar(&flagCfg.PostInterval, "post.interval", 0, "Minimum delay between Reddit API calls (default 1s)")
	flag.BoolVar(&flagCfg.DryRun, "dry-run", false, "Write the thread to -out instead of posting")
	flag.BoolVar(&flagCfg.Verbose, "v", false, "Verbose logging")
	flag.StringVar(&flagCfg.CacheDir, "cache.dir", ".patchday-cache", "Cache directory path")
	flag.DurationVar(&flagCfg.CacheMaxAge, "cache.maxAge", 0, "Serve cached pages younger than this and purge older ones (e.g. 1h); 0 always revalidates")
	flag.BoolVar(&flagCfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&flagCfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.Parse()

	if showVersion {
		fmt.Printf("patchday %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}
	if len(classes) > 0 {
		flagCfg.Classes = classes
	}

	var envPaths []string
	for _, p := range strings.Split(envFiles, ",") {
		if s := strings.TrimSpace(p); s != "" {
			envPaths = append(envPaths, s)
		}
	}
	if err := app.LoadEnvFiles(envPaths...); err != nil {
		log.Error().Err(err).Msg("load env files")
		os.Exit(2)
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg, err := buildConfig(flagCfg, configPath, explicit)
	if err != nil {
		log.Error().Err(err).Msg("config")
		os.Exit(2)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid config")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(1)
	}
}

// buildConfig layers the sources: flags set on the command line win over
// the environment, which wins over the config file, which wins over flag
// defaults.
func buildConfig(flagCfg app.Config, configPath string, explicit map[string]bool) (app.Config, error) {
	cfg := flagCfg
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	applyExplicitFlags(&cfg, flagCfg, explicit)
	return cfg, nil
}

func applyExplicitFlags(cfg *app.Config, f app.Config, explicit map[string]bool) {
	for name := range explicit {
		switch name {
		case "patch":
			cfg.Version = f.Version
		case "url":
			cfg.URL = f.URL
		case "input":
			cfg.InputPath = f.InputPath
		case "render":
			cfg.Render = f.Render
		case "chrome":
			cfg.ChromeURL = f.ChromeURL
		case "ua":
			cfg.UserAgent = f.UserAgent
		case "robots.ignore":
			cfg.IgnoreRobots = f.IgnoreRobots
		case "marker":
			cfg.Marker = f.Marker
		case "link-prefix":
			cfg.LinkPrefix = f.LinkPrefix
		case "roster":
			cfg.RosterPath = f.RosterPath
		case "out":
			cfg.OutputDir = f.OutputDir
		case "json":
			cfg.JSONPath = f.JSONPath
		case "preview":
			cfg.PreviewPath = f.PreviewPath
		case "pdf":
			cfg.PDFPath = f.PDFPath
		case "subreddit":
			cfg.Subreddit = f.Subreddit
		case "post.interval":
			cfg.PostInterval = f.PostInterval
		case "dry-run":
			cfg.DryRun = f.DryRun
		case "v":
			cfg.Verbose = f.Verbose
		case "cache.dir":
			cfg.CacheDir = f.CacheDir
		case "cache.maxAge":
			cfg.CacheMaxAge = f.CacheMaxAge
		case "cache.clear":
			cfg.CacheClear = f.CacheClear
		case "cache.strictPerms":
			cfg.CacheStrictPerms = f.CacheStrictPerms
		}
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := a.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	return nil
}
