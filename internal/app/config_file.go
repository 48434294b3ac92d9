package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"

    "github.com/hyperifyio/patchday/internal/extract"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
    Version string `yaml:"version" json:"version"`
    URL     string `yaml:"url" json:"url"`
    Input   string `yaml:"input" json:"input"`
    Render  bool   `yaml:"render" json:"render"`
    Chrome  string `yaml:"chrome" json:"chrome"`
    UA      string `yaml:"ua" json:"ua"`

    IgnoreRobots bool `yaml:"ignoreRobots" json:"ignoreRobots"`

    Extract struct {
        Classes map[string]string `yaml:"classes" json:"classes"`
        Marker  string            `yaml:"marker" json:"marker"`
    } `yaml:"extract" json:"extract"`

    LinkPrefix string `yaml:"linkPrefix" json:"linkPrefix"`
    Roster     string `yaml:"roster" json:"roster"`

    Output struct {
        Dir     string `yaml:"dir" json:"dir"`
        JSON    string `yaml:"json" json:"json"`
        Preview string `yaml:"preview" json:"preview"`
        PDF     string `yaml:"pdf" json:"pdf"`
    } `yaml:"output" json:"output"`

    Reddit struct {
        Subreddit    string        `yaml:"subreddit" json:"subreddit"`
        ClientID     string        `yaml:"clientID" json:"clientID"`
        ClientSecret string        `yaml:"clientSecret" json:"clientSecret"`
        Username     string        `yaml:"username" json:"username"`
        Password     string        `yaml:"password" json:"password"`
        UserAgent    string        `yaml:"userAgent" json:"userAgent"`
        Interval     time.Duration `yaml:"interval" json:"interval"`
    } `yaml:"reddit" json:"reddit"`

    DryRun  bool `yaml:"dryRun" json:"dryRun"`
    Verbose bool `yaml:"verbose" json:"verbose"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
    } `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// Flag defaults that a config file may replace.
const (
    outputDirDefault = "out"
    cacheDirDefault  = ".patchday-cache"
    subredditDefault = "DotA2"
)

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if cfg.Version == "" && fc.Version != "" { cfg.Version = fc.Version }
    if cfg.URL == "" && fc.URL != "" { cfg.URL = fc.URL }
    if cfg.InputPath == "" && fc.Input != "" { cfg.InputPath = fc.Input }
    if !cfg.Render && fc.Render { cfg.Render = true }
    if cfg.ChromeURL == "" && fc.Chrome != "" { cfg.ChromeURL = fc.Chrome }
    if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.UA != "" { cfg.UserAgent = fc.UA }
    if !cfg.IgnoreRobots && fc.IgnoreRobots { cfg.IgnoreRobots = true }

    if len(fc.Extract.Classes) > 0 {
        merged := make(map[string]string, len(fc.Extract.Classes)+len(cfg.Classes))
        for k, v := range fc.Extract.Classes { merged[k] = v }
        // flag overrides win per key
        for k, v := range cfg.Classes { merged[k] = v }
        cfg.Classes = merged
    }
    if cfg.Marker == "" && fc.Extract.Marker != "" { cfg.Marker = fc.Extract.Marker }
    if cfg.LinkPrefix == "" && fc.LinkPrefix != "" { cfg.LinkPrefix = fc.LinkPrefix }
    if cfg.RosterPath == "" && fc.Roster != "" { cfg.RosterPath = fc.Roster }

    if (cfg.OutputDir == "" || cfg.OutputDir == outputDirDefault) && fc.Output.Dir != "" { cfg.OutputDir = fc.Output.Dir }
    if cfg.JSONPath == "" && fc.Output.JSON != "" { cfg.JSONPath = fc.Output.JSON }
    if cfg.PreviewPath == "" && fc.Output.Preview != "" { cfg.PreviewPath = fc.Output.Preview }
    if cfg.PDFPath == "" && fc.Output.PDF != "" { cfg.PDFPath = fc.Output.PDF }

    if (cfg.Subreddit == "" || cfg.Subreddit == subredditDefault) && fc.Reddit.Subreddit != "" { cfg.Subreddit = fc.Reddit.Subreddit }
    if cfg.RedditClientID == "" && fc.Reddit.ClientID != "" { cfg.RedditClientID = fc.Reddit.ClientID }
    if cfg.RedditClientSecret == "" && fc.Reddit.ClientSecret != "" { cfg.RedditClientSecret = fc.Reddit.ClientSecret }
    if cfg.RedditUsername == "" && fc.Reddit.Username != "" { cfg.RedditUsername = fc.Reddit.Username }
    if cfg.RedditPassword == "" && fc.Reddit.Password != "" { cfg.RedditPassword = fc.Reddit.Password }
    if cfg.RedditUserAgent == "" && fc.Reddit.UserAgent != "" { cfg.RedditUserAgent = fc.Reddit.UserAgent }
    if cfg.PostInterval == 0 && fc.Reddit.Interval > 0 { cfg.PostInterval = fc.Reddit.Interval }

    if !cfg.DryRun && fc.DryRun { cfg.DryRun = true }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }

    if (cfg.CacheDir == "" || cfg.CacheDir == cacheDirDefault) && fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
    if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if !cfg.CacheClear && fc.Cache.Clear { cfg.CacheClear = true }
    if !cfg.CacheStrictPerms && fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }
}

// ValidateConfig performs minimal schema validation for required settings.
// In dry-run, Reddit credentials may be omitted.
func ValidateConfig(cfg Config) error {
    if trim(cfg.InputPath) == "" && trim(cfg.URL) == "" && trim(cfg.Version) == "" {
        return errors.New("config: a patch version, url or input file is required")
    }
    if trim(cfg.Version) == "" && !cfg.DryRun {
        return errors.New("config: version is required to title the thread (or set PATCH_VERSION)")
    }
    if _, err := extract.DefaultClasses.WithOverrides(cfg.Classes); err != nil {
        return fmt.Errorf("config: %w", err)
    }
    if cfg.CacheMaxAge < 0 || cfg.PostInterval < 0 {
        return errors.New("config: negative durations are not allowed")
    }
    if !cfg.DryRun {
        if trim(cfg.Subreddit) == "" {
            return errors.New("config: reddit.subreddit is required (or set SUBREDDIT)")
        }
        for _, f := range []struct{ name, v string }{
            {"reddit.clientID", cfg.RedditClientID},
            {"reddit.clientSecret", cfg.RedditClientSecret},
            {"reddit.username", cfg.RedditUsername},
            {"reddit.password", cfg.RedditPassword},
        } {
            if trim(f.v) == "" {
                return fmt.Errorf("config: %s is required unless -dry-run", f.name)
            }
        }
    }
    return nil
}

func trim(s string) string { return strings.TrimSpace(s) }
