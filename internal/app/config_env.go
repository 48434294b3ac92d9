package app

import (
    "os"
    "strings"
    "time"
)

// ApplyEnvOverrides replaces cfg fields with the environment variables that
// are set, over both file values and flag defaults. Callers re-apply flags
// given on the command line afterwards.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    if v := os.Getenv("PATCH_VERSION"); v != "" { cfg.Version = v }
    if v := os.Getenv("PATCH_URL"); v != "" { cfg.URL = v }
    if v := os.Getenv("PATCH_INPUT"); v != "" { cfg.InputPath = v }
    if v := os.Getenv("ROSTER_FILE"); v != "" { cfg.RosterPath = v }
    if v := os.Getenv("CACHE_DIR"); v != "" { cfg.CacheDir = v }
    if v := os.Getenv("SUBREDDIT"); v != "" { cfg.Subreddit = v }
    if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" { cfg.RedditClientID = v }
    if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" { cfg.RedditClientSecret = v }
    if v := os.Getenv("REDDIT_USERNAME"); v != "" { cfg.RedditUsername = v }
    if v := os.Getenv("REDDIT_PASSWORD"); v != "" { cfg.RedditPassword = v }
    if v := os.Getenv("REDDIT_USER_AGENT"); v != "" { cfg.RedditUserAgent = v }

    if s := os.Getenv("CACHE_MAX_AGE"); s != "" {
        if d, err := time.ParseDuration(s); err == nil {
            cfg.CacheMaxAge = d
        }
    }

    // Booleans override when env present and truthy/falsey
    setBool := func(dst *bool, envKey string) {
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
            switch s {
            case "1", "true", "yes", "on":
                *dst = true
            case "0", "false", "no", "off":
                *dst = false
            }
        }
    }
    setBool(&cfg.DryRun, "DRY_RUN")
    setBool(&cfg.Verbose, "VERBOSE")
    setBool(&cfg.Render, "RENDER")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
}
