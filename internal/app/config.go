package app

import (
	"fmt"
	"strings"
	"time"
)

// DefaultURLTemplate is the patch page for a version; %s is the version.
const DefaultURLTemplate = "https://www.dota2.com/patches/%s"

// DefaultUserAgent identifies page fetches.
const DefaultUserAgent = "patchday/1.0 (+https://github.com/hyperifyio/patchday)"

// Config holds runtime configuration for the application.
type Config struct {
	// Source
	Version   string
	URL       string
	InputPath string
	Render    bool
	ChromeURL string
	UserAgent string
	// IgnoreRobots skips the robots.txt check before fetching.
	IgnoreRobots bool

	// Extraction and rendering
	Classes    map[string]string
	Marker     string
	LinkPrefix string
	RosterPath string

	// Outputs
	OutputDir   string
	JSONPath    string
	PreviewPath string
	PDFPath     string

	// Posting
	Subreddit          string
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string
	// PostInterval paces Reddit API calls. Zero means one per second.
	PostInterval time.Duration

	// Behavior
	DryRun           bool
	Verbose          bool
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
}

// PageURL is the explicit URL or the default page for Version.
func (c Config) PageURL() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	return fmt.Sprintf(DefaultURLTemplate, strings.TrimSpace(c.Version))
}
