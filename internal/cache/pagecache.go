// Package cache keeps fetched patch pages on disk so repeated runs against
// the same patch do not hit the site again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the metadata stored next to a cached page body.
type Entry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	Rendered     bool      `json:"rendered,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Age is how long ago the entry was saved.
func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.SavedAt) }

// PageCache stores pages as <key>.meta.json and <key>.body where key is
// sha256 of the URL. Rendered pages use a separate key so a headless
// snapshot never shadows the raw response.
type PageCache struct {
	Dir string
	// StrictPerms writes the directory as 0700 and files as 0600.
	StrictPerms bool
}

func (c *PageCache) dirMode() os.FileMode {
	if c.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (c *PageCache) fileMode() os.FileMode {
	if c.StrictPerms {
		return 0o600
	}
	return 0o644
}

func (c *PageCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(c.Dir, c.dirMode()); err != nil {
		return err
	}
	if c.StrictPerms {
		return os.Chmod(c.Dir, 0o700)
	}
	return nil
}

// Key is the file name stem for url.
func Key(url string, rendered bool) string {
	if rendered {
		url = "rendered:" + url
	}
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *PageCache) metaPath(key string) string { return filepath.Join(c.Dir, key+".meta.json") }
func (c *PageCache) bodyPath(key string) string { return filepath.Join(c.Dir, key+".body") }

// LoadMeta returns the entry metadata if present.
func (c *PageCache) LoadMeta(_ context.Context, url string, rendered bool) (*Entry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(c.metaPath(Key(url, rendered)))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &e, nil
}

// LoadBody returns the cached body if present.
func (c *PageCache) LoadBody(_ context.Context, url string, rendered bool) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(c.bodyPath(Key(url, rendered)))
}

// Fresh returns the cached body when an entry exists and is younger than
// maxAge. A zero maxAge never considers an entry fresh.
func (c *PageCache) Fresh(ctx context.Context, url string, rendered bool, maxAge time.Duration) ([]byte, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	meta, err := c.LoadMeta(ctx, url, rendered)
	if err != nil || meta.Age(time.Now().UTC()) > maxAge {
		return nil, false
	}
	body, err := c.LoadBody(ctx, url, rendered)
	if err != nil {
		return nil, false
	}
	return body, true
}

// Save writes the body and then atomically replaces the metadata.
func (c *PageCache) Save(_ context.Context, e Entry, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	key := Key(e.URL, e.Rendered)
	if err := os.WriteFile(c.bodyPath(key), body, c.fileMode()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := c.metaPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, c.fileMode()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, c.metaPath(key))
}
