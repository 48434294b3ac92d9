package post

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirPoster writes the thread to thread.md and each reply to a numbered
// comment file in Dir. It is the dry-run poster; URLs are file paths.
type DirPoster struct {
	Dir string

	mu    sync.Mutex
	next  int
	files map[string]string
}

const threadID = "thread"

// Submit writes thread.md, replacing any earlier run in Dir.
func (p *DirPoster) Submit(_ context.Context, t Thread) (Posted, error) {
	if strings.TrimSpace(p.Dir) == "" {
		return Posted{}, errors.New("post dir not configured")
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return Posted{}, fmt.Errorf("mkdir: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = 0
	p.files = map[string]string{}
	path := filepath.Join(p.Dir, "thread.md")
	if err := os.WriteFile(path, []byte(threadFile(t.Title, t.Body)), 0o644); err != nil {
		return Posted{}, fmt.Errorf("write thread: %w", err)
	}
	p.files[threadID] = path
	return Posted{ID: threadID, URL: path}, nil
}

// Reply writes the next comment-NNN.md file.
func (p *DirPoster) Reply(_ context.Context, parentID string, body string) (Posted, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[parentID]; !ok {
		return Posted{}, fmt.Errorf("unknown parent %q", parentID)
	}
	p.next++
	id := fmt.Sprintf("comment-%03d", p.next)
	path := filepath.Join(p.Dir, id+".md")
	if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
		return Posted{}, fmt.Errorf("write comment: %w", err)
	}
	p.files[id] = path
	return Posted{ID: id, URL: path}, nil
}

// Edit rewrites a file written earlier. Editing the thread keeps its title.
func (p *DirPoster) Edit(_ context.Context, thingID string, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.files[thingID]
	if !ok {
		return fmt.Errorf("unknown thing %q", thingID)
	}
	content := body + "\n"
	if thingID == threadID {
		old, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read thread: %w", err)
		}
		title, _, _ := strings.Cut(string(old), "\n")
		content = title + "\n\n" + body + "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func threadFile(title, body string) string {
	return "# " + title + "\n\n" + body + "\n"
}
