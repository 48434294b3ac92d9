// Package post publishes a rendered thread and its per-hero comments.
package post

import "context"

// Thread is a submission: a title and a Markdown body in one subreddit.
type Thread struct {
	Subreddit string
	Title     string
	Body      string
}

// Posted identifies something that was published. ID is the fullname used
// for replies and edits (t3_... for threads, t1_... for comments).
type Posted struct {
	ID  string
	URL string
}

// Poster publishes threads and replies and edits what it published.
type Poster interface {
	Submit(ctx context.Context, t Thread) (Posted, error)
	Reply(ctx context.Context, parentID string, body string) (Posted, error)
	Edit(ctx context.Context, thingID string, body string) error
}
