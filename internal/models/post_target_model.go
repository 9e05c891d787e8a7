package models

import "time"

// PostTarget is one publish attempt of a post to an account+subreddit. Rows are
// never updated; a retry appends a new one.
type PostTarget struct {
	ID             int64      `db:"id" json:"id"`
	PostID         int64      `db:"post_id" json:"post_id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	Subreddit      string     `db:"subreddit" json:"subreddit"`
	FlairID        string     `db:"flair_id" json:"flair_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	PlatformPostID string     `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

const (
	TargetStatusPublished = "published"
	TargetStatusFailed    = "failed"
)
