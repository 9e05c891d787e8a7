package models

import "time"

type Post struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	Title        string     `db:"title" json:"title"`
	Content      string     `db:"content" json:"content"`
	MediaURLs    []string   `db:"media_urls" json:"media_urls"`
	Status       string     `db:"status" json:"status"`
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// PostDestination is a planned target of a scheduled post, persisted so the
// scheduler can replay it when the post comes due.
type PostDestination struct {
	PostID    int64     `db:"post_id" json:"post_id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	Subreddit string    `db:"subreddit" json:"subreddit"`
	FlairID   string    `db:"flair_id" json:"flair_id,omitempty"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusPending   = "pending"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)
