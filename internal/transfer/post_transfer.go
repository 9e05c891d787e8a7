package transfer

import (
	"time"

	"github.com/maheshrc27/redditflow/internal/models"
)

type PostTargetInput struct {
	AccountID int64  `json:"account_id"`
	Subreddit string `json:"subreddit"`
	FlairID   string `json:"flair_id,omitempty"`
}

type PostCreation struct {
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	MediaURLs    []string          `json:"media_urls,omitempty"`
	Targets      []PostTargetInput `json:"posts"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
}

type FlairOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PostResult is the outcome for one target, returned in the order the
// targets were given.
type PostResult struct {
	PostID         int64         `json:"post_id,omitempty"`
	AccountID      int64         `json:"account_id"`
	Subreddit      string        `json:"subreddit"`
	Success        bool          `json:"success"`
	PlatformPostID string        `json:"platform_post_id,omitempty"`
	URL            string        `json:"url,omitempty"`
	Error          string        `json:"error,omitempty"`
	RequiresFlair  bool          `json:"requires_flair,omitempty"`
	Flairs         []FlairOption `json:"flairs,omitempty"`
}

type ScheduledResult struct {
	PostID    int64  `json:"post_id"`
	DelayMs   int64  `json:"delay_ms"`
	Scheduled bool   `json:"scheduled"`
	Status    string `json:"status"`
}

// ScheduledOutcome reports what one due post became during a sweep.
type ScheduledOutcome struct {
	PostID  int64        `json:"post_id"`
	Status  string       `json:"status"`
	Error   string       `json:"error,omitempty"`
	Skipped bool         `json:"skipped,omitempty"`
	Results []PostResult `json:"results,omitempty"`
}

type SweepSummary struct {
	Processed int                `json:"processed"`
	Published int                `json:"published"`
	Failed    int                `json:"failed"`
	Skipped   int                `json:"skipped"`
	Outcomes  []ScheduledOutcome `json:"outcomes"`
}

// PostDetail is a post with the latest attempt per destination.
type PostDetail struct {
	Post    *models.Post         `json:"post"`
	Targets []*models.PostTarget `json:"targets"`
}
