// Package ratelimit keeps client-side budgets for calls made against Reddit so
// that accounts stay clear of platform throttling and spam bans.
//
// Three kinds of action are tracked per key: generic API calls (sliding
// one-minute window), posts (daily cap plus minimum spacing) and posts to one
// subreddit from one account (minimum spacing). An allowed check reserves its
// slot immediately, before the real request runs.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type Kind string

const (
	KindAPI       Kind = "api"
	KindPost      Kind = "post"
	KindSubreddit Kind = "subreddit"
)

const (
	ReasonAPIWindow        = "api_rate_limit"
	ReasonDailyLimit       = "daily_post_limit"
	ReasonPostSpacing      = "post_spacing"
	ReasonSubredditSpacing = "subreddit_spacing"
)

type Limits struct {
	APIWindow        time.Duration
	APIMax           int
	PostDailyWindow  time.Duration
	PostDailyMax     int
	PostSpacing      time.Duration
	SubredditSpacing time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		APIWindow:        time.Minute,
		APIMax:           30,
		PostDailyWindow:  24 * time.Hour,
		PostDailyMax:     60,
		PostSpacing:      5 * time.Minute,
		SubredditSpacing: 30 * time.Minute,
	}
}

// Decision is the outcome of a check. Wait is zero when Allowed.
type Decision struct {
	Allowed bool
	Wait    time.Duration
	Reason  string
}

func (d Decision) WaitMs() int64 {
	return d.Wait.Milliseconds()
}

// Message renders a human readable reason for a denied decision.
func (d Decision) Message() string {
	if d.Allowed {
		return ""
	}
	wait := d.Wait.Round(time.Second)
	switch d.Reason {
	case ReasonDailyLimit:
		return fmt.Sprintf("daily post limit reached, resets in %s", wait)
	case ReasonPostSpacing:
		return fmt.Sprintf("posting too quickly, next post allowed in %s", wait)
	case ReasonSubredditSpacing:
		return fmt.Sprintf("already posted to this subreddit recently, wait %s", wait)
	default:
		return fmt.Sprintf("api rate limit reached, retry in %s", wait)
	}
}

type Remaining struct {
	Daily     int       `json:"daily"`
	ResetTime time.Time `json:"reset_time"`
}

// Limiter never fails: a backend problem is logged and the check is allowed.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, kind Kind) Decision
	PostsRemaining(ctx context.Context, key string) Remaining
}

// SubredditKey builds the key used for per-(account, subreddit) spacing.
func SubredditKey(accountKey, subreddit string) string {
	return accountKey + ":" + subreddit
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(wait time.Duration, reason string) Decision {
	if wait < 0 {
		wait = 0
	}
	return Decision{Allowed: false, Wait: wait, Reason: reason}
}
