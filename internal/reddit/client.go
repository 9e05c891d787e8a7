// Package reddit is the Reddit API access layer: OAuth token exchange and
// refresh, a single request executor with uniform error classification, and
// the read and write operations the publishing pipeline needs.
package reddit

import (
	"context"
	"net/http"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/ratelimit"
	"golang.org/x/time/rate"
)

type Client interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	RevokeToken(ctx context.Context, token, hint string) error
	ValidateAccessToken(ctx context.Context, accessToken string) bool
	GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)

	ReservePost(ctx context.Context, accountID, subreddit string) error
	SubmitPost(ctx context.Context, accessToken string, in SubmitInput) (*SubmitResult, error)
	GetFlairOptions(ctx context.Context, accessToken, subreddit string) ([]Flair, error)
	GetSubreddits(ctx context.Context, accessToken string) ([]Subreddit, error)
	GetPostStats(ctx context.Context, accessToken, postID string) (*PostStats, error)
	DeletePost(ctx context.Context, accessToken, postID string) error

	GetPostComments(ctx context.Context, accessToken, postID string, limit int) []Comment
	PostCommentReply(ctx context.Context, accessToken, parentID, text string) Comment
	GetSubredditActivity(ctx context.Context, accessToken, subreddit string) SubredditActivity
	AnalyzeBestPostingTime(ctx context.Context, accessToken, subreddit string) PostingTimeAnalysis
	AnalyzeSubredditEngagement(ctx context.Context, accessToken, subreddit string) EngagementAnalysis
}

const (
	apiLimiterKey = "reddit"
	maxInlineWait = 10 * time.Second
)

type client struct {
	cfg        config.Reddit
	httpClient *http.Client
	limiter    ratelimit.Limiter
	pacer      *rate.Limiter
	public     publicReader
	now        func() time.Time
}

type Option func(*client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.httpClient = h }
}

func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *client) { c.limiter = l }
}

// WithPacer replaces the default outbound pacing of one request every 600ms
// with a burst of 5.
func WithPacer(p *rate.Limiter) Option {
	return func(c *client) { c.pacer = p }
}

func withPublicReader(p publicReader) Option {
	return func(c *client) { c.public = p }
}

func NewClient(cfg config.Reddit, timeout time.Duration, opts ...Option) Client {
	c := &client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		pacer:      rate.NewLimiter(rate.Every(600*time.Millisecond), 5),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.NewMemoryLimiter(ratelimit.DefaultLimits())
	}
	if c.public == nil {
		c.public = newPublicReader(cfg, c.httpClient)
	}
	return c
}
