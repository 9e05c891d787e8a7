package service

import (
	"context"
	"strconv"

	"github.com/maheshrc27/redditflow/internal/ratelimit"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/repository"
)

type SubredditInsights struct {
	Activity    reddit.SubredditActivity   `json:"activity"`
	PostingTime reddit.PostingTimeAnalysis `json:"posting_time"`
	Engagement  reddit.EngagementAnalysis  `json:"engagement"`
}

// RedditService exposes Reddit reads on behalf of one of the user's
// accounts, handling token validation and refresh.
type RedditService interface {
	Subreddits(ctx context.Context, userID, accountID int64) ([]reddit.Subreddit, error)
	Flairs(ctx context.Context, userID, accountID int64, subreddit string) ([]reddit.Flair, error)
	PostStats(ctx context.Context, userID, accountID int64, postID string) (*reddit.PostStats, error)
	DeletePost(ctx context.Context, userID, accountID int64, postID string) error
	Comments(ctx context.Context, userID, accountID int64, postID string) ([]reddit.Comment, error)
	Reply(ctx context.Context, userID, accountID int64, parentID, text string) (reddit.Comment, error)
	Insights(ctx context.Context, userID, accountID int64, subreddit string) (*SubredditInsights, error)
	PostsRemaining(ctx context.Context, userID, accountID int64) (*ratelimit.Remaining, error)
}

type redditService struct {
	ac      repository.AccountRepository
	tokens  TokenService
	client  reddit.Client
	limiter ratelimit.Limiter
}

func NewRedditService(ac repository.AccountRepository, tokens TokenService, client reddit.Client, limiter ratelimit.Limiter) RedditService {
	return &redditService{ac: ac, tokens: tokens, client: client, limiter: limiter}
}

func (s *redditService) withAccount(ctx context.Context, userID, accountID int64, fn func(token string) error) error {
	acc, err := ownedAccount(ctx, s.ac, userID, accountID)
	if err != nil {
		return err
	}
	return s.tokens.WithToken(ctx, acc, fn)
}

func (s *redditService) Subreddits(ctx context.Context, userID, accountID int64) ([]reddit.Subreddit, error) {
	var out []reddit.Subreddit
	err := s.withAccount(ctx, userID, accountID, func(token string) error {
		var err error
		out, err = s.client.GetSubreddits(ctx, token)
		return err
	})
	return out, err
}

func (s *redditService) Flairs(ctx context.Context, userID, accountID int64, subreddit string) ([]reddit.Flair, error) {
	var out []reddit.Flair
	err := s.withAccount(ctx, userID, accountID, func(token string) error {
		var err error
		out, err = s.client.GetFlairOptions(ctx, token, subreddit)
		return err
	})
	return out, err
}

func (s *redditService) PostStats(ctx context.Context, userID, accountID int64, postID string) (*reddit.PostStats, error) {
	var out *reddit.PostStats
	err := s.withAccount(ctx, userID, accountID, func(token string) error {
		var err error
		out, err = s.client.GetPostStats(ctx, token, postID)
		return err
	})
	return out, err
}

func (s *redditService) DeletePost(ctx context.Context, userID, accountID int64, postID string) error {
	return s.withAccount(ctx, userID, accountID, func(token string) error {
		return s.client.DeletePost(ctx, token, postID)
	})
}

func (s *redditService) Comments(ctx context.Context, userID, accountID int64, postID string) ([]reddit.Comment, error) {
	var out []reddit.Comment
	err := s.withAccount(ctx, userID, accountID, func(token string) error {
		out = s.client.GetPostComments(ctx, token, postID, 50)
		return nil
	})
	return out, err
}

func (s *redditService) Reply(ctx context.Context, userID, accountID int64, parentID, text string) (reddit.Comment, error) {
	var out reddit.Comment
	err := s.withAccount(ctx, userID, accountID, func(token string) error {
		out = s.client.PostCommentReply(ctx, token, parentID, text)
		return nil
	})
	return out, err
}

func (s *redditService) Insights(ctx context.Context, userID, accountID int64, subreddit string) (*SubredditInsights, error) {
	out := &SubredditInsights{}
	err := s.withAccount(ctx, userID, accountID, func(token string) error {
		out.Activity = s.client.GetSubredditActivity(ctx, token, subreddit)
		out.PostingTime = s.client.AnalyzeBestPostingTime(ctx, token, subreddit)
		out.Engagement = s.client.AnalyzeSubredditEngagement(ctx, token, subreddit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PostsRemaining reports the account's daily post budget. The key matches
// the one SubmitPost charges.
func (s *redditService) PostsRemaining(ctx context.Context, userID, accountID int64) (*ratelimit.Remaining, error) {
	if _, err := ownedAccount(ctx, s.ac, userID, accountID); err != nil {
		return nil, err
	}
	r := s.limiter.PostsRemaining(ctx, strconv.FormatInt(accountID, 10))
	return &r, nil
}
