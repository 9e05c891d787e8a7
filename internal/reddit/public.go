package reddit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	goreddit "github.com/loganintech/go-reddit/v2/reddit"
	config "github.com/maheshrc27/redditflow/configs"
)

// publicReader reads subreddit data without an account token.
type publicReader interface {
	About(ctx context.Context, sub string) (SubredditInfo, error)
	Posts(ctx context.Context, sub, order string, limit int) ([]ListingPost, error)
}

type goRedditReader struct {
	client *goreddit.Client
}

func newPublicReader(cfg config.Reddit, hc *http.Client) publicReader {
	opts := []goreddit.Opt{
		goreddit.WithUserAgent(cfg.UserAgent),
		goreddit.WithHTTPClient(hc),
	}
	if cfg.PublicURL != "" {
		opts = append(opts, goreddit.WithBaseURL(cfg.PublicURL))
	}
	c, err := goreddit.NewReadonlyClient(opts...)
	if err != nil {
		slog.Warn("public reddit client unavailable", "error", err)
		return noPublicReader{}
	}
	return &goRedditReader{client: c}
}

func (r *goRedditReader) About(ctx context.Context, sub string) (SubredditInfo, error) {
	s, _, err := r.client.Subreddit.Get(ctx, sub)
	if err != nil {
		return SubredditInfo{}, err
	}
	return SubredditInfo{Name: s.Name, Subscribers: s.Subscribers}, nil
}

func (r *goRedditReader) Posts(ctx context.Context, sub, order string, limit int) ([]ListingPost, error) {
	var (
		posts []*goreddit.Post
		err   error
	)
	switch order {
	case "top":
		posts, _, err = r.client.Subreddit.TopPosts(ctx, sub, &goreddit.ListPostOptions{
			ListOptions: goreddit.ListOptions{Limit: limit},
			Time:        "month",
		})
	case "hot":
		posts, _, err = r.client.Subreddit.HotPosts(ctx, sub, &goreddit.ListOptions{Limit: limit})
	default:
		posts, _, err = r.client.Subreddit.NewPosts(ctx, sub, &goreddit.ListOptions{Limit: limit})
	}
	if err != nil {
		return nil, err
	}

	out := make([]ListingPost, 0, len(posts))
	for _, p := range posts {
		lp := ListingPost{
			ID:          p.ID,
			Score:       p.Score,
			Comments:    p.NumberOfComments,
			UpvoteRatio: float64(p.UpvoteRatio),
			IsSelf:      p.IsSelfPost,
		}
		if p.Created != nil {
			lp.Created = p.Created.Time.UTC()
		}
		out = append(out, lp)
	}
	return out, nil
}

type noPublicReader struct{}

var errNoPublicReader = errors.New("reddit: public reader unavailable")

func (noPublicReader) About(context.Context, string) (SubredditInfo, error) {
	return SubredditInfo{}, errNoPublicReader
}

func (noPublicReader) Posts(context.Context, string, string, int) ([]ListingPost, error) {
	return nil, errNoPublicReader
}
