package reddit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
)

const maxSubredditPages = 10

type Subreddit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Subscribers int    `json:"subscribers"`
	Over18      bool   `json:"over18"`
}

// GetSubreddits pages through the subreddits the account subscribes to. A
// malformed page ends the walk with what was collected so far.
func (c *client) GetSubreddits(ctx context.Context, accessToken string) ([]Subreddit, error) {
	out := []Subreddit{}
	after := ""
	for page := 0; page < maxSubredditPages; page++ {
		q := url.Values{}
		q.Set("limit", "100")
		if after != "" {
			q.Set("after", after)
		}

		raw, err := c.do(ctx, request{method: http.MethodGet, endpoint: "/subreddits/mine/subscriber", token: accessToken, query: q}, nil)
		if err != nil {
			return nil, err
		}

		var l listing
		if err := json.Unmarshal(raw, &l); err != nil {
			slog.Warn("malformed subreddit listing", "error", err)
			return out, nil
		}
		for _, child := range l.Data.Children {
			var s Subreddit
			if err := json.Unmarshal(child.Data, &s); err != nil || s.DisplayName == "" {
				continue
			}
			out = append(out, s)
		}
		if l.Data.After == "" {
			break
		}
		after = l.Data.After
	}
	return out, nil
}
