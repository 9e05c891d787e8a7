package reddit

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const analyticsSample = 100

type SubredditInfo struct {
	Name        string
	Subscribers int
	ActiveUsers int
}

// ListingPost is one post from a subreddit listing, reduced to what the
// analytics need.
type ListingPost struct {
	ID          string
	Score       int
	Comments    int
	UpvoteRatio float64
	IsSelf      bool
	Created     time.Time
}

type SubredditActivity struct {
	Subreddit    string  `json:"subreddit"`
	Subscribers  int     `json:"subscribers"`
	ActiveUsers  int     `json:"active_users"`
	PostsLast24h int     `json:"posts_last_24h"`
	AvgScore     float64 `json:"avg_score"`
	AvgComments  float64 `json:"avg_comments"`
}

type PostingTimeAnalysis struct {
	Subreddit  string          `json:"subreddit"`
	BestHours  []int           `json:"best_hours_utc"`
	BestDays   []string        `json:"best_days"`
	HourScores map[int]float64 `json:"hour_scores"`
	SampleSize int             `json:"sample_size"`
}

type EngagementAnalysis struct {
	Subreddit         string  `json:"subreddit"`
	SampleSize        int     `json:"sample_size"`
	AvgScore          float64 `json:"avg_score"`
	AvgComments       float64 `json:"avg_comments"`
	AvgUpvoteRatio    float64 `json:"avg_upvote_ratio"`
	SelfPostShare     float64 `json:"self_post_share"`
	CommentsPerUpvote float64 `json:"comments_per_upvote"`
}

func (c *client) GetSubredditActivity(ctx context.Context, accessToken, subreddit string) SubredditActivity {
	sub := NormalizeSubreddit(subreddit)
	out := SubredditActivity{Subreddit: sub}

	info, err := c.about(ctx, accessToken, sub)
	if err != nil {
		slog.Warn("subreddit about failed", "subreddit", sub, "error", err)
	} else {
		out.Subscribers = info.Subscribers
		out.ActiveUsers = info.ActiveUsers
	}

	posts := c.listPosts(ctx, accessToken, sub, "new")
	cutoff := c.now().Add(-24 * time.Hour)
	var score, comments int
	for _, p := range posts {
		if p.Created.After(cutoff) {
			out.PostsLast24h++
		}
		score += p.Score
		comments += p.Comments
	}
	if len(posts) > 0 {
		out.AvgScore = float64(score) / float64(len(posts))
		out.AvgComments = float64(comments) / float64(len(posts))
	}
	return out
}

func (c *client) AnalyzeBestPostingTime(ctx context.Context, accessToken, subreddit string) PostingTimeAnalysis {
	sub := NormalizeSubreddit(subreddit)
	a := bestPostingTime(c.listPosts(ctx, accessToken, sub, "top"))
	a.Subreddit = sub
	return a
}

func (c *client) AnalyzeSubredditEngagement(ctx context.Context, accessToken, subreddit string) EngagementAnalysis {
	sub := NormalizeSubreddit(subreddit)
	e := engagement(c.listPosts(ctx, accessToken, sub, "hot"))
	e.Subreddit = sub
	return e
}

// about prefers the authenticated API and falls back to the public one.
func (c *client) about(ctx context.Context, accessToken, sub string) (SubredditInfo, error) {
	if accessToken != "" {
		var resp struct {
			Data struct {
				DisplayName     string `json:"display_name"`
				Subscribers     int    `json:"subscribers"`
				ActiveUserCount int    `json:"active_user_count"`
			} `json:"data"`
		}
		_, err := c.do(ctx, request{method: http.MethodGet, endpoint: "/r/" + sub + "/about", token: accessToken}, &resp)
		if err == nil {
			return SubredditInfo{Name: resp.Data.DisplayName, Subscribers: resp.Data.Subscribers, ActiveUsers: resp.Data.ActiveUserCount}, nil
		}
		slog.Info(err.Error())
	}
	return c.public.About(ctx, sub)
}

func (c *client) listPosts(ctx context.Context, accessToken, sub, order string) []ListingPost {
	if accessToken != "" {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(analyticsSample))
		if order == "top" {
			q.Set("t", "month")
		}
		var l listing
		_, err := c.do(ctx, request{method: http.MethodGet, endpoint: "/r/" + sub + "/" + order, token: accessToken, query: q}, &l)
		if err == nil {
			var out []ListingPost
			for _, item := range decodeLinks(l) {
				out = append(out, item.sample())
			}
			return out
		}
		slog.Info(err.Error())
	}

	posts, err := c.public.Posts(ctx, sub, order, analyticsSample)
	if err != nil {
		slog.Warn("public listing failed", "subreddit", sub, "order", order, "error", err)
		return nil
	}
	return posts
}

func bestPostingTime(posts []ListingPost) PostingTimeAnalysis {
	out := PostingTimeAnalysis{BestHours: []int{}, BestDays: []string{}, HourScores: map[int]float64{}, SampleSize: len(posts)}
	if len(posts) == 0 {
		return out
	}

	hourSum, hourN := map[int]int{}, map[int]int{}
	daySum, dayN := map[time.Weekday]int{}, map[time.Weekday]int{}
	for _, p := range posts {
		h, d := p.Created.UTC().Hour(), p.Created.UTC().Weekday()
		hourSum[h] += p.Score
		hourN[h]++
		daySum[d] += p.Score
		dayN[d]++
	}

	hours := make([]int, 0, len(hourN))
	for h, n := range hourN {
		out.HourScores[h] = float64(hourSum[h]) / float64(n)
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if out.HourScores[hours[i]] == out.HourScores[hours[j]] {
			return hours[i] < hours[j]
		}
		return out.HourScores[hours[i]] > out.HourScores[hours[j]]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}
	out.BestHours = hours

	days := make([]time.Weekday, 0, len(dayN))
	dayAvg := map[time.Weekday]float64{}
	for d, n := range dayN {
		dayAvg[d] = float64(daySum[d]) / float64(n)
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		if dayAvg[days[i]] == dayAvg[days[j]] {
			return days[i] < days[j]
		}
		return dayAvg[days[i]] > dayAvg[days[j]]
	})
	for i, d := range days {
		if i == 2 {
			break
		}
		out.BestDays = append(out.BestDays, d.String())
	}
	return out
}

func engagement(posts []ListingPost) EngagementAnalysis {
	out := EngagementAnalysis{SampleSize: len(posts)}
	if len(posts) == 0 {
		return out
	}
	var score, comments, self int
	var ratio float64
	for _, p := range posts {
		score += p.Score
		comments += p.Comments
		ratio += p.UpvoteRatio
		if p.IsSelf {
			self++
		}
	}
	n := float64(len(posts))
	out.AvgScore = float64(score) / n
	out.AvgComments = float64(comments) / n
	out.AvgUpvoteRatio = ratio / n
	out.SelfPostShare = float64(self) / n
	if score > 0 {
		out.CommentsPerUpvote = float64(comments) / float64(score)
	}
	return out
}
