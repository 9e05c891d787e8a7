package reddit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Award struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type PostStats struct {
	Upvotes     int     `json:"upvotes"`
	Downvotes   int     `json:"downvotes"`
	Comments    int     `json:"comments"`
	Shares      int     `json:"shares"`
	Awards      []Award `json:"awards"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	ViewCount   int     `json:"view_count"`
}

type Comment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	Replies   int       `json:"replies"`
	CreatedAt time.Time `json:"created_at"`
}

func fullname(postID string) string {
	if strings.HasPrefix(postID, "t3_") {
		return postID
	}
	return "t3_" + postID
}

func (c *client) lookupLink(ctx context.Context, accessToken, postID string) (*link, error) {
	const endpoint = "/api/info"
	q := url.Values{}
	q.Set("id", fullname(postID))

	var l listing
	if _, err := c.do(ctx, request{method: http.MethodGet, endpoint: endpoint, token: accessToken, query: q}, &l); err != nil {
		return nil, err
	}
	links := decodeLinks(l)
	if len(links) == 0 {
		return nil, &APIError{Kind: KindNotFound, Endpoint: endpoint, Message: "post " + postID + " not found"}
	}
	return &links[0], nil
}

func (c *client) GetPostStats(ctx context.Context, accessToken, postID string) (*PostStats, error) {
	l, err := c.lookupLink(ctx, accessToken, postID)
	if err != nil {
		return nil, err
	}

	stats := &PostStats{
		Upvotes:     l.Ups,
		Downvotes:   l.Downs,
		Comments:    l.NumComments,
		Shares:      l.NumCrosspost,
		Score:       l.Score,
		UpvoteRatio: l.UpvoteRatio,
		Awards:      []Award{},
	}
	if l.ViewCount != nil {
		stats.ViewCount = *l.ViewCount
	}
	for _, a := range l.Awardings {
		stats.Awards = append(stats.Awards, Award{Name: a.Name, Count: a.Count})
	}
	// Reddit reports downs as 0; derive from the ratio when possible.
	if stats.Downvotes == 0 && l.UpvoteRatio > 0 && l.UpvoteRatio < 1 && l.Ups > 0 {
		total := float64(l.Ups) / l.UpvoteRatio
		stats.Downvotes = int(total+0.5) - l.Ups
	}
	return stats, nil
}

// DeletePost removes a post after checking it is still visible to the
// account. Reddit acknowledges a delete with an empty object.
func (c *client) DeletePost(ctx context.Context, accessToken, postID string) error {
	const endpoint = "/api/del"
	l, err := c.lookupLink(ctx, accessToken, postID)
	if err != nil {
		return err
	}
	if l.RemovedBy != nil && *l.RemovedBy == "deleted" {
		return &APIError{Kind: KindNotFound, Endpoint: endpoint, Message: "post " + postID + " already deleted"}
	}

	form := url.Values{}
	form.Set("id", fullname(postID))
	raw, err := c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, token: accessToken, form: form}, nil)
	if err != nil {
		return err
	}

	body := strings.TrimSpace(string(raw))
	if body == "" || body == "{}" {
		return nil
	}
	if reason, message := errorPayload(raw); reason != "" || message != "" {
		return classifyReason(endpoint, reason, message)
	}
	return nil
}

type commentThing struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

func (t commentThing) toComment() Comment {
	c := Comment{
		ID:        t.ID,
		Name:      t.Name,
		Author:    t.Author,
		Body:      t.Body,
		Score:     t.Score,
		CreatedAt: time.Unix(int64(t.CreatedUTC), 0).UTC(),
	}
	// replies is "" when empty, a listing otherwise
	var l listing
	if len(t.Replies) > 0 && json.Unmarshal(t.Replies, &l) == nil {
		for _, child := range l.Data.Children {
			if child.Kind == "t1" {
				c.Replies++
			}
		}
	}
	return c
}

// GetPostComments returns the top level comments of a post, or an empty
// slice when they cannot be fetched.
func (c *client) GetPostComments(ctx context.Context, accessToken, postID string, limit int) []Comment {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("depth", "2")

	var pages []listing
	_, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/comments/" + strings.TrimPrefix(postID, "t3_"),
		token:    accessToken,
		query:    q,
	}, &pages)
	if err != nil {
		slog.Warn("fetch comments failed", "post_id", postID, "error", err)
		return []Comment{}
	}
	out := []Comment{}
	if len(pages) < 2 {
		return out
	}
	for _, child := range pages[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var t commentThing
		if err := json.Unmarshal(child.Data, &t); err != nil {
			continue
		}
		out = append(out, t.toComment())
	}
	return out
}

// PostCommentReply replies to a post or comment fullname. A zero Comment is
// returned when the reply was not accepted.
func (c *client) PostCommentReply(ctx context.Context, accessToken, parentID, text string) Comment {
	const endpoint = "/api/comment"
	if !strings.HasPrefix(parentID, "t1_") && !strings.HasPrefix(parentID, "t3_") {
		parentID = fullname(parentID)
	}
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", parentID)
	form.Set("text", text)

	var env struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				Things []struct {
					Kind string       `json:"kind"`
					Data commentThing `json:"data"`
				} `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if _, err := c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, token: accessToken, form: form}, &env); err != nil {
		slog.Warn("comment reply failed", "parent_id", parentID, "error", err)
		return Comment{}
	}
	if len(env.JSON.Errors) > 0 || len(env.JSON.Data.Things) == 0 {
		slog.Warn("comment reply rejected", "parent_id", parentID, "errors", env.JSON.Errors)
		return Comment{}
	}
	return env.JSON.Data.Things[0].Data.toComment()
}
