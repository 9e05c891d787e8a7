package reddit

import (
	"encoding/json"
	"time"
)

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// link is the subset of a t3 thing the client reads.
type link struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Subreddit    string  `json:"subreddit"`
	Ups          int     `json:"ups"`
	Downs        int     `json:"downs"`
	Score        int     `json:"score"`
	UpvoteRatio  float64 `json:"upvote_ratio"`
	NumComments  int     `json:"num_comments"`
	NumCrosspost int     `json:"num_crossposts"`
	ViewCount    *int    `json:"view_count"`
	IsSelf       bool    `json:"is_self"`
	RemovedBy    *string `json:"removed_by_category"`
	CreatedUTC   float64 `json:"created_utc"`
	Awardings    []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"all_awardings"`
}

func (l link) created() time.Time {
	return time.Unix(int64(l.CreatedUTC), 0).UTC()
}

func (l link) sample() ListingPost {
	return ListingPost{
		ID:          l.ID,
		Score:       l.Score,
		Comments:    l.NumComments,
		UpvoteRatio: l.UpvoteRatio,
		IsSelf:      l.IsSelf,
		Created:     l.created(),
	}
}

func decodeLinks(l listing) []link {
	var out []link
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var item link
		if err := json.Unmarshal(child.Data, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}
