package reddit

import (
	"context"
	"net/http"
)

type Flair struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	TextEditable bool   `json:"text_editable"`
}

// GetFlairOptions lists link flairs for a subreddit. An empty list means no
// flair is required; a failed fetch is returned as an error.
func (c *client) GetFlairOptions(ctx context.Context, accessToken, subreddit string) ([]Flair, error) {
	sub := NormalizeSubreddit(subreddit)
	var flairs []Flair
	_, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/r/" + sub + "/api/link_flair_v2",
		token:    accessToken,
	}, &flairs)
	if err != nil {
		return nil, err
	}
	if flairs == nil {
		flairs = []Flair{}
	}
	return flairs, nil
}
