package reddit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/redditflow/internal/ratelimit"
)

type SubmitInput struct {
	// AccountID keys the post and subreddit budgets.
	AccountID string
	Subreddit string
	Title     string
	Body      string
	FlairID   string
	MediaURLs []string
	// Reserved is set when the caller already took the post and subreddit
	// slots with ReservePost.
	Reserved bool
}

type SubmitResult struct {
	ID   string
	Name string
	URL  string
	Kind string
}

type submitEnvelope struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

// NormalizeSubreddit strips an "r/" prefix and lowercases the name.
func NormalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if len(name) >= 2 && strings.EqualFold(name[:2], "r/") {
		name = name[2:]
	}
	return strings.ToLower(strings.Trim(name, "/"))
}

// ReservePost takes the account's post slot and its slot for the subreddit.
// Both are spent even if the submit that follows fails.
func (c *client) ReservePost(ctx context.Context, accountID, subreddit string) error {
	const endpoint = "/api/submit"
	if d := c.limiter.CheckLimit(ctx, accountID, ratelimit.KindPost); !d.Allowed {
		return &APIError{Kind: KindRateLimited, Endpoint: endpoint, Reason: d.Reason, Message: d.Message(), RetryAfter: d.Wait}
	}
	if d := c.limiter.CheckLimit(ctx, ratelimit.SubredditKey(accountID, NormalizeSubreddit(subreddit)), ratelimit.KindSubreddit); !d.Allowed {
		return &APIError{Kind: KindRateLimited, Endpoint: endpoint, Reason: d.Reason, Message: d.Message(), RetryAfter: d.Wait}
	}
	return nil
}

func (c *client) SubmitPost(ctx context.Context, accessToken string, in SubmitInput) (*SubmitResult, error) {
	const endpoint = "/api/submit"
	sub := NormalizeSubreddit(in.Subreddit)
	if sub == "" {
		return nil, &APIError{Kind: KindInvalidSubreddit, Endpoint: endpoint, Message: "subreddit is empty"}
	}
	if !in.Reserved {
		if err := c.ReservePost(ctx, in.AccountID, sub); err != nil {
			return nil, err
		}
	}

	result := &SubmitResult{}
	urls := in.MediaURLs

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("sr", sub)
	form.Set("title", in.Title)
	form.Set("resubmit", "true")
	if len(urls) > 0 {
		result.Kind = "link"
		form.Set("kind", "link")
		form.Set("url", urls[0])
		if text := linkText(in.Body, urls[1:]); text != "" {
			form.Set("text", text)
		}
	} else {
		result.Kind = "self"
		form.Set("kind", "self")
		form.Set("text", in.Body)
	}
	if in.FlairID != "" {
		form.Set("flair_id", in.FlairID)
	}

	raw, err := c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, token: accessToken, form: form}, nil)
	if err != nil {
		return nil, err
	}

	id, name, link, apiErr := parseSubmit(raw)
	if apiErr != nil {
		slog.Info(apiErr.Error())
		return nil, apiErr
	}
	result.ID, result.Name, result.URL = id, name, link
	return result, nil
}

func linkText(body string, extra []string) string {
	parts := []string{}
	if strings.TrimSpace(body) != "" {
		parts = append(parts, body)
	}
	parts = append(parts, extra...)
	return strings.Join(parts, "\n\n")
}

// parseSubmit reads the {json:{errors,data}} envelope. Either the short id is
// returned or a classified error, never both.
func parseSubmit(raw []byte) (id, name, link string, apiErr *APIError) {
	const endpoint = "/api/submit"
	var env submitEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", "", "", &APIError{Kind: KindRequestFailed, Endpoint: endpoint, Message: "malformed submit response", Body: truncate(string(raw), 2048)}
	}
	if len(env.JSON.Errors) > 0 {
		e := env.JSON.Errors[0]
		var reason, message string
		if len(e) > 0 {
			reason = stringValue(e[0])
		}
		if len(e) > 1 {
			message = stringValue(e[1])
		}
		apiErr := classifyReason(endpoint, reason, message)
		apiErr.Body = truncate(string(raw), 2048)
		return "", "", "", apiErr
	}

	data := env.JSON.Data
	id = data.ID
	if id == "" {
		id = strings.TrimPrefix(data.Name, "t3_")
	}
	if id == "" {
		return "", "", "", &APIError{Kind: KindPlatformRejected, Endpoint: endpoint, Message: "submit response missing post id"}
	}
	name = data.Name
	if name == "" {
		name = "t3_" + id
	}
	return id, name, data.URL, nil
}
