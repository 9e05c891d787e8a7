package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrRequestFailed     = errors.New("reddit: request failed")
	ErrUnauthorized      = errors.New("reddit: unauthorized")
	ErrNotFound          = errors.New("reddit: not found")
	ErrRateLimited       = errors.New("reddit: rate limited")
	ErrInsufficientKarma = errors.New("reddit: insufficient karma")
	ErrInvalidSubreddit  = errors.New("reddit: invalid subreddit")
	ErrPlatformRejected  = errors.New("reddit: rejected by platform")
	ErrTokenRefresh      = errors.New("reddit: token refresh failed")
	ErrOAuthExchange     = errors.New("reddit: oauth code exchange failed")
)

type Kind string

const (
	KindRequestFailed     Kind = "request_failed"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindRateLimited       Kind = "rate_limited"
	KindInsufficientKarma Kind = "insufficient_karma"
	KindInvalidSubreddit  Kind = "invalid_subreddit"
	KindPlatformRejected  Kind = "platform_rejected"
)

var kindSentinels = map[Kind]error{
	KindRequestFailed:     ErrRequestFailed,
	KindUnauthorized:      ErrUnauthorized,
	KindNotFound:          ErrNotFound,
	KindRateLimited:       ErrRateLimited,
	KindInsufficientKarma: ErrInsufficientKarma,
	KindInvalidSubreddit:  ErrInvalidSubreddit,
	KindPlatformRejected:  ErrPlatformRejected,
}

// APIError is returned for every failed call to the platform. errors.Is
// matches it against the sentinel of its Kind.
type APIError struct {
	Kind       Kind
	Status     int
	Endpoint   string
	Reason     string
	Message    string
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Reason
	}
	if e.Status != 0 {
		return fmt.Sprintf("reddit %s %s (status %d): %s", e.Endpoint, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("reddit %s %s: %s", e.Endpoint, e.Kind, msg)
}

func (e *APIError) Unwrap() error {
	if s, ok := kindSentinels[e.Kind]; ok {
		return s
	}
	return ErrRequestFailed
}

// classify turns a non-2xx response into an APIError, inspecting the JSON
// payload for a reason or message when there is one.
func classify(status int, endpoint string, body []byte) *APIError {
	e := &APIError{Status: status, Endpoint: endpoint, Body: truncate(string(body), 2048)}
	e.Reason, e.Message = errorPayload(body)

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	if e.Reason == "" && e.Message == "" {
		e.Kind = KindRequestFailed
		e.Message = http.StatusText(status)
		if status == http.StatusNotFound {
			e.Kind = KindNotFound
		}
		return e
	}
	e.Kind = kindFor(e.Reason, e.Message)
	return e
}

// classifyReason maps a reason/message pair reported inside a 2xx mutation
// envelope.
func classifyReason(endpoint, reason, message string) *APIError {
	return &APIError{
		Kind:     kindFor(reason, message),
		Endpoint: endpoint,
		Reason:   reason,
		Message:  message,
	}
}

func kindFor(reason, message string) Kind {
	r := strings.ToUpper(reason)
	text := strings.ToLower(reason + " " + message)
	switch {
	case strings.Contains(text, "karma"):
		return KindInsufficientKarma
	case r == "RATELIMIT" || strings.Contains(text, "rate limit"):
		return KindRateLimited
	case r == "SUBREDDIT_NOTALLOWED" || r == "SUBREDDIT_NOEXIST":
		return KindInvalidSubreddit
	}
	return KindPlatformRejected
}

// errorPayload extracts reason and message from the shapes Reddit uses:
// {"reason","message"}, {"error","message"} and the
// {"json":{"errors":[[code, message, field]]}} mutation envelope.
func errorPayload(body []byte) (reason, message string) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", ""
	}

	reason = stringValue(raw["reason"])
	message = stringValue(raw["message"])
	if message == "" {
		message = stringValue(raw["explanation"])
	}
	if e, ok := raw["error"].(string); ok && reason == "" {
		reason = e
	}

	if j, ok := raw["json"].(map[string]any); ok {
		if r, m, ok := firstEnvelopeError(j["errors"]); ok {
			return r, m
		}
	}
	return reason, message
}

func firstEnvelopeError(v any) (reason, message string, ok bool) {
	list, _ := v.([]any)
	if len(list) == 0 {
		return "", "", false
	}
	entry, _ := list[0].([]any)
	if len(entry) == 0 {
		return "", "", false
	}
	reason = stringValue(entry[0])
	if len(entry) > 1 {
		message = stringValue(entry[1])
	}
	return reason, message, true
}

// UserMessage renders an error for display next to a failed destination.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	detail := ""
	if errors.As(err, &apiErr) {
		detail = apiErr.Message
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		if detail != "" {
			return "Reddit rate limit reached: " + detail
		}
		return "Reddit rate limit reached, try again later"
	case errors.Is(err, ErrInsufficientKarma):
		return "Your account does not have enough karma to post in this subreddit"
	case errors.Is(err, ErrInvalidSubreddit):
		return "This subreddit does not exist or does not allow this kind of post"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTokenRefresh):
		return "Reddit authorization expired, reconnect the account"
	case errors.Is(err, ErrNotFound):
		return "The post could not be found on Reddit"
	case errors.Is(err, ErrPlatformRejected):
		if detail != "" {
			return "Reddit rejected the post: " + detail
		}
		return "Reddit rejected the post"
	}
	return err.Error()
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return fmt.Sprintf("%v", s)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
