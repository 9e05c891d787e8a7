package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/redditflow/internal/ratelimit"
)

type request struct {
	method   string
	baseURL  string
	endpoint string
	token    string
	query    url.Values
	form     url.Values
	basic    bool
}

// do runs one call against the platform. Non-2xx replies become an
// *APIError; a 2xx body is decoded into out when out is non-nil.
func (c *client) do(ctx context.Context, r request, out any) ([]byte, error) {
	if err := c.throttle(ctx, r.endpoint); err != nil {
		return nil, err
	}

	base := r.baseURL
	if base == "" {
		base = c.cfg.APIURL
	}
	u := strings.TrimRight(base, "/") + r.endpoint
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", r.endpoint, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.basic {
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	} else if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, &APIError{Kind: KindRequestFailed, Endpoint: r.endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &APIError{Kind: KindRequestFailed, Status: resp.StatusCode, Endpoint: r.endpoint, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp.StatusCode, r.endpoint, raw)
		slog.Info(apiErr.Error())
		return nil, apiErr
	}

	if out != nil && len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("decode %s: %w", r.endpoint, err)
		}
	}
	return raw, nil
}

// throttle applies the shared api budget and then the local pacer. Short
// budget waits are slept through; longer ones fail as rate limited.
func (c *client) throttle(ctx context.Context, endpoint string) error {
	for attempt := 0; attempt < 2; attempt++ {
		d := c.limiter.CheckLimit(ctx, apiLimiterKey, ratelimit.KindAPI)
		if d.Allowed {
			break
		}
		if d.Wait > maxInlineWait || attempt == 1 {
			return &APIError{Kind: KindRateLimited, Endpoint: endpoint, Message: d.Message(), RetryAfter: d.Wait}
		}
		if err := sleepCtx(ctx, d.Wait); err != nil {
			return err
		}
	}
	return c.pacer.Wait(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
