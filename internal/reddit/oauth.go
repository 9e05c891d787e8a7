package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var Scopes = []string{"identity", "submit", "read", "mysubreddits", "flair", "edit", "history"}

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *client) oauthConfig() *oauth2.Config {
	base := strings.TrimRight(c.cfg.AuthURL, "/")
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/api/v1/authorize",
			TokenURL:  base + "/api/v1/access_token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// oauthContext hands x/oauth2 an http client that carries the User-Agent
// Reddit requires on the token endpoint.
func (c *client) oauthContext(ctx context.Context) context.Context {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: userAgentTransport{base: base, userAgent: c.cfg.UserAgent},
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

func (c *client) GetAuthURL(state string) string {
	return c.oauthConfig().AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))
}

func (c *client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrOAuthExchange)
	}

	tok, err := c.oauthConfig().Exchange(c.oauthContext(ctx), code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", ErrOAuthExchange)
	}
	return c.toToken(tok, ""), nil
}

// RefreshToken trades a refresh token for a new access token. Reddit does not
// rotate refresh tokens, so the one passed in is kept when none comes back.
func (c *client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", ErrTokenRefresh)
	}

	src := c.oauthConfig().TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", ErrTokenRefresh)
	}
	return c.toToken(tok, refreshToken), nil
}

func (c *client) toToken(tok *oauth2.Token, fallbackRefresh string) *Token {
	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = fallbackRefresh
	}
	if out.ExpiresAt.IsZero() {
		out.ExpiresAt = c.now().Add(time.Hour)
	}
	return out
}

func (c *client) RevokeToken(ctx context.Context, token, hint string) error {
	form := url.Values{}
	form.Set("token", token)
	if hint != "" {
		form.Set("token_type_hint", hint)
	}
	_, err := c.do(ctx, request{
		method:   http.MethodPost,
		baseURL:  c.cfg.AuthURL,
		endpoint: "/api/v1/revoke_token",
		form:     form,
		basic:    true,
	}, nil)
	return err
}

func (c *client) ValidateAccessToken(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}
	_, err := c.GetUserInfo(ctx, accessToken)
	return err == nil
}

func (c *client) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	var info UserInfo
	_, err := c.do(ctx, request{method: http.MethodGet, endpoint: "/api/v1/me", token: accessToken}, &info)
	if err != nil {
		return nil, err
	}
	if info.Name == "" {
		return nil, &APIError{Kind: KindRequestFailed, Endpoint: "/api/v1/me", Message: "identity response missing name"}
	}
	return &info, nil
}
