package reddit

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAuthURL(t *testing.T) {
	c, srv := newTestClient(t, http.NotFoundHandler())

	u, err := url.Parse(c.GetAuthURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/v1/authorize", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "permanent", q.Get("duration"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "submit")
}

func TestExchangeCode(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/access_token", r.URL.Path)
		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", id)
		assert.Equal(t, "client-secret", secret)
		assert.Equal(t, "redditflow-test/1.0", r.Header.Get("User-Agent"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"acc","refresh_token":"ref","token_type":"bearer","expires_in":3600,"scope":"submit"}`))
	}))

	before := time.Now()
	tok, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "acc", tok.AccessToken)
	assert.Equal(t, "ref", tok.RefreshToken)
	assert.WithinDuration(t, before.Add(time.Hour), tok.ExpiresAt, 5*time.Second)
}

func TestExchangeCodeFailure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))

	_, err := c.ExchangeCode(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrOAuthExchange)

	_, err = c.ExchangeCode(context.Background(), "")
	assert.ErrorIs(t, err, ErrOAuthExchange)
}

func TestRefreshToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ref", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-acc","token_type":"bearer","expires_in":86400}`))
	}))

	tok, err := c.RefreshToken(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, "new-acc", tok.AccessToken)
	assert.Equal(t, "ref", tok.RefreshToken)
}

func TestRefreshTokenMissingAccessToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"bearer"}`))
	}))

	_, err := c.RefreshToken(context.Background(), "ref")
	assert.ErrorIs(t, err, ErrTokenRefresh)

	_, err = c.RefreshToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenRefresh)
}

func TestValidateAccessTokenAndUserInfo(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthorized","error":401}`))
			return
		}
		w.Write([]byte(`{"name":"spez","id":"1w72"}`))
	}))

	assert.True(t, c.ValidateAccessToken(context.Background(), "good"))
	assert.False(t, c.ValidateAccessToken(context.Background(), "bad"))
	assert.False(t, c.ValidateAccessToken(context.Background(), ""))

	info, err := c.GetUserInfo(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "spez", info.Name)
	assert.Equal(t, "1w72", info.ID)

	_, err = c.GetUserInfo(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevokeToken(t *testing.T) {
	var got url.Values
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/revoke_token", r.URL.Path)
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.RevokeToken(context.Background(), "ref", "refresh_token"))
	assert.Equal(t, "ref", got.Get("token"))
	assert.Equal(t, "refresh_token", got.Get("token_type_hint"))
}
