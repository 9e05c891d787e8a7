package service

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/maheshrc27/redditflow/internal/ratelimit"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAuthURLCarriesSignedState(t *testing.T) {
	svc := NewPlatformService(testConfig(), newFakeAccounts(), newFakeClient())

	_, err := svc.GetAuthURL(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	raw, err := svc.GetAuthURL(context.Background(), userID)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	claims, err := utils.ValidateStateToken(testSecret, u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(userID, 10), claims.UserID)
}

func TestCallbackStoresEncryptedAccount(t *testing.T) {
	client := newFakeClient()
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	client.exchanged = &reddit.Token{AccessToken: "acc", RefreshToken: "ref", ExpiresAt: expires}
	client.userInfo = &reddit.UserInfo{ID: "abc1", Name: "spez"}
	accounts := newFakeAccounts()
	svc := NewPlatformService(testConfig(), accounts, client)

	state, err := utils.GenerateStateToken(testSecret, "7", time.Minute)
	require.NoError(t, err)

	acc, err := svc.Callback(context.Background(), "the-code", state)
	require.NoError(t, err)
	assert.NotZero(t, acc.ID)
	assert.Equal(t, userID, acc.UserID)
	assert.Equal(t, "spez", acc.AccountName)
	assert.Equal(t, "abc1", acc.AccountID)

	stored := accounts.stored(acc.ID)
	assert.Equal(t, "acc", decrypt(t, stored.AccessToken))
	assert.Equal(t, "ref", decrypt(t, stored.RefreshToken))
	assert.True(t, stored.TokenExpiresAt.Equal(expires))
}

func TestCallbackRejects(t *testing.T) {
	client := newFakeClient()
	client.exchanged = &reddit.Token{AccessToken: "acc"}
	client.userInfo = &reddit.UserInfo{ID: "abc1", Name: "spez"}
	accounts := newFakeAccounts()
	svc := NewPlatformService(testConfig(), accounts, client)
	ctx := context.Background()

	_, err := svc.Callback(ctx, "", "state")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Callback(ctx, "code", "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	session, err := utils.GenerateToken(testSecret, "7", time.Minute)
	require.NoError(t, err)
	_, err = svc.Callback(ctx, "code", session)
	assert.ErrorIs(t, err, ErrUnauthenticated, "a session token is not a valid state")

	state, err := utils.GenerateStateToken(testSecret, "7", time.Minute)
	require.NoError(t, err)
	_, err = svc.Callback(ctx, "code", state)
	assert.ErrorIs(t, err, reddit.ErrOAuthExchange, "missing refresh token")

	all, _ := accounts.ListByUserID(ctx, userID)
	assert.Empty(t, all)
}

func TestDeleteAccountRevokesAndRemoves(t *testing.T) {
	client := newFakeClient()
	accounts := newFakeAccounts(account(t, 1, userID, "tok-a"), account(t, 2, 99, "tok-b"))
	svc := NewPlatformService(testConfig(), accounts, client)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, userID, 2), ErrAccountNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, userID, 0), ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, userID, 1))
	assert.Equal(t, []string{"refresh-tok-a"}, client.revoked)
	assert.Equal(t, []int64{1}, accounts.removed)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedditServiceUsesOwnedAccount(t *testing.T) {
	client := newFakeClient()
	accounts := newFakeAccounts(account(t, 1, userID, "stale"), account(t, 2, 99, "tok-b"))
	tokens := NewTokenService(testConfig(), accounts, client)
	limiter := ratelimit.NewMemoryLimiter(ratelimit.DefaultLimits())
	svc := NewRedditService(accounts, tokens, client, limiter)
	ctx := context.Background()

	subs, err := svc.Subreddits(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "golang", subs[0].DisplayName)
	assert.Equal(t, 1, client.refreshCalls)

	_, err = svc.Subreddits(ctx, userID, 2)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	remaining, err := svc.PostsRemaining(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, ratelimit.DefaultLimits().PostDailyMax, remaining.Daily)

	limiter.CheckLimit(ctx, "1", ratelimit.KindPost)
	remaining, err = svc.PostsRemaining(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, ratelimit.DefaultLimits().PostDailyMax-1, remaining.Daily)
}
