package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/pkg/utils"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() config.Config {
	return config.Config{SecretKey: testSecret, PublishBatchSize: 2}
}

func encrypt(t *testing.T, s string) string {
	t.Helper()
	enc, err := utils.Encrypt(s, []byte(testSecret))
	require.NoError(t, err)
	return enc
}

func decrypt(t *testing.T, s string) string {
	t.Helper()
	dec, err := utils.Decrypt(s, []byte(testSecret))
	require.NoError(t, err)
	return dec
}

// fakeAccounts

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	nextID   int64
	setCalls int
	removed  []int64
	getErr   error
	// onSetToken runs before the compare-and-swap, letting a test simulate a
	// concurrent writer.
	onSetToken func(stored *models.Account)
}

func newFakeAccounts(accs ...*models.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: map[int64]*models.Account{}, nextID: 100}
	for _, a := range accs {
		cp := *a
		f.accounts[a.ID] = &cp
	}
	return f
}

func (f *fakeAccounts) stored(id int64) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.accounts[id]
	return &cp
}

func (f *fakeAccounts) Create(_ context.Context, _ *sql.Tx, acc *models.Account) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *acc
	cp.ID = f.nextID
	f.accounts[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	acc, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeAccounts) ListByUserID(_ context.Context, userID int64) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) ListExpiring(_ context.Context, before time.Time) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Account
	for _, a := range f.accounts {
		if a.RefreshToken != "" && a.TokenExpiresAt.Before(before) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) CheckByUserID(_ context.Context, accountID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	return ok && a.UserID == userID, nil
}

func (f *fakeAccounts) SetToken(_ context.Context, accountID int64, oldAccessToken string, acc *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	stored, ok := f.accounts[accountID]
	if !ok {
		return errors.New("no such account")
	}
	if f.onSetToken != nil {
		f.onSetToken(stored)
	}
	if stored.AccessToken != oldAccessToken {
		return repository.ErrTokenConflict
	}
	stored.AccessToken = acc.AccessToken
	stored.RefreshToken = acc.RefreshToken
	stored.TokenExpiresAt = acc.TokenExpiresAt
	return nil
}

func (f *fakeAccounts) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, id)
	f.removed = append(f.removed, id)
	return nil
}

// fakePosts

type fakePosts struct {
	mu       sync.Mutex
	posts    map[int64]*models.Post
	nextID   int64
	claimErr map[int64]error
	// claimed holds ids another runner already took.
	claimed map[int64]bool
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{posts: map[int64]*models.Post{}, claimErr: map[int64]error{}, claimed: map[int64]bool{}}
	for _, p := range posts {
		cp := *p
		f.posts[p.ID] = &cp
		f.nextID = max(f.nextID, p.ID)
	}
	return f
}

func (f *fakePosts) get(id int64) *models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.posts[id]
	return &cp
}

func (f *fakePosts) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *post
	cp.ID = f.nextID
	f.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakePosts) GetByID(_ context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) GetByUserID(_ context.Context, userID int64) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePosts) ListDue(_ context.Context, now time.Time, limit int) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(*out[j].ScheduledFor) {
			return out[i].ScheduledFor.Before(*out[j].ScheduledFor)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) ClaimScheduled(_ context.Context, id int64, now time.Time) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.claimErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.posts[id]
	if !ok || f.claimed[id] || p.Status != models.PostStatusScheduled || p.ScheduledFor.After(now) {
		return nil, nil
	}
	p.Status = models.PostStatusPending
	cp := *p
	return &cp, nil
}

func (f *fakePosts) UpdateStatus(_ context.Context, id int64, status, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return errors.New("no such post")
	}
	p.Status = status
	p.ErrorMessage = errorMessage
	return nil
}

func (f *fakePosts) CheckByUserID(_ context.Context, postID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	return ok && p.UserID == userID, nil
}

func (f *fakePosts) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

// fakeTargets

type fakeTargets struct {
	mu      sync.Mutex
	targets []*models.PostTarget
}

func (f *fakeTargets) Create(_ context.Context, pt *models.PostTarget) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *pt
	cp.ID = int64(len(f.targets) + 1)
	f.targets = append(f.targets, &cp)
	return cp.ID, nil
}

func (f *fakeTargets) ListByPostID(_ context.Context, postID int64) ([]*models.PostTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PostTarget
	for _, t := range f.targets {
		if t.PostID == postID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTargets) LatestByPostID(ctx context.Context, postID int64) ([]*models.PostTarget, error) {
	return f.ListByPostID(ctx, postID)
}

func (f *fakeTargets) all() []*models.PostTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.PostTarget(nil), f.targets...)
}

// fakeDestinations

type fakeDestinations struct {
	mu    sync.Mutex
	dests []*models.PostDestination
}

func (f *fakeDestinations) Create(_ context.Context, _ *sql.Tx, d *models.PostDestination) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.dests = append(f.dests, &cp)
	return nil
}

func (f *fakeDestinations) ListByPostID(_ context.Context, postID int64) ([]*models.PostDestination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PostDestination
	for _, d := range f.dests {
		if d.PostID == postID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// fakeClient

type submitCall struct {
	Token string
	In    reddit.SubmitInput
}

type fakeClient struct {
	reddit.Client

	mu           sync.Mutex
	validTokens  map[string]bool
	refreshCalls int
	refreshErr   error
	refreshDelay time.Duration
	newAccess    string
	flairs       map[string][]reddit.Flair
	flairErr     map[string]error
	submitErr    map[string]error
	submitPanic  map[string]bool
	submits      []submitCall
	revoked      []string
	exchanged    *reddit.Token
	userInfo     *reddit.UserInfo
	meErr        error
	meCalls      int
	reserveErr   map[string]error
	reserves     []string
}

func newFakeClient(valid ...string) *fakeClient {
	c := &fakeClient{
		validTokens: map[string]bool{},
		newAccess:   "fresh-access",
		flairs:      map[string][]reddit.Flair{},
		flairErr:    map[string]error{},
		submitErr:   map[string]error{},
		submitPanic: map[string]bool{},
		reserveErr:  map[string]error{},
	}
	for _, v := range valid {
		c.validTokens[v] = true
	}
	return c
}

func (c *fakeClient) submitCalls() []submitCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]submitCall(nil), c.submits...)
}

func (c *fakeClient) GetAuthURL(state string) string {
	return "https://reddit.test/authorize?state=" + state
}

func (c *fakeClient) ExchangeCode(_ context.Context, code string) (*reddit.Token, error) {
	if c.exchanged == nil {
		return nil, reddit.ErrOAuthExchange
	}
	return c.exchanged, nil
}

func (c *fakeClient) GetUserInfo(_ context.Context, token string) (*reddit.UserInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meCalls++
	switch {
	case c.meErr != nil:
		return nil, c.meErr
	case c.userInfo != nil:
		return c.userInfo, nil
	case c.validTokens[token]:
		return &reddit.UserInfo{ID: "u1", Name: "poster"}, nil
	}
	return nil, &reddit.APIError{Kind: reddit.KindUnauthorized, Status: 401}
}

func (c *fakeClient) RevokeToken(_ context.Context, token, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked = append(c.revoked, token)
	return nil
}

func (c *fakeClient) ValidateAccessToken(_ context.Context, token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validTokens[token]
}

func (c *fakeClient) RefreshToken(_ context.Context, refreshToken string) (*reddit.Token, error) {
	if c.refreshDelay > 0 {
		time.Sleep(c.refreshDelay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshCalls++
	if c.refreshErr != nil {
		return nil, c.refreshErr
	}
	c.validTokens[c.newAccess] = true
	return &reddit.Token{
		AccessToken:  c.newAccess,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (c *fakeClient) GetFlairOptions(_ context.Context, token, subreddit string) ([]reddit.Flair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validTokens[token] {
		return nil, &reddit.APIError{Kind: reddit.KindUnauthorized, Status: 401}
	}
	if err := c.flairErr[subreddit]; err != nil {
		return nil, err
	}
	return c.flairs[subreddit], nil
}

func (c *fakeClient) ReservePost(_ context.Context, accountID, subreddit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserves = append(c.reserves, accountID+"/"+subreddit)
	return c.reserveErr[subreddit]
}

func (c *fakeClient) SubmitPost(_ context.Context, token string, in reddit.SubmitInput) (*reddit.SubmitResult, error) {
	c.mu.Lock()
	c.submits = append(c.submits, submitCall{Token: token, In: in})
	panics := c.submitPanic[in.Subreddit]
	err := c.submitErr[in.Subreddit]
	valid := c.validTokens[token]
	c.mu.Unlock()

	if panics {
		panic("submit exploded")
	}
	if !valid {
		return nil, &reddit.APIError{Kind: reddit.KindUnauthorized, Status: 401}
	}
	if err != nil {
		return nil, err
	}
	return &reddit.SubmitResult{
		ID:   "abc123",
		Name: "t3_abc123",
		URL:  "https://www.reddit.com/r/" + in.Subreddit + "/comments/abc123/",
		Kind: "self",
	}, nil
}

func (c *fakeClient) GetSubreddits(_ context.Context, token string) ([]reddit.Subreddit, error) {
	if !c.ValidateAccessToken(context.Background(), token) {
		return nil, &reddit.APIError{Kind: reddit.KindUnauthorized, Status: 401}
	}
	return []reddit.Subreddit{{ID: "2qh1i", Name: "t5_2qh1i", DisplayName: "golang"}}, nil
}

// fixture wires the post pipeline with fakes around a single user.

type fixture struct {
	accounts *fakeAccounts
	posts    *fakePosts
	targets  *fakeTargets
	dests    *fakeDestinations
	client   *fakeClient
	tokens   TokenService
	svc      *postService
	enqueued []int64
}

func (f *fixture) EnqueueScheduledPost(_ context.Context, postID int64, _ time.Time) error {
	f.enqueued = append(f.enqueued, postID)
	return nil
}

func account(t *testing.T, id, userID int64, access string) *models.Account {
	return &models.Account{
		ID:             id,
		UserID:         userID,
		Platform:       models.PlatformReddit,
		AccountName:    "poster",
		AccessToken:    encrypt(t, access),
		RefreshToken:   encrypt(t, "refresh-"+access),
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
}

func newFixture(t *testing.T, client *fakeClient, accs ...*models.Account) *fixture {
	t.Helper()
	f := &fixture{
		accounts: newFakeAccounts(accs...),
		posts:    newFakePosts(),
		targets:  &fakeTargets{},
		dests:    &fakeDestinations{},
		client:   client,
	}
	f.tokens = NewTokenService(testConfig(), f.accounts, client)
	f.svc = NewPostService(nil, f.posts, f.targets, f.dests, f.accounts, f.tokens, client, f).(*postService)
	f.svc.withTx = func(_ context.Context, fn func(*sql.Tx) error) error { return fn(nil) }
	return f
}
