package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/redditflow/internal/media"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/service"
	"github.com/maheshrc27/redditflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePosts struct {
	service.PostService
	created   *transfer.PostCreation
	scheduled *transfer.PostCreation
	userID    int64
	err       error
}

func (f *fakePosts) CreatePost(_ context.Context, userID int64, pc *transfer.PostCreation) ([]transfer.PostResult, error) {
	f.userID, f.created = userID, pc
	if f.err != nil {
		return nil, f.err
	}
	out := make([]transfer.PostResult, 0, len(pc.Targets))
	for _, t := range pc.Targets {
		out = append(out, transfer.PostResult{PostID: 1, AccountID: t.AccountID, Subreddit: t.Subreddit, Success: true})
	}
	return out, nil
}

func (f *fakePosts) SchedulePost(_ context.Context, userID int64, pc *transfer.PostCreation) (*transfer.ScheduledResult, error) {
	f.userID, f.scheduled = userID, pc
	if f.err != nil {
		return nil, f.err
	}
	return &transfer.ScheduledResult{PostID: 2, DelayMs: 1000, Scheduled: true, Status: models.PostStatusScheduled}, nil
}

func (f *fakePosts) PostInfo(_ context.Context, postID, userID int64) (*transfer.PostDetail, error) {
	if postID != 5 {
		return nil, service.ErrPostNotFound
	}
	return &transfer.PostDetail{Post: &models.Post{ID: 5, UserID: userID}}, nil
}

type fakeUploader struct {
	fail bool
	got  []media.File
}

func (u *fakeUploader) Upload(_ context.Context, f media.File) media.Result {
	u.got = append(u.got, f)
	if u.fail {
		return media.Failed{Filename: f.Filename, Err: media.ErrUnsupportedType}
	}
	return media.Uploaded{URL: "https://cdn.test/" + f.Filename, Provider: "fake"}
}

func withUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func postApp(posts *fakePosts, uploader media.Uploader) *fiber.App {
	app := fiber.New()
	h := NewPostHandler(posts, uploader)
	app.Post("/posts", withUser("7"), h.CreatePost)
	app.Get("/posts/:id", withUser("7"), h.GetPost)
	return app
}

func TestCreatePostPublishesNow(t *testing.T) {
	posts := &fakePosts{}
	app := postApp(posts, &fakeUploader{})

	body := `{"title":"t","content":"c","posts":[{"account_id":1,"subreddit":"golang"},{"account_id":2,"subreddit":"rust"}]}`
	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Results []transfer.PostResult `json:"results"`
	}
	decode(t, resp, &out)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "rust", out.Results[1].Subreddit)
	assert.Equal(t, int64(7), posts.userID)
	assert.Nil(t, posts.scheduled)
}

func TestCreatePostSchedules(t *testing.T) {
	posts := &fakePosts{}
	app := postApp(posts, &fakeUploader{})

	body := `{"title":"t","posts":[{"account_id":1,"subreddit":"golang"}],"scheduled_for":"2030-01-02T15:04:05Z"}`
	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, posts.scheduled)
	assert.Equal(t, 2030, posts.scheduled.ScheduledFor.Year())
	assert.Nil(t, posts.created)
}

func TestCreatePostMapsServiceErrors(t *testing.T) {
	cases := map[error]int{
		service.ErrNoTargets:       http.StatusBadRequest,
		service.ErrScheduleInPast:  http.StatusBadRequest,
		service.ErrUnauthenticated: http.StatusUnauthorized,
		service.ErrDataStore:       http.StatusInternalServerError,
	}
	for serr, status := range cases {
		app := postApp(&fakePosts{err: serr}, &fakeUploader{})
		req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"posts":[]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, serr.Error())
	}
}

func multipartRequest(t *testing.T, data string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("data", data))
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreatePostMultipartUploadsMedia(t *testing.T) {
	posts := &fakePosts{}
	uploader := &fakeUploader{}
	app := postApp(posts, uploader)

	req := multipartRequest(t, `{"title":"pic","posts":[{"account_id":1,"subreddit":"pics"}]}`,
		map[string][]byte{"cat.png": []byte("png-bytes")})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, uploader.got, 1)
	assert.Equal(t, []byte("png-bytes"), uploader.got[0].Data)
	assert.Equal(t, []string{"https://cdn.test/cat.png"}, posts.created.MediaURLs)
}

func TestCreatePostMultipartDegradesToText(t *testing.T) {
	posts := &fakePosts{}
	app := postApp(posts, &fakeUploader{fail: true})

	req := multipartRequest(t, `{"title":"pic","posts":[{"account_id":1,"subreddit":"pics"}]}`,
		map[string][]byte{"notes.exe": []byte("MZ")})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Results     []transfer.PostResult `json:"results"`
		MediaErrors []mediaError          `json:"media_errors"`
	}
	decode(t, resp, &out)
	assert.Len(t, out.Results, 1)
	require.Len(t, out.MediaErrors, 1)
	assert.Equal(t, "notes.exe", out.MediaErrors[0].Filename)
	assert.Empty(t, posts.created.MediaURLs)
}

func TestGetPostNotFound(t *testing.T) {
	app := postApp(&fakePosts{}, &fakeUploader{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/9", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/posts/5", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakeReddit struct {
	service.RedditService
	err error
}

func (f *fakeReddit) Flairs(_ context.Context, _, _ int64, sub string) ([]reddit.Flair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []reddit.Flair{{ID: "f1", Text: sub}}, nil
}

func TestFlairsHandler(t *testing.T) {
	app := fiber.New()
	h := NewRedditHandler(&fakeReddit{})
	app.Get("/accounts/:id/flairs", withUser("7"), h.Flairs)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/accounts/1/flairs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/accounts/1/flairs?subreddit=r/Golang", nil))
	require.NoError(t, err)
	var flairs []reddit.Flair
	decode(t, resp, &flairs)
	assert.Equal(t, []reddit.Flair{{ID: "f1", Text: "golang"}}, flairs)
}

func TestFlairsHandlerRateLimited(t *testing.T) {
	app := fiber.New()
	h := NewRedditHandler(&fakeReddit{err: &reddit.APIError{Kind: reddit.KindRateLimited, Message: "slow down"}})
	app.Get("/accounts/:id/flairs", withUser("7"), h.Flairs)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/accounts/1/flairs?subreddit=golang", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var out map[string]string
	decode(t, resp, &out)
	assert.Equal(t, "Reddit rate limit reached: slow down", out["error"])
}

type fakeScheduled struct {
	service.ScheduledPostService
	summary *transfer.SweepSummary
	err     error
}

func (f *fakeScheduled) PublishScheduledPosts(context.Context) (*transfer.SweepSummary, error) {
	return f.summary, f.err
}

func TestCronHandler(t *testing.T) {
	app := fiber.New()
	app.Post("/ok", NewCronHandler(&fakeScheduled{summary: &transfer.SweepSummary{Processed: 3, Published: 2, Failed: 1}}).PublishScheduled)
	app.Post("/broken", NewCronHandler(&fakeScheduled{err: errors.New("db down")}).PublishScheduled)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var summary transfer.SweepSummary
	decode(t, resp, &summary)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/broken", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "db down")
}

func TestGetUserID(t *testing.T) {
	app := fiber.New()
	var got []int64
	record := func(c *fiber.Ctx) error {
		got = append(got, GetUserID(c))
		return nil
	}
	app.Get("/anon", record)
	app.Get("/user", withUser("42"), record)

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/anon", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/user", nil))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 42}, got)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errorStatus(service.ErrAccountNotFound))
	assert.Equal(t, http.StatusForbidden, errorStatus(service.ErrTokenRefreshFailed))
	assert.Equal(t, http.StatusUnprocessableEntity, errorStatus(&reddit.APIError{Kind: reddit.KindInsufficientKarma}))
	assert.Equal(t, http.StatusBadGateway, errorStatus(&reddit.APIError{Kind: reddit.KindRequestFailed, Status: 503}))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(errors.New("unknown")))
}
