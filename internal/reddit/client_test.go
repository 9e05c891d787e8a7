package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/ratelimit"
	"golang.org/x/time/rate"
)

type fakePublic struct {
	info  SubredditInfo
	posts []ListingPost
	err   error
	calls int
}

func (f *fakePublic) About(context.Context, string) (SubredditInfo, error) {
	f.calls++
	return f.info, f.err
}

func (f *fakePublic) Posts(context.Context, string, string, int) ([]ListingPost, error) {
	f.calls++
	return f.posts, f.err
}

func testConfig(url string) config.Reddit {
	return config.Reddit{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/callback",
		UserAgent:    "redditflow-test/1.0",
		APIURL:       url,
		AuthURL:      url,
		PublicURL:    url,
	}
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) (*client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithPacer(rate.NewLimiter(rate.Inf, 1)),
		WithLimiter(ratelimit.NewMemoryLimiter(ratelimit.DefaultLimits())),
		withPublicReader(&fakePublic{}),
	}
	c := NewClient(testConfig(srv.URL), 5*time.Second, append(base, opts...)...).(*client)
	return c, srv
}
