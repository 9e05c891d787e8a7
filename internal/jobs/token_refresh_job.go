package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/redditflow/internal/service"
)

const refreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	tokens  service.TokenService
	window  time.Duration
	timeout time.Duration
}

func NewTokenRefreshJob(tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		tokens:  tokens,
		window:  refreshWindow,
		timeout: 5 * time.Minute,
	}
}

// RefreshTokens refreshes every account whose token expires within the next
// half hour.
func (j *TokenRefreshJob) RefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.tokens.RefreshExpiring(ctx, j.window)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		slog.Info("refreshed expiring tokens", "count", n)
	}
}
