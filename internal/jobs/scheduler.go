package job

import (
	"fmt"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/robfig/cron"
)

// NewScheduler registers the periodic jobs. The caller starts and stops it.
func NewScheduler(cfg config.Config, refresh *TokenRefreshJob, publish *ScheduledPublishJob) (*cron.Cron, error) {
	c := cron.New()
	if err := c.AddFunc(cfg.TokenRefreshSpec, refresh.RefreshTokens); err != nil {
		return nil, fmt.Errorf("token refresh schedule %q: %w", cfg.TokenRefreshSpec, err)
	}
	if err := c.AddFunc(cfg.ScheduleSpec, publish.PublishDuePosts); err != nil {
		return nil, fmt.Errorf("publish schedule %q: %w", cfg.ScheduleSpec, err)
	}
	return c, nil
}
