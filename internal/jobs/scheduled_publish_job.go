package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/redditflow/internal/service"
)

// ScheduledPublishJob sweeps due scheduled posts. It backs up the queued
// tasks, catching posts whose task was lost or never enqueued.
type ScheduledPublishJob struct {
	scheduled service.ScheduledPostService
	timeout   time.Duration
	running   atomic.Bool
}

func NewScheduledPublishJob(scheduled service.ScheduledPostService) *ScheduledPublishJob {
	return &ScheduledPublishJob{
		scheduled: scheduled,
		timeout:   10 * time.Minute,
	}
}

func (j *ScheduledPublishJob) PublishDuePosts() {
	if !j.running.CompareAndSwap(false, true) {
		slog.Info("scheduled sweep still running, skipping tick")
		return
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.scheduled.PublishScheduledPosts(ctx); err != nil {
		slog.Info(err.Error())
	}
}
