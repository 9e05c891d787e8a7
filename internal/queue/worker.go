package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandlePublishScheduledTask publishes the post named in the payload. Target
// failures are recorded on the post and not retried; only store errors are.
func (w *Worker) HandlePublishScheduledTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishScheduledPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypePublishScheduled, err, asynq.SkipRetry)
	}
	if payload.PostID == 0 {
		return fmt.Errorf("%s payload has no post id: %w", TaskTypePublishScheduled, asynq.SkipRetry)
	}

	outcome, err := w.scheduled.PublishPost(ctx, payload.PostID)
	if err != nil {
		slog.Error("publish scheduled post failed", "post_id", payload.PostID, "error", err)
		return err
	}
	if outcome.Skipped {
		slog.Info("scheduled post not due or already handled", "post_id", payload.PostID)
		return nil
	}
	slog.Info("scheduled post task done", "post_id", payload.PostID, "status", outcome.Status)
	return nil
}
