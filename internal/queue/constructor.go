package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/redditflow/internal/service"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer queues delayed publishes of scheduled posts.
type Enqueuer struct {
	client   taskEnqueuer
	maxRetry int
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client, maxRetry: 3}
}

func (e *Enqueuer) EnqueueScheduledPost(ctx context.Context, postID int64, at time.Time) error {
	task, err := NewPublishScheduledTask(postID)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID(postID)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(e.maxRetry))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("publish task already queued", "post_id", postID)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("publish task queued", "post_id", postID, "task_id", info.ID, "process_at", at)
	return nil
}

// Worker runs queued publish tasks.
type Worker struct {
	scheduled service.ScheduledPostService
}

func NewWorker(scheduled service.ScheduledPostService) *Worker {
	return &Worker{scheduled: scheduled}
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishScheduled, w.HandlePublishScheduledTask)
	return mux
}
