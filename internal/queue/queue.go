package queue

import (
	"encoding/json"
	"strconv"

	"github.com/hibiken/asynq"
)

const TaskTypePublishScheduled = "post:publish_scheduled"

type PublishScheduledPayload struct {
	PostID int64 `json:"post_id"`
}

func NewPublishScheduledTask(postID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishScheduledPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishScheduled, payload), nil
}

// taskID is stable per post so rescheduling the same post never queues it twice.
func taskID(postID int64) string {
	return "publish-post-" + strconv.FormatInt(postID, 10)
}
