package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/redditflow/internal/service"
)

type CronHandler struct {
	scheduled service.ScheduledPostService
}

func NewCronHandler(scheduled service.ScheduledPostService) *CronHandler {
	return &CronHandler{scheduled: scheduled}
}

// PublishScheduled runs one sweep. Per-post failures are part of a 200
// summary; only an infrastructure error answers 500.
func (h *CronHandler) PublishScheduled(c *fiber.Ctx) error {
	summary, err := h.scheduled.PublishScheduledPosts(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "scheduled publish failed",
		})
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}
