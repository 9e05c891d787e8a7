package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/service"
)

// RedditHandler serves Reddit reads and moderation actions for one of the
// user's connected accounts, named by the :id route parameter.
type RedditHandler struct {
	s service.RedditService
}

func NewRedditHandler(s service.RedditService) *RedditHandler {
	return &RedditHandler{s: s}
}

func (h *RedditHandler) Subreddits(c *fiber.Ctx) error {
	subs, err := h.s.Subreddits(c.Context(), GetUserID(c), paramID(c, "id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(subs)
}

func (h *RedditHandler) Flairs(c *fiber.Ctx) error {
	sub := reddit.NormalizeSubreddit(c.Query("subreddit"))
	if sub == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "subreddit is required",
		})
	}
	flairs, err := h.s.Flairs(c.Context(), GetUserID(c), paramID(c, "id"), sub)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(flairs)
}

func (h *RedditHandler) PostStats(c *fiber.Ctx) error {
	stats, err := h.s.PostStats(c.Context(), GetUserID(c), paramID(c, "id"), c.Params("postId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(stats)
}

func (h *RedditHandler) DeletePost(c *fiber.Ctx) error {
	if err := h.s.DeletePost(c.Context(), GetUserID(c), paramID(c, "id"), c.Params("postId")); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *RedditHandler) Comments(c *fiber.Ctx) error {
	comments, err := h.s.Comments(c.Context(), GetUserID(c), paramID(c, "id"), c.Params("postId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(comments)
}

type replyRequest struct {
	ParentID string `json:"parent_id"`
	Text     string `json:"text"`
}

func (h *RedditHandler) Reply(c *fiber.Ctx) error {
	var req replyRequest
	if err := c.BodyParser(&req); err != nil || req.ParentID == "" || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "parent_id and text are required",
		})
	}
	comment, err := h.s.Reply(c.Context(), GetUserID(c), paramID(c, "id"), req.ParentID, req.Text)
	if err != nil {
		return sendError(c, err)
	}
	if comment.ID == "" {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Reddit did not accept the reply",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *RedditHandler) Insights(c *fiber.Ctx) error {
	sub := reddit.NormalizeSubreddit(c.Query("subreddit"))
	if sub == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "subreddit is required",
		})
	}
	insights, err := h.s.Insights(c.Context(), GetUserID(c), paramID(c, "id"), sub)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(insights)
}

func (h *RedditHandler) PostsRemaining(c *fiber.Ctx) error {
	remaining, err := h.s.PostsRemaining(c.Context(), GetUserID(c), paramID(c, "id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(remaining)
}
