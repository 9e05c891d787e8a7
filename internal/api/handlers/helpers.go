package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	s, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(s, 10, 64)
	return userID
}

func paramID(c *fiber.Ctx, name string) int64 {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// errorStatus maps service and platform errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoTargets),
		errors.Is(err, service.ErrScheduleInPast):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, reddit.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrTokenMissing),
		errors.Is(err, service.ErrTokenRefreshFailed),
		errors.Is(err, reddit.ErrUnauthorized),
		errors.Is(err, reddit.ErrOAuthExchange):
		return fiber.StatusForbidden
	case errors.Is(err, reddit.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, reddit.ErrInsufficientKarma),
		errors.Is(err, reddit.ErrInvalidSubreddit),
		errors.Is(err, reddit.ErrPlatformRejected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, reddit.ErrRequestFailed):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrDataStore):
		return "something went wrong"
	case errors.Is(err, service.ErrTokenMissing), errors.Is(err, service.ErrTokenRefreshFailed):
		return "Reddit authorization expired, reconnect the account"
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoTargets),
		errors.Is(err, service.ErrScheduleInPast),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrPostNotFound):
		return err.Error()
	}
	var apiErr *reddit.APIError
	if errors.As(err, &apiErr) || errors.Is(err, reddit.ErrOAuthExchange) || errors.Is(err, reddit.ErrUnauthorized) {
		return reddit.UserMessage(err)
	}
	return "something went wrong"
}

func sendError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": errorMessage(err),
	})
}
