package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/service"
)

type PlatformHandler struct {
	ps  service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		cfg: cfg,
	}
}

// AddRedditAccount sends the logged in user to Reddit's consent page.
func (h *PlatformHandler) AddRedditAccount(c *fiber.Ctx) error {
	authURL, err := h.ps.GetAuthURL(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		return c.Redirect(fmt.Sprintf("%s/dashboard/accounts?error=%s", h.cfg.FrontendURL, url.QueryEscape(reason)), fiber.StatusTemporaryRedirect)
	}

	if _, err := h.ps.Callback(c.Context(), c.Query("code"), c.Query("state")); err != nil {
		return sendError(c, err)
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListAccounts(c *fiber.Ctx) error {
	accountList, err := h.ps.List(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DeleteAccount(c *fiber.Ctx) error {
	if err := h.ps.Delete(c.Context(), GetUserID(c), paramID(c, "id")); err != nil {
		return sendError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
