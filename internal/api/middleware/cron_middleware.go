package middleware

import (
	"crypto/subtle"
	"log/slog"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/redditflow/configs"
)

// CronGuard protects the trigger endpoint: a missing or wrong bearer secret
// is 401, a caller outside CRON_ALLOWED_IPS is 403. An empty allow-list lets
// any address through. With no secret configured every call is refused.
func CronGuard(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || cfg.CronSecret == "" ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(cfg.CronSecret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		if len(cfg.CronAllowedIPs) > 0 && !slices.Contains(cfg.CronAllowedIPs, c.IP()) {
			slog.Warn("cron trigger from disallowed address", "ip", c.IP())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}
		return c.Next()
	}
}
