package api

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/api/handlers"
	"github.com/maheshrc27/redditflow/internal/api/middleware"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Platform *handlers.PlatformHandler
	Post     *handlers.PostHandler
	Reddit   *handlers.RedditHandler
	Cron     *handlers.CronHandler
}

func RegisterRoutes(app *fiber.App, cfg config.Config, h Handlers) {
	authMiddleware := middleware.NewAuthMiddleware(cfg)

	app.Get("/login", h.Auth.Login)
	app.Get("/login/callback", h.Auth.LoginCallbackHandler)
	app.Post("/logout", h.Auth.Logout)

	app.Get("/auth/reddit", authMiddleware.AuthMiddleware(), h.Platform.AddRedditAccount)
	app.Get("/auth/reddit/callback", h.Platform.CallbackHandler)

	app.Post("/cron/publish-scheduled", middleware.CronGuard(cfg), h.Cron.PublishScheduled)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/user/info", h.User.GetUserInfo)
	api.Delete("/user", h.User.RemoveUser)

	api.Post("/posts", h.Post.CreatePost)
	api.Get("/posts", h.Post.ListPosts)
	api.Get("/posts/:id", h.Post.GetPost)
	api.Delete("/posts/:id", h.Post.RemovePost)

	api.Get("/accounts", h.Platform.ListAccounts)
	api.Delete("/accounts/:id", h.Platform.DeleteAccount)
	api.Get("/accounts/:id/subreddits", h.Reddit.Subreddits)
	api.Get("/accounts/:id/flairs", h.Reddit.Flairs)
	api.Get("/accounts/:id/insights", h.Reddit.Insights)
	api.Get("/accounts/:id/remaining", h.Reddit.PostsRemaining)
	api.Get("/accounts/:id/posts/:postId/stats", h.Reddit.PostStats)
	api.Get("/accounts/:id/posts/:postId/comments", h.Reddit.Comments)
	api.Delete("/accounts/:id/posts/:postId", h.Reddit.DeletePost)
	api.Post("/accounts/:id/comments", h.Reddit.Reply)
}
