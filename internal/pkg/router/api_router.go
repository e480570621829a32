package router

import (
	"fmt"
	"runtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/affirmly/affirmly-backend/app/controllers"
	"github.com/affirmly/affirmly-backend/internal/pkg/env"
	"github.com/affirmly/affirmly-backend/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:     120,
		Storage: limiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Webhook endpoint authenticates via shared secret, not user identity.
	v1.Post("/webhooks/billing", controllers.HandleBillingWebhook)

	// Everything below requires a verified identity token.
	authed := v1.Group("", middleware.AuthMiddleware())

	authed.Get("/user/profile", controllers.HandleGetUserProfile)
	authed.Patch("/user/profile", controllers.HandleUpdateUserProfile)
	authed.Post("/user/avatar", controllers.HandleUploadAvatar)
	authed.Delete("/user/avatar", controllers.HandleDeleteAvatar)
	authed.Delete("/user", controllers.HandleDeleteAccount)

	authed.Get("/affirmations", controllers.HandleListAffirmations)
	authed.Post("/affirmations", controllers.HandleCreateAffirmation)
	authed.Patch("/affirmations/:uuid", controllers.HandleUpdateAffirmation)
	authed.Delete("/affirmations/:uuid", controllers.HandleDeleteAffirmation)

	authed.Get("/subscription", controllers.HandleGetSubscription)
	authed.Post("/subscription/activate", controllers.HandleActivateSubscription)
	authed.Post("/subscription/cancel", controllers.HandleCancelSubscription)
	authed.Post("/subscription/resume", controllers.HandleResumeSubscription)
	authed.Post("/subscription/free", controllers.HandleSwitchToFree)
	authed.Get("/subscription/history", controllers.HandleGetBillingHistory)
}

// limiterStorage backs the rate limiter with Redis so limits survive restarts
// and apply across instances. Falls back to in-memory storage when Redis is
// not configured.
func limiterStorage() fiber.Storage {
	host := env.GetEnv("CACHE_HOST", "")
	if host == "" {
		return nil
	}
	return redis.New(redis.Config{
		Host:     host,
		Port:     atoiOr(env.GetEnv("CACHE_PORT", "6379"), 6379),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1,
		PoolSize: 10 * runtime.GOMAXPROCS(0),
	})
}

func atoiOr(s string, def int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}
