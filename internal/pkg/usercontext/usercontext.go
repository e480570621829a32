package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the verified user identity for a request. It is set
// by the auth middleware from the identity provider's token, never from
// client-controlled fields.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	AppUserID  string `json:"app_user_id"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

const contextKey = "USER_CONTEXT"

// Set attaches the user context to the request.
func Set(c *fiber.Ctx, ctx UserContext) {
	c.Locals(contextKey, ctx)
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(contextKey); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// GetUserID returns the current user's ID, or 0 if not logged in.
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
