package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/auth"
)

// LocalUserID is the fiber locals key the auth middleware stores the caller
// id under; anything keying off the caller (handlers, rate limiting) reads it.
const (
	LocalUserID   = "userID"
	localUsername = "username"
)

// AuthRequired verifies the bearer credential and stashes the caller
// identity in request locals.
func AuthRequired(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.FromBearerHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		claims, err := verifier.Parse(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(localUsername, claims.Username)
		return c.Next()
	}
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
