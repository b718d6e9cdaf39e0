package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/apperr"
)

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeForbidden:
		return fiber.StatusForbidden
	case apperr.CodePolicyViolation, apperr.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case apperr.CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	message := "internal error"
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		message = ae.Message
	}
	return c.Status(statusFor(code)).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": message},
	})
}
