package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/auth"
)

// ErrorHandler answers every error returned by a handler as JSON.
// Unexpected errors are logged and hidden from the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if status, _ := auth.StatusFor(err); status == fiber.StatusInternalServerError {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}
	}

	return auth.WriteError(c, err)
}
