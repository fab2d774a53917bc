package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Bind parses the JSON body into v and validates it.
// Errors are fiber errors with status 400 so the error handler answers them as is.
func Bind(c *fiber.Ctx, validate *validator.Validate, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}

			return fiber.NewError(fiber.StatusBadRequest, "invalid "+strings.Join(fields, ", "))
		}

		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return nil
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return uint64(id), nil
}

// Page reads page and pageSize query parameters and returns limit and offset.
func Page(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize = c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return page, pageSize
}
