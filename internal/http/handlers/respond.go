package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "gravado/internal/log"
	"gravado/internal/domain"
)

func ok(c *fiber.Ctx, body any) error {
	return c.JSON(body)
}

func created(c *fiber.Ctx, body any) error {
	return c.Status(fiber.StatusCreated).JSON(body)
}

// fail maps a domain error kind to an HTTP status and a sanitized JSON
// body. Internal errors log the wrapped cause and expose nothing.
func fail(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nf.Error()})
	}
	var ae *domain.AuthorizationError
	if errors.As(err, &ae) {
		applog.Security(c, "access.denied", map[string]any{"reason": ae.Reason})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ae.Error()})
	}
	var it *domain.IllegalTransitionError
	if errors.As(err, &it) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": it.Error()})
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ce.Error()})
	}
	var ci *domain.ConfigurationInconsistencyError
	if errors.As(err, &ci) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": ci.Error()})
	}
	if errors.Is(err, domain.ErrEmptyCart) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if errors.Is(err, domain.ErrNoPriceSource) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	applog.Error(c, "internal", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id < 1 {
		return 0, domain.Invalid(name, "must be a positive id")
	}
	return int64(id), nil
}
