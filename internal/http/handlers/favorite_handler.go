package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gravado/internal/services"
)

type FavoriteHandler struct {
	Fav *services.FavoriteService
}

func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	out, err := h.Fav.List(currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *FavoriteHandler) Add(c *fiber.Ctx) error {
	quoteID, err := pathID(c, "quoteId")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Fav.Add(currentUser(c), quoteID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FavoriteHandler) Remove(c *fiber.Ctx) error {
	quoteID, err := pathID(c, "quoteId")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Fav.Remove(currentUser(c), quoteID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
