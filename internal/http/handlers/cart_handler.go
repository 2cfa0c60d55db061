package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"gravado/internal/domain"
	applog "gravado/internal/log"
	"gravado/internal/services"
	"gravado/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	view, err := h.Cart.View(identity(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, view)
}

type addItemBody struct {
	EntryID        int64           `json:"entry_id"`
	Quantity       int             `json:"quantity"`
	EngravingText  string          `json:"engraving_text"`
	MountingOption string          `json:"mounting_option"`
	CustomOptions  json.RawMessage `json:"custom_options"`
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var body addItemBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	text, okText := validate.EngravingText(body.EngravingText)
	if !okText {
		return fail(c, domain.Invalid("engraving_text", "must be at most 255 characters"))
	}
	view, err := h.Cart.AddItem(identity(c), services.AddItemRequest{
		EntryID:        body.EntryID,
		Quantity:       body.Quantity,
		EngravingText:  text,
		MountingOption: body.MountingOption,
		CustomOptions:  body.CustomOptions,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, view)
}

type updateItemBody struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	itemID, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body updateItemBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	view, err := h.Cart.UpdateItemQuantity(identity(c), itemID, body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, view)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	itemID, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Cart.RemoveItem(identity(c), itemID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type discountBody struct {
	Code string `json:"code"`
}

func (h *CartHandler) ApplyDiscount(c *fiber.Ctx) error {
	var body discountBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	code, okCode := validate.Code(body.Code)
	if !okCode {
		return fail(c, domain.Invalid("code", "is required"))
	}
	view, err := h.Cart.ApplyDiscount(identity(c), code)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, view)
}

func (h *CartHandler) ClearDiscount(c *fiber.Ctx) error {
	view, err := h.Cart.ClearDiscount(identity(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, view)
}

// ConvertToQuote turns each cart line into a draft quote and consumes
// the cart.
func (h *CartHandler) ConvertToQuote(c *fiber.Ctx) error {
	quotes, err := h.Cart.ConvertToQuotes(identity(c), c.IP())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "cart.converted", map[string]any{"quotes": len(quotes)})
	return created(c, fiber.Map{"quotes": quotes})
}
