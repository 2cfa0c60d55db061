package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gravado/internal/domain"
	applog "gravado/internal/log"
	"gravado/internal/services"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type convertBody struct {
	Shipping domain.ShippingAddress `json:"shipping_address"`
}

func (h *OrderHandler) Convert(c *fiber.Ctx) error {
	quoteID, err := pathID(c, "quoteId")
	if err != nil {
		return fail(c, err)
	}
	var body convertBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	o, err := h.Orders.Convert(currentUser(c), quoteID, services.ConvertRequest{Shipping: body.Shipping}, c.IP())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.created", map[string]any{"ref": o.Reference, "quote_id": o.QuoteID})
	return created(c, o)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	out, err := h.Orders.List(currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	o, err := h.Orders.Get(currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, o)
}

type updateOrderBody struct {
	Status           *string                 `json:"status"`
	PaymentReference *string                 `json:"payment_reference"`
	Shipping         *domain.ShippingAddress `json:"shipping_address"`
}

func (h *OrderHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body updateOrderBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	o, err := h.Orders.Update(currentUser(c), id, services.UpdateOrderRequest{
		Status:           body.Status,
		PaymentReference: body.PaymentReference,
		Shipping:         body.Shipping,
	}, c.IP())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.updated", map[string]any{"ref": o.Reference, "status": o.Status})
	return ok(c, o)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Orders.Cancel(currentUser(c), id, c.IP()); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.canceled", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
