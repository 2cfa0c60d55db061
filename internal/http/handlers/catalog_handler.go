package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"gravado/internal/domain"
	"gravado/internal/services"
	"gravado/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
	Inv     *services.InventoryService
	Pricing *services.PricingService
}

func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	out, err := h.Catalog.Categories()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *CatalogHandler) Materials(c *fiber.Ctx) error {
	out, err := h.Catalog.Materials()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *CatalogHandler) Shapes(c *fiber.Ctx) error {
	out, err := h.Catalog.Shapes()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

// Dimensions lists active price entries, optionally narrowed by
// material, shape, or category query params.
func (h *CatalogHandler) Dimensions(c *fiber.Ctx) error {
	materialID, _ := validate.ID(c.Query("material_id"))
	shapeID, _ := validate.ID(c.Query("shape_id"))
	categoryID, _ := validate.ID(c.Query("category_id"))
	out, err := h.Catalog.Entries(materialID, shapeID, categoryID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *CatalogHandler) Availability(c *fiber.Ctx) error {
	materialID, okID := validate.ID(c.Query("material_id"))
	if !okID {
		return fail(c, domain.Invalid("material_id", "is required"))
	}
	av, err := h.Inv.CheckAvailability(materialID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, av)
}

type estimateBody struct {
	MaterialID      int64           `json:"material_id"`
	ShapeID         int64           `json:"shape_id"`
	EntryID         int64           `json:"entry_id"`
	DimensionLabel  string          `json:"dimension_label"`
	ManualUnitPrice *float64        `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	EngravingText   string          `json:"engraving_text"`
	DiscountID      *int64          `json:"discount_id"`
	Customization   json.RawMessage `json:"customization"`
}

// Estimate runs the pricing engine without persisting anything; the
// public quote configurator polls it on every change.
func (h *CatalogHandler) Estimate(c *fiber.Ctx) error {
	var body estimateBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	text, okText := validate.EngravingText(body.EngravingText)
	if !okText {
		return fail(c, domain.Invalid("engraving_text", "must be at most 255 characters"))
	}

	var userID *int64
	if u := currentUser(c); u != nil {
		userID = &u.ID
	}
	res, err := h.Pricing.Estimate(services.EstimateRequest{
		MaterialID:      body.MaterialID,
		ShapeID:         body.ShapeID,
		EntryID:         body.EntryID,
		DimensionLabel:  body.DimensionLabel,
		ManualUnitPrice: body.ManualUnitPrice,
		Quantity:        body.Quantity,
		EngravingText:   text,
		DiscountID:      body.DiscountID,
		UserID:          userID,
		Customization:   body.Customization,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}
