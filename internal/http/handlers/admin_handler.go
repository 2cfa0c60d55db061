package handlers

import (
	"github.com/gofiber/fiber/v2"

	"gravado/internal/domain"
	applog "gravado/internal/log"
	"gravado/internal/repos"
	"gravado/internal/services"
	"gravado/internal/validate"
)

// AdminHandler groups the staff-only surface: catalog dimension CRUD,
// discount CRUD, inventory, users and the activity feed.
type AdminHandler struct {
	Catalog    *services.CatalogService
	Discounts  *services.DiscountService
	Inv        *services.InventoryService
	Users      *repos.UserRepo
	Activities *repos.ActivityRepo
}

type entryBody struct {
	MaterialID     int64   `json:"material_id"`
	ShapeID        int64   `json:"shape_id"`
	CategoryID     int64   `json:"category_id"`
	DimensionLabel string  `json:"dimension_label"`
	UnitPrice      float64 `json:"unit_price"`
	IsActive       bool    `json:"is_active"`
}

func (b entryBody) toInput() services.EntryInput {
	return services.EntryInput{
		MaterialID:     b.MaterialID,
		ShapeID:        b.ShapeID,
		CategoryID:     b.CategoryID,
		DimensionLabel: b.DimensionLabel,
		UnitPrice:      b.UnitPrice,
		IsActive:       b.IsActive,
	}
}

func (h *AdminHandler) CreateEntry(c *fiber.Ctx) error {
	var body entryBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	e, err := h.Catalog.CreateEntry(body.toInput())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.entry.created", map[string]any{"id": e.ID})
	return created(c, e)
}

func (h *AdminHandler) UpdateEntry(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body entryBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	e, err := h.Catalog.UpdateEntry(id, body.toInput())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.entry.updated", map[string]any{"id": e.ID})
	return ok(c, e)
}

func (h *AdminHandler) DeleteEntry(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Catalog.DeleteEntry(id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.entry.deleted", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

type discountAdminBody struct {
	Name            string  `json:"name"`
	Code            string  `json:"code"`
	Kind            string  `json:"kind"`
	Value           float64 `json:"value"`
	MinOrderAmount  float64 `json:"min_order_amount"`
	MaxUsage        *int64  `json:"max_usage"`
	MaxUsagePerUser *int64  `json:"max_usage_per_user"`
	IsActive        bool    `json:"is_active"`
	ExpiresAt       *string `json:"expires_at"`
}

func (b discountAdminBody) toInput() services.DiscountInput {
	return services.DiscountInput{
		Name:            b.Name,
		Code:            b.Code,
		Kind:            b.Kind,
		Value:           b.Value,
		MinOrderAmount:  b.MinOrderAmount,
		MaxUsage:        b.MaxUsage,
		MaxUsagePerUser: b.MaxUsagePerUser,
		IsActive:        b.IsActive,
		ExpiresAt:       b.ExpiresAt,
	}
}

func (h *AdminHandler) ListDiscounts(c *fiber.Ctx) error {
	out, err := h.Discounts.List()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *AdminHandler) CreateDiscount(c *fiber.Ctx) error {
	var body discountAdminBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	d, err := h.Discounts.Create(body.toInput())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.discount.created", map[string]any{"code": d.Code})
	return created(c, d)
}

func (h *AdminHandler) UpdateDiscount(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body discountAdminBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	d, err := h.Discounts.Update(id, body.toInput())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.discount.updated", map[string]any{"code": d.Code})
	return ok(c, d)
}

func (h *AdminHandler) DeleteDiscount(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Discounts.Delete(id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.discount.deleted", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ListInventory(c *fiber.Ctx) error {
	out, err := h.Inv.List()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

type inventoryBody struct {
	Qty int `json:"qty"`
}

func (h *AdminHandler) SetInventory(c *fiber.Ctx) error {
	materialID, err := pathID(c, "materialId")
	if err != nil {
		return fail(c, err)
	}
	var body inventoryBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	if err := h.Inv.SetQty(materialID, body.Qty); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.inventory.set", map[string]any{"material_id": materialID, "qty": body.Qty})
	return ok(c, fiber.Map{"material_id": materialID, "qty": body.Qty})
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	out, err := h.Users.List()
	if err != nil {
		return fail(c, domain.Internal(err))
	}
	return ok(c, out)
}

// DeleteUser removes an account; the FK layer blocks deletion while
// quotes or orders still reference it.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if actor := currentUser(c); actor != nil && actor.ID == id {
		return fail(c, domain.Conflict("cannot delete your own account"))
	}
	if err := h.Users.Delete(id); err != nil {
		return fail(c, domain.Conflict("user still owns quotes or orders"))
	}
	applog.Audit(c, "admin.user.deleted", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ListActivities(c *fiber.Ctx) error {
	limit := 100
	if n, okN := validate.Quantity(c.Query("limit")); okN {
		limit = n
	}
	out, err := h.Activities.ListLatest(limit)
	if err != nil {
		return fail(c, domain.Internal(err))
	}
	return ok(c, out)
}
