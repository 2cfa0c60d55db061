package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"gravado/internal/domain"
	applog "gravado/internal/log"
	"gravado/internal/repos"
	"gravado/internal/services"
	"gravado/internal/validate"
)

type QuoteHandler struct {
	Quotes      *services.QuoteService
	Attachments *repos.AttachmentRepo
}

func (h *QuoteHandler) List(c *fiber.Ctx) error {
	out, err := h.Quotes.List(currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, out)
}

func (h *QuoteHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	q, err := h.Quotes.Get(currentUser(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, q)
}

type createQuoteBody struct {
	MaterialID      int64                `json:"material_id"`
	ShapeID         int64                `json:"shape_id"`
	EntryID         int64                `json:"entry_id"`
	DimensionLabel  string               `json:"dimension_label"`
	ManualUnitPrice *float64             `json:"unit_price"`
	Quantity        int                  `json:"quantity"`
	EngravingText   string               `json:"engraving_text"`
	DiscountID      *int64               `json:"discount_id"`
	Customization   json.RawMessage      `json:"customization"`
	Client          domain.ClientDetails `json:"client_details"`
	FileIDs         []int64              `json:"file_ids"`
	Status          string               `json:"status"`
}

func (h *QuoteHandler) Create(c *fiber.Ctx) error {
	var body createQuoteBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	text, okText := validate.EngravingText(body.EngravingText)
	if !okText {
		return fail(c, domain.Invalid("engraving_text", "must be at most 255 characters"))
	}
	q, err := h.Quotes.Create(currentUser(c), services.CreateQuoteRequest{
		MaterialID:      body.MaterialID,
		ShapeID:         body.ShapeID,
		EntryID:         body.EntryID,
		DimensionLabel:  body.DimensionLabel,
		ManualUnitPrice: body.ManualUnitPrice,
		Quantity:        body.Quantity,
		EngravingText:   text,
		DiscountID:      body.DiscountID,
		Customization:   body.Customization,
		Client:          body.Client,
		FileIDs:         body.FileIDs,
		Status:          body.Status,
	}, c.IP())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "quote.created", map[string]any{"ref": q.Reference})
	return created(c, q)
}

type updateQuoteBody struct {
	Quantity       *int     `json:"quantity"`
	EntryID        *int64   `json:"entry_id"`
	DimensionLabel *string  `json:"dimension_label"`
	EngravingText  *string  `json:"engraving_text"`
	DiscountID     *int64   `json:"discount_id"`
	ClearDiscount  bool     `json:"clear_discount"`
	Status         *string  `json:"status"`
	FinalPrice     *float64 `json:"final_price"`
}

func (h *QuoteHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var body updateQuoteBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed JSON body"})
	}
	if body.EngravingText != nil {
		text, okText := validate.EngravingText(*body.EngravingText)
		if !okText {
			return fail(c, domain.Invalid("engraving_text", "must be at most 255 characters"))
		}
		body.EngravingText = &text
	}
	q, err := h.Quotes.Update(currentUser(c), id, services.UpdateQuoteRequest{
		Quantity:       body.Quantity,
		EntryID:        body.EntryID,
		DimensionLabel: body.DimensionLabel,
		EngravingText:  body.EngravingText,
		DiscountID:     body.DiscountID,
		ClearDiscount:  body.ClearDiscount,
		Status:         body.Status,
		FinalPrice:     body.FinalPrice,
	}, c.IP())
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "quote.updated", map[string]any{"ref": q.Reference, "status": q.Status})
	return ok(c, q)
}

func (h *QuoteHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Quotes.Delete(currentUser(c), id, c.IP()); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "quote.deleted", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// Files lists the attachments linked to a quote the actor may view.
func (h *QuoteHandler) Files(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if _, err := h.Quotes.Get(currentUser(c), id); err != nil {
		return fail(c, err)
	}
	files, err := h.Attachments.ByQuote(id)
	if err != nil {
		return fail(c, domain.Internal(err))
	}
	return ok(c, files)
}
