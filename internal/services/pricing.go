package services

import (
	"database/sql"
	"encoding/json"
	"math"
	"time"
	"unicode/utf8"

	"gravado/internal/domain"
	"gravado/internal/repos"
)

// DefaultEngravingRate is the per-character engraving surcharge.
const DefaultEngravingRate = 5.0

// PricingService resolves a unit price from the catalog (or a manual
// price), applies the engraving surcharge and an optional discount,
// and returns a fully auditable computation. Estimate has no side
// effects and is safe to call before any persistence.
type PricingService struct {
	Catalog       *repos.CatalogRepo
	Discounts     *repos.DiscountRepo
	EngravingRate float64
}

func NewPricingService(catalog *repos.CatalogRepo, discounts *repos.DiscountRepo, rate float64) *PricingService {
	if rate <= 0 {
		rate = DefaultEngravingRate
	}
	return &PricingService{Catalog: catalog, Discounts: discounts, EngravingRate: rate}
}

type EstimateRequest struct {
	MaterialID      int64
	ShapeID         int64
	EntryID         int64   // catalog price entry id, 0 when unused
	DimensionLabel  string  // triple lookup key, or free label for custom prices
	ManualUnitPrice *float64 // explicit price -> source "custom"
	Quantity        int
	EngravingText   string
	DiscountID      *int64
	UserID          *int64 // for per-user discount usage caps
	Customization   json.RawMessage
}

type PriceResult struct {
	UnitPrice      float64              `json:"unit_price"`
	Quantity       int                  `json:"quantity"`
	PriceSource    string               `json:"price_source"`
	DimensionLabel string               `json:"dimension_label"`
	EntryID        *int64               `json:"entry_id,omitempty"`
	EngravingCost  float64              `json:"engraving_cost"`
	BasePrice      float64              `json:"base_price"`
	DiscountAmount float64              `json:"discount_amount"`
	FinalPrice     float64              `json:"final_price"`
	Snapshot       domain.QuoteSnapshot `json:"snapshot"`
}

func (s *PricingService) Estimate(req EstimateRequest) (PriceResult, error) {
	if req.Quantity < 1 {
		return PriceResult{}, domain.Invalid("quantity", "must be at least 1")
	}

	var (
		source        string
		baseUnitPrice float64
		label         = req.DimensionLabel
		entryID       *int64
	)

	switch {
	case req.ManualUnitPrice != nil && req.EntryID > 0:
		// Two competing sources is as unresolvable as none.
		return PriceResult{}, domain.ErrNoPriceSource
	case req.ManualUnitPrice != nil:
		if *req.ManualUnitPrice < 0 {
			return PriceResult{}, domain.Invalid("unit_price", "must not be negative")
		}
		source = domain.PriceSourceCustom
		baseUnitPrice = *req.ManualUnitPrice
	default:
		entry, err := s.resolveEntry(req)
		if err != nil {
			return PriceResult{}, err
		}
		if entry.MaterialID != req.MaterialID || entry.ShapeID != req.ShapeID {
			return PriceResult{}, &domain.ConfigurationInconsistencyError{
				Reason: "price entry does not match the requested material/shape",
			}
		}
		source = domain.PriceSourceStandard
		baseUnitPrice = entry.UnitPrice
		label = entry.DimensionLabel
		id := entry.ID
		entryID = &id
	}

	engravingCost := round2(float64(utf8.RuneCountInString(req.EngravingText)) * s.EngravingRate)
	unitPrice := round2(baseUnitPrice + engravingCost)
	basePrice := round2(unitPrice * float64(req.Quantity))
	discountAmount := s.evaluateDiscount(req.DiscountID, req.UserID, basePrice)
	finalPrice := round2(basePrice - discountAmount)

	res := PriceResult{
		UnitPrice:      unitPrice,
		Quantity:       req.Quantity,
		PriceSource:    source,
		DimensionLabel: label,
		EntryID:        entryID,
		EngravingCost:  engravingCost,
		BasePrice:      basePrice,
		DiscountAmount: discountAmount,
		FinalPrice:     finalPrice,
		Snapshot: domain.QuoteSnapshot{
			Version:        domain.SnapshotVersion,
			EntryID:        entryID,
			MaterialID:     req.MaterialID,
			ShapeID:        req.ShapeID,
			DimensionLabel: label,
			PriceSource:    source,
			BaseUnitPrice:  baseUnitPrice,
			EngravingText:  req.EngravingText,
			EngravingCost:  engravingCost,
			UnitPrice:      unitPrice,
			Quantity:       req.Quantity,
			BasePrice:      basePrice,
			DiscountID:     req.DiscountID,
			DiscountAmount: discountAmount,
			FinalPrice:     finalPrice,
			Customization:  req.Customization,
		},
	}
	return res, nil
}

func (s *PricingService) resolveEntry(req EstimateRequest) (domain.PriceEntry, error) {
	if req.EntryID > 0 {
		entry, err := s.Catalog.EntryByID(req.EntryID)
		if err == sql.ErrNoRows {
			return domain.PriceEntry{}, domain.NotFound("price entry", req.EntryID)
		}
		if err != nil {
			return domain.PriceEntry{}, domain.Internal(err)
		}
		if !entry.IsActive {
			return domain.PriceEntry{}, domain.NotFound("price entry", req.EntryID)
		}
		return entry, nil
	}
	if req.DimensionLabel != "" {
		entry, err := s.Catalog.EntryByTriple(req.MaterialID, req.ShapeID, req.DimensionLabel)
		if err == sql.ErrNoRows {
			return domain.PriceEntry{}, domain.NotFound("price entry", req.DimensionLabel)
		}
		if err != nil {
			return domain.PriceEntry{}, domain.Internal(err)
		}
		if !entry.IsActive {
			return domain.PriceEntry{}, domain.NotFound("price entry", req.DimensionLabel)
		}
		return entry, nil
	}
	return domain.PriceEntry{}, domain.ErrNoPriceSource
}

// evaluateDiscount returns the discount amount for a base price. An
// ineligible discount (missing, inactive, expired, below the minimum
// order amount, or usage-capped out) silently contributes zero; the
// caller still gets a priced result. The amount never exceeds the
// base price.
func (s *PricingService) evaluateDiscount(discountID, userID *int64, basePrice float64) float64 {
	if discountID == nil {
		return 0
	}
	d, err := s.Discounts.ByID(*discountID)
	if err != nil {
		return 0
	}
	if !d.IsActive || basePrice < d.MinOrderAmount {
		return 0
	}
	if d.ExpiresAt != nil && expired(*d.ExpiresAt) {
		return 0
	}
	if d.MaxUsage != nil {
		if n, err := s.Discounts.UsageCount(d.ID); err != nil || n >= *d.MaxUsage {
			return 0
		}
	}
	if d.MaxUsagePerUser != nil && userID != nil {
		if n, err := s.Discounts.UsageCountByUser(d.ID, *userID); err != nil || n >= *d.MaxUsagePerUser {
			return 0
		}
	}

	var amount float64
	switch d.Kind {
	case domain.DiscountPercentage:
		amount = basePrice * d.Value / 100
	case domain.DiscountFixed:
		amount = d.Value
	default:
		return 0
	}
	if amount > basePrice {
		amount = basePrice
	}
	return round2(amount)
}

var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func expired(expiresAt string) bool {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, expiresAt); err == nil {
			return t.Before(time.Now())
		}
	}
	// Unparseable expiry is treated as no expiry.
	return false
}

// round2 applies standard half-away-from-zero rounding to 2 decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
