package services

import (
	"database/sql"
	"encoding/json"
	"log"

	"gravado/internal/authz"
	"gravado/internal/domain"
	"gravado/internal/repos"
)

type QuoteService struct {
	Quotes      *repos.QuoteRepo
	Pricing     *PricingService
	Attachments *repos.AttachmentRepo
	Activity    *ActivityRecorder
}

func NewQuoteService(quotes *repos.QuoteRepo, pricing *PricingService, attachments *repos.AttachmentRepo, activity *ActivityRecorder) *QuoteService {
	return &QuoteService{Quotes: quotes, Pricing: pricing, Attachments: attachments, Activity: activity}
}

type CreateQuoteRequest struct {
	MaterialID      int64
	ShapeID         int64
	EntryID         int64
	DimensionLabel  string
	ManualUnitPrice *float64
	Quantity        int
	EngravingText   string
	DiscountID      *int64
	Customization   json.RawMessage
	Client          domain.ClientDetails
	FileIDs         []int64
	Status          string // draft or sent; defaults to sent
}

// Create prices the request, persists the quote with a fresh unique
// reference, links the actor's pending attachments best-effort, and
// records the activity.
func (s *QuoteService) Create(actor *domain.User, req CreateQuoteRequest, ip string) (domain.Quote, error) {
	if authz.Decide(actor, authz.QuoteCreate) != authz.Allow {
		return domain.Quote{}, domain.Unauthorized("quote creation requires a client account")
	}

	fields := map[string]string{}
	if req.Client.Name == "" {
		fields["client_details.name"] = "is required"
	}
	if req.Client.Email == "" {
		fields["client_details.email"] = "is required"
	}
	status := req.Status
	if status == "" {
		status = domain.QuoteSent
	}
	if status != domain.QuoteDraft && status != domain.QuoteSent {
		fields["status"] = "must be draft or sent"
	}
	if len(fields) > 0 {
		return domain.Quote{}, &domain.ValidationError{Fields: fields}
	}

	est, err := s.Pricing.Estimate(EstimateRequest{
		MaterialID:      req.MaterialID,
		ShapeID:         req.ShapeID,
		EntryID:         req.EntryID,
		DimensionLabel:  req.DimensionLabel,
		ManualUnitPrice: req.ManualUnitPrice,
		Quantity:        req.Quantity,
		EngravingText:   req.EngravingText,
		DiscountID:      req.DiscountID,
		UserID:          &actor.ID,
		Customization:   req.Customization,
	})
	if err != nil {
		return domain.Quote{}, err
	}

	client, err := json.Marshal(req.Client)
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}
	snap, err := json.Marshal(est.Snapshot)
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}

	q, err := s.Quotes.Create(domain.Quote{
		UserID:         actor.ID,
		ClientDetails:  string(client),
		MaterialID:     req.MaterialID,
		ShapeID:        req.ShapeID,
		EntryID:        est.EntryID,
		DiscountID:     req.DiscountID,
		Quantity:       est.Quantity,
		DimensionLabel: est.DimensionLabel,
		PriceSource:    est.PriceSource,
		UnitPrice:      est.UnitPrice,
		BasePrice:      est.BasePrice,
		DiscountAmount: est.DiscountAmount,
		FinalPrice:     est.FinalPrice,
		Status:         status,
		Snapshot:       string(snap),
	})
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}

	// Attachment linking is best-effort once the quote exists; a
	// failure must not undo the creation.
	if err := s.Attachments.LinkPendingToQuote(req.FileIDs, q.ID, actor.ID); err != nil {
		log.Printf("[quote] attachment link failed for %s: %v", q.Reference, err)
	}

	action := "quote_created"
	if status == domain.QuoteDraft {
		action = "quote_drafted"
	}
	s.Activity.Record(action, &actor.ID,
		&domain.Subject{Kind: domain.SubjectQuote, ID: q.ID},
		map[string]any{"ref": q.Reference}, ip)

	return q, nil
}

func (s *QuoteService) Get(actor *domain.User, id int64) (domain.Quote, error) {
	q, err := s.Quotes.Get(id)
	if err == sql.ErrNoRows {
		return domain.Quote{}, domain.NotFound("quote", id)
	}
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}
	if !authz.OwnerOrDeny(authz.Decide(actor, authz.QuoteView), actor.ID, q.UserID) {
		return domain.Quote{}, domain.Unauthorized("this quote belongs to another client")
	}
	return q, nil
}

// List returns every quote for elevated actors and only the actor's
// own quotes otherwise.
func (s *QuoteService) List(actor *domain.User) ([]domain.Quote, error) {
	switch authz.Decide(actor, authz.QuoteList) {
	case authz.Allow:
		out, err := s.Quotes.ListAll()
		return out, domain.Internal(err)
	case authz.Deny:
		return nil, domain.Unauthorized("")
	default:
		out, err := s.Quotes.ListByUser(actor.ID)
		return out, domain.Internal(err)
	}
}

type UpdateQuoteRequest struct {
	// Client-editable configuration (draft only).
	Quantity       *int
	EntryID        *int64
	DimensionLabel *string
	EngravingText  *string
	DiscountID     *int64
	ClearDiscount  bool
	// Elevated overrides.
	Status     *string
	FinalPrice *float64
}

// Update applies either an elevated override (status/final price, no
// recomputation) or an owner's draft edit. A draft edit that touches
// quantity, dimension, or discount re-runs the pricing engine and
// overwrites every price field; this is the one sanctioned exception
// to quotes being immutable snapshots.
func (s *QuoteService) Update(actor *domain.User, id int64, req UpdateQuoteRequest, ip string) (domain.Quote, error) {
	q, err := s.Quotes.Get(id)
	if err == sql.ErrNoRows {
		return domain.Quote{}, domain.NotFound("quote", id)
	}
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}

	switch authz.Decide(actor, authz.QuoteUpdate) {
	case authz.Deny:
		return domain.Quote{}, domain.Unauthorized("")
	case authz.Allow:
		return s.elevatedUpdate(actor, q, req, ip)
	}

	// Client path: ownership first, then the draft gate.
	if actor.ID != q.UserID {
		return domain.Quote{}, domain.Unauthorized("this quote belongs to another client")
	}
	if req.FinalPrice != nil {
		return domain.Quote{}, domain.Unauthorized("only reviewers may override the final price")
	}
	if req.Status != nil && *req.Status != domain.QuoteSent && *req.Status != domain.QuoteDraft {
		return domain.Quote{}, domain.Unauthorized("clients may only submit drafts")
	}
	if q.Status != domain.QuoteDraft {
		return domain.Quote{}, &domain.IllegalTransitionError{Current: q.Status, Attempted: "client edit"}
	}

	snap, err := q.DecodeSnapshot()
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}

	repriced := req.Quantity != nil || req.EntryID != nil || req.DimensionLabel != nil ||
		req.EngravingText != nil || req.DiscountID != nil || req.ClearDiscount
	if repriced {
		est := EstimateRequest{
			MaterialID:     q.MaterialID,
			ShapeID:        q.ShapeID,
			Quantity:       q.Quantity,
			EngravingText:  snap.EngravingText,
			DiscountID:     q.DiscountID,
			UserID:         &actor.ID,
			Customization:  snap.Customization,
			DimensionLabel: "",
		}
		if q.EntryID != nil {
			est.EntryID = *q.EntryID
		} else if q.PriceSource == domain.PriceSourceCustom {
			base := snap.BaseUnitPrice
			est.ManualUnitPrice = &base
			est.DimensionLabel = q.DimensionLabel
		}
		if req.Quantity != nil {
			est.Quantity = *req.Quantity
		}
		if req.EntryID != nil {
			est.EntryID = *req.EntryID
			est.ManualUnitPrice = nil
		}
		if req.DimensionLabel != nil {
			est.DimensionLabel = *req.DimensionLabel
			if req.EntryID == nil {
				est.EntryID = 0
			}
		}
		if req.EngravingText != nil {
			est.EngravingText = *req.EngravingText
		}
		if req.ClearDiscount {
			est.DiscountID = nil
		} else if req.DiscountID != nil {
			est.DiscountID = req.DiscountID
		}

		priced, err := s.Pricing.Estimate(est)
		if err != nil {
			return domain.Quote{}, err
		}
		newSnap, err := json.Marshal(priced.Snapshot)
		if err != nil {
			return domain.Quote{}, domain.Internal(err)
		}

		q.EntryID = priced.EntryID
		q.DiscountID = est.DiscountID
		q.Quantity = priced.Quantity
		q.DimensionLabel = priced.DimensionLabel
		q.PriceSource = priced.PriceSource
		q.UnitPrice = priced.UnitPrice
		q.BasePrice = priced.BasePrice
		q.DiscountAmount = priced.DiscountAmount
		q.FinalPrice = priced.FinalPrice
		q.Snapshot = string(newSnap)
	}

	if req.Status != nil {
		q.Status = *req.Status
	}
	if err := s.Quotes.UpdatePricing(q); err != nil {
		return domain.Quote{}, domain.Internal(err)
	}

	s.Activity.Record("quote_updated", &actor.ID,
		&domain.Subject{Kind: domain.SubjectQuote, ID: q.ID},
		map[string]any{"ref": q.Reference, "status": q.Status}, ip)
	out, err := s.Quotes.Get(q.ID)
	return out, domain.Internal(err)
}

func (s *QuoteService) elevatedUpdate(actor *domain.User, q domain.Quote, req UpdateQuoteRequest, ip string) (domain.Quote, error) {
	if req.Status == nil && req.FinalPrice == nil {
		return q, nil
	}
	if req.Status != nil && !domain.QuoteStatusValid(*req.Status) {
		return domain.Quote{}, domain.Invalid("status", "unknown status")
	}
	if req.Status != nil && *req.Status != q.Status && !domain.QuoteCanTransition(q.Status, *req.Status) {
		return domain.Quote{}, &domain.IllegalTransitionError{Current: q.Status, Attempted: *req.Status}
	}
	if req.FinalPrice != nil && *req.FinalPrice < 0 {
		return domain.Quote{}, domain.Invalid("final_price", "must not be negative")
	}
	if err := s.Quotes.SetStatusAndPrice(q.ID, req.Status, req.FinalPrice); err != nil {
		return domain.Quote{}, domain.Internal(err)
	}
	out, err := s.Quotes.Get(q.ID)
	if err != nil {
		return domain.Quote{}, domain.Internal(err)
	}
	s.Activity.Record("quote_updated", &actor.ID,
		&domain.Subject{Kind: domain.SubjectQuote, ID: q.ID},
		map[string]any{"ref": q.Reference, "status": out.Status}, ip)
	return out, nil
}

// Delete removes a quote. Clients may delete only their own drafts;
// elevated actors bypass ownership and the draft gate, but an ordered
// quote is never deletable while its order exists.
func (s *QuoteService) Delete(actor *domain.User, id int64, ip string) error {
	q, err := s.Quotes.Get(id)
	if err == sql.ErrNoRows {
		return domain.NotFound("quote", id)
	}
	if err != nil {
		return domain.Internal(err)
	}
	if q.Status == domain.QuoteOrdered {
		return domain.Conflict("quote has been converted to an order")
	}

	switch authz.Decide(actor, authz.QuoteDelete) {
	case authz.Deny:
		return domain.Unauthorized("")
	case authz.Defer:
		if actor.ID != q.UserID {
			return domain.Unauthorized("this quote belongs to another client")
		}
		if q.Status != domain.QuoteDraft {
			return &domain.IllegalTransitionError{Current: q.Status, Attempted: "delete"}
		}
	}

	if err := s.Quotes.Delete(q.ID); err != nil {
		return domain.Internal(err)
	}
	s.Activity.Record("quote_deleted", &actor.ID,
		&domain.Subject{Kind: domain.SubjectQuote, ID: q.ID},
		map[string]any{"ref": q.Reference}, ip)
	return nil
}
