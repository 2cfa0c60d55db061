package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gravado/internal/authz"
	"gravado/internal/domain"
	"gravado/internal/repos"
)

type OrderService struct {
	Orders   *repos.OrderRepo
	Quotes   *repos.QuoteRepo
	Activity *ActivityRecorder
}

func NewOrderService(orders *repos.OrderRepo, quotes *repos.QuoteRepo, activity *ActivityRecorder) *OrderService {
	return &OrderService{Orders: orders, Quotes: quotes, Activity: activity}
}

// orderReference derives a customer-facing reference from a random
// uuid plus the quote id, e.g. CMD-7F3A1C-42.
func orderReference(quoteID int64) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("CMD-%s-%d", hex[:6], quoteID)
}

type ConvertRequest struct {
	Shipping domain.ShippingAddress
}

// Convert turns a calculated quote into an order. The service checks
// the fast-fail conditions up front so callers get precise errors; the
// repository's guarded transaction remains the authority under
// concurrency.
func (s *OrderService) Convert(actor *domain.User, quoteID int64, req ConvertRequest, ip string) (domain.Order, error) {
	fields := map[string]string{}
	if req.Shipping.Street == "" {
		fields["shipping_address.street"] = "is required"
	}
	if req.Shipping.City == "" {
		fields["shipping_address.city"] = "is required"
	}
	if req.Shipping.PostalCode == "" {
		fields["shipping_address.postal_code"] = "is required"
	}
	if len(fields) > 0 {
		return domain.Order{}, &domain.ValidationError{Fields: fields}
	}

	q, err := s.Quotes.Get(quoteID)
	if err == sql.ErrNoRows {
		return domain.Order{}, domain.NotFound("quote", quoteID)
	}
	if err != nil {
		return domain.Order{}, domain.Internal(err)
	}
	if !authz.OwnerOrDeny(authz.Decide(actor, authz.QuoteConvert), actor.ID, q.UserID) {
		return domain.Order{}, domain.Unauthorized("this quote belongs to another client")
	}
	if q.OrderID != nil {
		return domain.Order{}, domain.Conflict("quote already has an order")
	}
	if q.Status != domain.QuoteCalculated {
		return domain.Order{}, &domain.IllegalTransitionError{Current: q.Status, Attempted: domain.QuoteOrdered}
	}

	shipping, err := json.Marshal(req.Shipping)
	if err != nil {
		return domain.Order{}, domain.Internal(err)
	}

	o, err := s.Orders.Convert(domain.Order{
		Reference:       orderReference(q.ID),
		QuoteID:         q.ID,
		UserID:          q.UserID,
		FinalPrice:      q.FinalPrice,
		MaterialID:      q.MaterialID,
		ShapeID:         q.ShapeID,
		EntryID:         q.EntryID,
		Quantity:        q.Quantity,
		DimensionLabel:  q.DimensionLabel,
		ClientDetails:   q.ClientDetails,
		Snapshot:        q.Snapshot,
		ShippingAddress: string(shipping),
	})
	if err == repos.ErrQuoteNotConvertible {
		return domain.Order{}, domain.Conflict("quote already has an order")
	}
	if err != nil {
		return domain.Order{}, domain.Internal(err)
	}

	s.Activity.Record("order_created", &actor.ID,
		&domain.Subject{Kind: domain.SubjectOrder, ID: o.ID},
		map[string]any{"ref": o.Reference, "quote_ref": q.Reference}, ip)
	return o, nil
}

func (s *OrderService) Get(actor *domain.User, id int64) (domain.Order, error) {
	o, err := s.Orders.Get(id)
	if err == sql.ErrNoRows {
		return domain.Order{}, domain.NotFound("order", id)
	}
	if err != nil {
		return domain.Order{}, domain.Internal(err)
	}
	if !authz.OwnerOrDeny(authz.Decide(actor, authz.OrderView), actor.ID, o.UserID) {
		return domain.Order{}, domain.Unauthorized("this order belongs to another client")
	}
	return o, nil
}

func (s *OrderService) List(actor *domain.User) ([]domain.Order, error) {
	switch authz.Decide(actor, authz.OrderList) {
	case authz.Allow:
		out, err := s.Orders.ListAll()
		return out, domain.Internal(err)
	case authz.Deny:
		return nil, domain.Unauthorized("")
	default:
		out, err := s.Orders.ListByUser(actor.ID)
		return out, domain.Internal(err)
	}
}

type UpdateOrderRequest struct {
	Status           *string
	PaymentReference *string
	Shipping         *domain.ShippingAddress
}

// Update lets elevated actors move status and lets the owning client
// fix the address or payment reference while the order has not entered
// production.
func (s *OrderService) Update(actor *domain.User, id int64, req UpdateOrderRequest, ip string) (domain.Order, error) {
	o, err := s.Orders.Get(id)
	if err == sql.ErrNoRows {
		return domain.Order{}, domain.NotFound("order", id)
	}
	if err != nil {
		return domain.Order{}, domain.Internal(err)
	}

	decision := authz.Decide(actor, authz.OrderUpdate)
	if decision == authz.Deny {
		return domain.Order{}, domain.Unauthorized("")
	}
	if decision == authz.Defer {
		if actor.ID != o.UserID {
			return domain.Order{}, domain.Unauthorized("this order belongs to another client")
		}
		if req.Status != nil {
			return domain.Order{}, domain.Unauthorized("only staff may change order status")
		}
		if domain.OrderInProduction(o.Status) {
			return domain.Order{}, &domain.IllegalTransitionError{Current: o.Status, Attempted: "client edit"}
		}
	}
	if req.Status != nil && !domain.OrderStatusValid(*req.Status) {
		return domain.Order{}, domain.Invalid("status", "unknown status")
	}

	var shipping *string
	if req.Shipping != nil {
		if req.Shipping.Street == "" || req.Shipping.City == "" || req.Shipping.PostalCode == "" {
			return domain.Order{}, domain.Invalid("shipping_address", "street, city and postal_code are required")
		}
		raw, err := json.Marshal(req.Shipping)
		if err != nil {
			return domain.Order{}, domain.Internal(err)
		}
		s := string(raw)
		shipping = &s
	}

	if err := s.Orders.Update(o.ID, req.Status, req.PaymentReference, shipping); err != nil {
		return domain.Order{}, domain.Internal(err)
	}
	out, err := s.Orders.Get(o.ID)
	if err != nil {
		return domain.Order{}, domain.Internal(err)
	}
	s.Activity.Record("order_updated", &actor.ID,
		&domain.Subject{Kind: domain.SubjectOrder, ID: o.ID},
		map[string]any{"ref": o.Reference, "status": out.Status}, ip)
	return out, nil
}

// Cancel deletes the order and returns its quote to the calculated
// state. Clients may cancel their own orders only before production
// starts; elevated actors may cancel at any point.
func (s *OrderService) Cancel(actor *domain.User, id int64, ip string) error {
	o, err := s.Orders.Get(id)
	if err == sql.ErrNoRows {
		return domain.NotFound("order", id)
	}
	if err != nil {
		return domain.Internal(err)
	}

	switch authz.Decide(actor, authz.OrderCancel) {
	case authz.Deny:
		return domain.Unauthorized("")
	case authz.Defer:
		if actor.ID != o.UserID {
			return domain.Unauthorized("this order belongs to another client")
		}
		if domain.OrderInProduction(o.Status) {
			return &domain.IllegalTransitionError{Current: o.Status, Attempted: domain.OrderCanceled}
		}
	}

	if err := s.Orders.Cancel(o); err != nil {
		return domain.Internal(err)
	}
	s.Activity.Record("order_canceled", &actor.ID,
		&domain.Subject{Kind: domain.SubjectOrder, ID: o.ID},
		map[string]any{"ref": o.Reference, "quote_id": o.QuoteID}, ip)
	return nil
}
