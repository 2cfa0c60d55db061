package domain

import "encoding/json"

const (
	OrderPendingPayment = "pending_payment"
	OrderPaid           = "paid"
	OrderProcessing     = "processing"
	OrderShipped        = "shipped"
	OrderCompleted      = "completed"
	OrderCanceled       = "canceled"
)

var OrderStatuses = []string{
	OrderPendingPayment,
	OrderPaid,
	OrderProcessing,
	OrderShipped,
	OrderCompleted,
	OrderCanceled,
}

func OrderStatusValid(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// InProduction reports whether the order has entered a state the
// owning client can no longer modify or cancel.
func OrderInProduction(status string) bool {
	switch status {
	case OrderProcessing, OrderShipped, OrderCompleted:
		return true
	}
	return false
}

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Order is an immutable snapshot of a quote at conversion time. The
// material/shape/dimension/quantity/client fields are copies, not live
// references.
type Order struct {
	ID               int64   `db:"id" json:"id"`
	Reference        string  `db:"reference" json:"reference"`
	QuoteID          int64   `db:"quote_id" json:"quote_id"`
	UserID           int64   `db:"user_id" json:"user_id"`
	PaymentReference *string `db:"payment_reference" json:"payment_reference,omitempty"`
	FinalPrice       float64 `db:"final_price" json:"final_price"`
	MaterialID       int64   `db:"material_id" json:"material_id"`
	ShapeID          int64   `db:"shape_id" json:"shape_id"`
	EntryID          *int64  `db:"entry_id" json:"entry_id,omitempty"`
	Quantity         int     `db:"quantity" json:"quantity"`
	ReservedQty      int     `db:"reserved_qty" json:"-"`
	DimensionLabel   string  `db:"dimension_label" json:"dimension_label"`
	ClientDetails    string  `db:"client_details" json:"-"`
	Snapshot         string  `db:"details_snapshot" json:"-"`
	ShippingAddress  string  `db:"shipping_address" json:"-"`
	Status           string  `db:"status" json:"status"`
	CompletedAt      *string `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        string  `db:"created_at" json:"created_at"`
	UpdatedAt        string  `db:"updated_at" json:"updated_at,omitempty"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		ClientDetails   json.RawMessage `json:"client_details,omitempty"`
		Snapshot        json.RawMessage `json:"details_snapshot,omitempty"`
		ShippingAddress json.RawMessage `json:"shipping_address,omitempty"`
	}{
		alias:           alias(o),
		ClientDetails:   rawOrNil(o.ClientDetails),
		Snapshot:        rawOrNil(o.Snapshot),
		ShippingAddress: rawOrNil(o.ShippingAddress),
	})
}
