package domain

import "encoding/json"

const (
	QuoteDraft      = "draft"
	QuoteSent       = "sent"
	QuoteCalculated = "calculated"
	QuoteOrdered    = "ordered"
	QuoteRejected   = "rejected"
	QuoteArchived   = "archived"
)

const (
	PriceSourceStandard = "standard"
	PriceSourceCustom   = "custom"
)

// quoteTransitions lists the legal status moves. "ordered" is terminal
// except via order cancellation, which resets the quote to
// "calculated" as part of the same transaction.
var quoteTransitions = map[string][]string{
	QuoteDraft:      {QuoteDraft, QuoteSent, QuoteArchived},
	QuoteSent:       {QuoteCalculated, QuoteRejected, QuoteArchived},
	QuoteCalculated: {QuoteOrdered, QuoteRejected, QuoteArchived},
}

func QuoteStatusValid(s string) bool {
	switch s {
	case QuoteDraft, QuoteSent, QuoteCalculated, QuoteOrdered, QuoteRejected, QuoteArchived:
		return true
	}
	return false
}

func QuoteCanTransition(from, to string) bool {
	for _, t := range quoteTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ClientDetails is the contact snapshot stored with a quote so the
// record stays meaningful even if the account changes later.
type ClientDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// priced quote snapshot schema version; bump when fields change so
// historical rows stay decodable.
const SnapshotVersion = 1

// QuoteSnapshot records every resolved id and intermediate value of a
// price computation so it can be audited without re-querying live
// catalog state.
type QuoteSnapshot struct {
	Version        int             `json:"version"`
	EntryID        *int64          `json:"entry_id,omitempty"`
	MaterialID     int64           `json:"material_id"`
	ShapeID        int64           `json:"shape_id"`
	DimensionLabel string          `json:"dimension_label"`
	PriceSource    string          `json:"price_source"`
	BaseUnitPrice  float64         `json:"base_unit_price"`
	EngravingText  string          `json:"engraving_text,omitempty"`
	EngravingCost  float64         `json:"engraving_cost"`
	UnitPrice      float64         `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	BasePrice      float64         `json:"base_price"`
	DiscountID     *int64          `json:"discount_id,omitempty"`
	DiscountAmount float64         `json:"discount_amount"`
	FinalPrice     float64         `json:"final_price"`
	Customization  json.RawMessage `json:"customization,omitempty"`
}

type Quote struct {
	ID             int64   `db:"id" json:"id"`
	Reference      string  `db:"reference" json:"reference"`
	UserID         int64   `db:"user_id" json:"user_id"`
	OrderID        *int64  `db:"order_id" json:"order_id,omitempty"`
	ClientDetails  string  `db:"client_details" json:"-"`
	MaterialID     int64   `db:"material_id" json:"material_id"`
	ShapeID        int64   `db:"shape_id" json:"shape_id"`
	EntryID        *int64  `db:"entry_id" json:"entry_id,omitempty"`
	DiscountID     *int64  `db:"discount_id" json:"discount_id,omitempty"`
	Quantity       int     `db:"quantity" json:"quantity"`
	DimensionLabel string  `db:"dimension_label" json:"dimension_label"`
	PriceSource    string  `db:"price_source" json:"price_source"`
	UnitPrice      float64 `db:"unit_price" json:"unit_price"`
	BasePrice      float64 `db:"base_price" json:"base_price"`
	DiscountAmount float64 `db:"discount_amount" json:"discount_amount"`
	FinalPrice     float64 `db:"final_price" json:"final_price"`
	Status         string  `db:"status" json:"status"`
	Snapshot       string  `db:"details_snapshot" json:"-"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
	UpdatedAt      string  `db:"updated_at" json:"updated_at,omitempty"`
}

func (q *Quote) Client() (ClientDetails, error) {
	var cd ClientDetails
	err := json.Unmarshal([]byte(q.ClientDetails), &cd)
	return cd, err
}

func (q *Quote) DecodeSnapshot() (QuoteSnapshot, error) {
	var s QuoteSnapshot
	err := json.Unmarshal([]byte(q.Snapshot), &s)
	return s, err
}

// MarshalJSON inlines the decoded client details and snapshot so API
// consumers never see raw JSON strings.
func (q Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	return json.Marshal(struct {
		alias
		ClientDetails json.RawMessage `json:"client_details,omitempty"`
		Snapshot      json.RawMessage `json:"details_snapshot,omitempty"`
	}{
		alias:         alias(q),
		ClientDetails: rawOrNil(q.ClientDetails),
		Snapshot:      rawOrNil(q.Snapshot),
	})
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
