package domain

const (
	CartPending = "pending"
	CartOrdered = "ordered"
)

type Cart struct {
	ID           int64   `db:"id" json:"id"`
	UserID       *int64  `db:"user_id" json:"user_id,omitempty"`
	SessionToken *string `db:"session_token" json:"-"`
	DiscountID   *int64  `db:"discount_id" json:"discount_id,omitempty"`
	Status       string  `db:"status" json:"status"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	UpdatedAt    string  `db:"updated_at" json:"updated_at,omitempty"`
}

// CartItem is one logical cart line. FixedUnitPrice is the effective
// unit price (catalog price plus engraving) computed once at insertion
// time; it takes part in the line identity together with the entry,
// engraving text and mounting option.
type CartItem struct {
	ID             int64   `db:"id" json:"id"`
	CartID         int64   `db:"cart_id" json:"cart_id"`
	EntryID        int64   `db:"entry_id" json:"entry_id"`
	Quantity       int     `db:"quantity" json:"quantity"`
	FixedUnitPrice float64 `db:"fixed_unit_price" json:"fixed_unit_price"`
	EngravingText  string  `db:"engraving_text" json:"engraving_text,omitempty"`
	MountingOption string  `db:"mounting_option" json:"mounting_option,omitempty"`
	CustomOptions  string  `db:"custom_options" json:"custom_options,omitempty"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
	UpdatedAt      string  `db:"updated_at" json:"updated_at,omitempty"`
}

func (i CartItem) LineTotal() float64 {
	return i.FixedUnitPrice * float64(i.Quantity)
}
