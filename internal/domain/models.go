package domain

type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	IsActive    bool   `db:"is_active" json:"is_active"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at,omitempty"`
}

type Material struct {
	ID          int64  `db:"id" json:"id"`
	CategoryID  int64  `db:"category_id" json:"category_id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
	Color       string `db:"color" json:"color"`
	IsActive    bool   `db:"is_active" json:"is_active"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at,omitempty"`
}

type Shape struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	IsActive    bool   `db:"is_active" json:"is_active"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at,omitempty"`
}

// PriceEntry is one row of the fixed price catalog: a
// (material, shape, dimension) combination with its unit price.
type PriceEntry struct {
	ID             int64   `db:"id" json:"id"`
	MaterialID     int64   `db:"material_id" json:"material_id"`
	ShapeID        int64   `db:"shape_id" json:"shape_id"`
	CategoryID     int64   `db:"category_id" json:"category_id"`
	DimensionLabel string  `db:"dimension_label" json:"dimension_label"`
	UnitPrice      float64 `db:"unit_price" json:"unit_price"`
	IsActive       bool    `db:"is_active" json:"is_active"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
	UpdatedAt      string  `db:"updated_at" json:"updated_at,omitempty"`
}

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Discount struct {
	ID              int64   `db:"id" json:"id"`
	Name            string  `db:"name" json:"name"`
	Code            string  `db:"code" json:"code"`
	Kind            string  `db:"kind" json:"kind"` // percentage | fixed
	Value           float64 `db:"value" json:"value"`
	MinOrderAmount  float64 `db:"min_order_amount" json:"min_order_amount"`
	MaxUsage        *int64  `db:"max_usage" json:"max_usage,omitempty"`
	MaxUsagePerUser *int64  `db:"max_usage_per_user" json:"max_usage_per_user,omitempty"`
	IsActive        bool    `db:"is_active" json:"is_active"`
	ExpiresAt       *string `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt       string  `db:"created_at" json:"created_at"`
	UpdatedAt       string  `db:"updated_at" json:"updated_at,omitempty"`
}

type Favorite struct {
	UserID    int64  `db:"user_id" json:"user_id"`
	QuoteID   int64  `db:"quote_id" json:"quote_id"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

type Attachment struct {
	ID        int64  `db:"id" json:"id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	QuoteID   *int64 `db:"quote_id" json:"quote_id,omitempty"`
	FileName  string `db:"file_name" json:"file_name"`
	Path      string `db:"path" json:"path"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
}
