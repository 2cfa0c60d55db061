package services

import (
	"database/sql"
	"strings"
	"time"

	"gravado/internal/domain"
	"gravado/internal/repos"
	"gravado/internal/validate"
)

// DiscountService is the staff-facing side of discount codes; the
// client-facing evaluation lives in the pricing engine.
type DiscountService struct {
	Discounts *repos.DiscountRepo
}

func NewDiscountService(discounts *repos.DiscountRepo) *DiscountService {
	return &DiscountService{Discounts: discounts}
}

func (s *DiscountService) List() ([]domain.Discount, error) {
	out, err := s.Discounts.List()
	return out, domain.Internal(err)
}

func (s *DiscountService) Get(id int64) (domain.Discount, error) {
	d, err := s.Discounts.ByID(id)
	if err == sql.ErrNoRows {
		return domain.Discount{}, domain.NotFound("discount", id)
	}
	return d, domain.Internal(err)
}

// Lookup resolves a code for cart attachment. Unknown and inactive
// codes read the same to the caller.
func (s *DiscountService) Lookup(code string) (domain.Discount, error) {
	d, err := s.Discounts.ByCode(strings.ToUpper(strings.TrimSpace(code)))
	if err == sql.ErrNoRows {
		return domain.Discount{}, domain.NotFound("discount code", nil)
	}
	if err != nil {
		return domain.Discount{}, domain.Internal(err)
	}
	if !d.IsActive {
		return domain.Discount{}, domain.NotFound("discount code", nil)
	}
	return d, nil
}

type DiscountInput struct {
	Name            string
	Code            string
	Kind            string
	Value           float64
	MinOrderAmount  float64
	MaxUsage        *int64
	MaxUsagePerUser *int64
	IsActive        bool
	ExpiresAt       *string
}

func (in DiscountInput) validate() error {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "is required"
	}
	if _, ok := validate.Code(in.Code); !ok {
		fields["code"] = "must contain only letters, digits, - or _"
	}
	switch in.Kind {
	case domain.DiscountPercentage:
		if in.Value <= 0 || in.Value > 100 {
			fields["value"] = "must be between 0 and 100"
		}
	case domain.DiscountFixed:
		if in.Value <= 0 {
			fields["value"] = "must be positive"
		}
	default:
		fields["kind"] = "must be percentage or fixed"
	}
	if in.MinOrderAmount < 0 {
		fields["min_order_amount"] = "must not be negative"
	}
	if in.MaxUsage != nil && *in.MaxUsage < 1 {
		fields["max_usage"] = "must be at least 1"
	}
	if in.MaxUsagePerUser != nil && *in.MaxUsagePerUser < 1 {
		fields["max_usage_per_user"] = "must be at least 1"
	}
	if in.ExpiresAt != nil {
		if _, err := time.Parse("2006-01-02", *in.ExpiresAt); err != nil {
			if _, err := time.Parse(time.RFC3339, *in.ExpiresAt); err != nil {
				fields["expires_at"] = "must be a date (2006-01-02) or RFC3339 timestamp"
			}
		}
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func (in DiscountInput) toDomain() domain.Discount {
	return domain.Discount{
		Name:            in.Name,
		Code:            strings.ToUpper(strings.TrimSpace(in.Code)),
		Kind:            in.Kind,
		Value:           in.Value,
		MinOrderAmount:  in.MinOrderAmount,
		MaxUsage:        in.MaxUsage,
		MaxUsagePerUser: in.MaxUsagePerUser,
		IsActive:        in.IsActive,
		ExpiresAt:       in.ExpiresAt,
	}
}

func (s *DiscountService) Create(in DiscountInput) (domain.Discount, error) {
	if err := in.validate(); err != nil {
		return domain.Discount{}, err
	}
	id, err := s.Discounts.Create(in.toDomain())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Discount{}, domain.Conflict("discount code already exists")
		}
		return domain.Discount{}, domain.Internal(err)
	}
	return s.Get(id)
}

func (s *DiscountService) Update(id int64, in DiscountInput) (domain.Discount, error) {
	if err := in.validate(); err != nil {
		return domain.Discount{}, err
	}
	if _, err := s.Get(id); err != nil {
		return domain.Discount{}, err
	}
	d := in.toDomain()
	d.ID = id
	if err := s.Discounts.Update(d); err != nil {
		if isUniqueViolation(err) {
			return domain.Discount{}, domain.Conflict("discount code already exists")
		}
		return domain.Discount{}, domain.Internal(err)
	}
	return s.Get(id)
}

// Delete refuses to remove a discount any quote ever used; deactivate
// instead so historical snapshots keep their referent.
func (s *DiscountService) Delete(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	used, err := s.Discounts.Referenced(id)
	if err != nil {
		return domain.Internal(err)
	}
	if used {
		return domain.Conflict("discount has been used by quotes; deactivate it instead")
	}
	return domain.Internal(s.Discounts.Delete(id))
}
