package repos

import (
	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

type DiscountRepo struct{ db *sqlx.DB }

func NewDiscountRepo(db *sqlx.DB) *DiscountRepo { return &DiscountRepo{db: db} }

const discountCols = `
  id, name, code, kind, value, min_order_amount, max_usage, max_usage_per_user,
  is_active, expires_at, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *DiscountRepo) ByID(id int64) (domain.Discount, error) {
	var d domain.Discount
	err := r.db.Get(&d, `SELECT`+discountCols+` FROM discounts WHERE id=?`, id)
	return d, err
}

func (r *DiscountRepo) ByCode(code string) (domain.Discount, error) {
	var d domain.Discount
	err := r.db.Get(&d, `SELECT`+discountCols+` FROM discounts WHERE code=?`, code)
	return d, err
}

func (r *DiscountRepo) List() ([]domain.Discount, error) {
	var out []domain.Discount
	err := r.db.Select(&out, `SELECT`+discountCols+` FROM discounts ORDER BY created_at DESC, id DESC`)
	return out, err
}

func (r *DiscountRepo) Create(d domain.Discount) (int64, error) {
	res, err := r.db.Exec(`
	  INSERT INTO discounts(name, code, kind, value, min_order_amount, max_usage, max_usage_per_user, is_active, expires_at)
	  VALUES(?,?,?,?,?,?,?,?,?)
	`, d.Name, d.Code, d.Kind, d.Value, d.MinOrderAmount, d.MaxUsage, d.MaxUsagePerUser, d.IsActive, d.ExpiresAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *DiscountRepo) Update(d domain.Discount) error {
	_, err := r.db.Exec(`
	  UPDATE discounts
	  SET name=?, code=?, kind=?, value=?, min_order_amount=?, max_usage=?, max_usage_per_user=?,
	      is_active=?, expires_at=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, d.Name, d.Code, d.Kind, d.Value, d.MinOrderAmount, d.MaxUsage, d.MaxUsagePerUser, d.IsActive, d.ExpiresAt, d.ID)
	return err
}

// Referenced reports whether any quote used the discount; used codes
// cannot be deleted without orphaning historical price snapshots.
func (r *DiscountRepo) Referenced(id int64) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM quotes WHERE discount_id=?`, id)
	return n > 0, err
}

func (r *DiscountRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM discounts WHERE id=?`, id)
	return err
}

// UsageCount counts committed (non-draft) quotes holding the discount.
func (r *DiscountRepo) UsageCount(id int64) (int64, error) {
	var n int64
	err := r.db.Get(&n, `SELECT COUNT(*) FROM quotes WHERE discount_id=? AND status != 'draft'`, id)
	return n, err
}

func (r *DiscountRepo) UsageCountByUser(id, userID int64) (int64, error) {
	var n int64
	err := r.db.Get(&n, `SELECT COUNT(*) FROM quotes WHERE discount_id=? AND user_id=? AND status != 'draft'`, id, userID)
	return n, err
}
