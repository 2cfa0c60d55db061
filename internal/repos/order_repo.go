package repos

import (
	"errors"
	"strings"

	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

// ErrQuoteNotConvertible is the transactional guard result: the quote
// lost a race and is no longer calculated-and-unordered.
var ErrQuoteNotConvertible = errors.New("quote is not in a convertible state")

type OrderRepo struct {
	db  *sqlx.DB
	inv *InventoryRepo
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db, inv: NewInventoryRepo(db)}
}

const orderCols = `
  id, reference, quote_id, user_id, payment_reference, final_price, material_id, shape_id,
  entry_id, quantity, reserved_qty, dimension_label, client_details, details_snapshot,
  shipping_address, status, completed_at, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *OrderRepo) Get(id int64) (domain.Order, error) {
	var o domain.Order
	err := r.db.Get(&o, `SELECT`+orderCols+` FROM orders WHERE id=?`, id)
	return o, err
}

func (r *OrderRepo) ListAll() ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `SELECT`+orderCols+` FROM orders ORDER BY datetime(created_at) DESC, id DESC`)
	return out, err
}

func (r *OrderRepo) ListByUser(userID int64) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
	  SELECT`+orderCols+` FROM orders WHERE user_id=? ORDER BY datetime(created_at) DESC, id DESC
	`, userID)
	return out, err
}

// Convert creates the order and flips its quote to ordered in one
// transaction. The guarded quote UPDATE is the race-safety mechanism:
// a second conversion finds zero matching rows and rolls back.
func (r *OrderRepo) Convert(o domain.Order) (domain.Order, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Reserve stock for the material. Untracked materials and exhausted
	// stock do not block the order; this is bookkeeping, not allocation.
	// The order records what was actually taken so cancellation knows
	// how much to give back.
	reserved, err := r.inv.Reserve(tx, o.MaterialID, o.Quantity)
	if err != nil {
		return domain.Order{}, err
	}

	res, err := tx.Exec(`
	  INSERT INTO orders(reference, quote_id, user_id, final_price, material_id, shape_id, entry_id,
	                     quantity, reserved_qty, dimension_label, client_details, details_snapshot,
	                     shipping_address, status)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, o.Reference, o.QuoteID, o.UserID, o.FinalPrice, o.MaterialID, o.ShapeID, o.EntryID,
		o.Quantity, reserved, o.DimensionLabel, o.ClientDetails, o.Snapshot, o.ShippingAddress,
		domain.OrderPendingPayment)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.Order{}, ErrQuoteNotConvertible
		}
		return domain.Order{}, err
	}
	orderID, _ := res.LastInsertId()

	upd, err := tx.Exec(`
	  UPDATE quotes SET order_id=?, status=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND order_id IS NULL AND status=?
	`, orderID, domain.QuoteOrdered, o.QuoteID, domain.QuoteCalculated)
	if err != nil {
		return domain.Order{}, err
	}
	if n, _ := upd.RowsAffected(); n != 1 {
		return domain.Order{}, ErrQuoteNotConvertible
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, err
	}
	return r.Get(orderID)
}

// Cancel deletes the order and restores its quote to a convertible
// state (order_id cleared, status calculated), releasing exactly the
// stock the conversion reserved, all in one transaction.
func (r *OrderRepo) Cancel(o domain.Order) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  UPDATE quotes SET order_id=NULL, status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?
	`, domain.QuoteCalculated, o.QuoteID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM orders WHERE id=?`, o.ID); err != nil {
		return err
	}
	if err := r.inv.Release(tx, o.MaterialID, o.ReservedQty); err != nil {
		return err
	}
	return tx.Commit()
}

// Update applies status/payment/address changes. completed_at is set
// exactly when the status enters completed and cleared when it leaves.
func (r *OrderRepo) Update(id int64, status, paymentRef, shipping *string) error {
	set := []string{"updated_at=CURRENT_TIMESTAMP"}
	args := []any{}
	if status != nil {
		set = append(set, "status=?")
		args = append(args, *status)
		if *status == domain.OrderCompleted {
			set = append(set, "completed_at=COALESCE(completed_at, CURRENT_TIMESTAMP)")
		} else {
			set = append(set, "completed_at=NULL")
		}
	}
	if paymentRef != nil {
		set = append(set, "payment_reference=?")
		args = append(args, *paymentRef)
	}
	if shipping != nil {
		set = append(set, "shipping_address=?")
		args = append(args, *shipping)
	}
	args = append(args, id)
	_, err := r.db.Exec(`UPDATE orders SET `+strings.Join(set, ", ")+` WHERE id=?`, args...)
	return err
}
