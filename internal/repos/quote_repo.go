package repos

import (
	"fmt"
	"strings"
	"time"

	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

type QuoteRepo struct{ db *sqlx.DB }

func NewQuoteRepo(db *sqlx.DB) *QuoteRepo { return &QuoteRepo{db: db} }

const quoteCols = `
  id, reference, user_id, order_id, client_details, material_id, shape_id, entry_id,
  discount_id, quantity, dimension_label, price_source, unit_price, base_price,
  discount_amount, final_price, status, details_snapshot,
  created_at, COALESCE(updated_at,'') AS updated_at`

// referenceAttempts bounds the retry loop on reference collisions
// under concurrent creation.
const referenceAttempts = 5

// insertQuoteTx inserts one quote within the caller's transaction,
// generating a unique DEV-{year}-{seq} reference. A unique-constraint
// collision advances the sequence and retries instead of failing the
// request.
func insertQuoteTx(tx *sqlx.Tx, q domain.Quote) (domain.Quote, error) {
	var lastID int64
	if err := tx.Get(&lastID, `SELECT COALESCE(MAX(id),0) FROM quotes`); err != nil {
		return domain.Quote{}, err
	}

	year := time.Now().Year()
	seq := lastID + 1
	var insertErr error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		q.Reference = fmt.Sprintf("DEV-%d-%05d", year, seq)
		res, err := tx.Exec(`
		  INSERT INTO quotes(reference, user_id, client_details, material_id, shape_id, entry_id,
		                     discount_id, quantity, dimension_label, price_source, unit_price,
		                     base_price, discount_amount, final_price, status, details_snapshot)
		  VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		`, q.Reference, q.UserID, q.ClientDetails, q.MaterialID, q.ShapeID, q.EntryID,
			q.DiscountID, q.Quantity, q.DimensionLabel, q.PriceSource, q.UnitPrice,
			q.BasePrice, q.DiscountAmount, q.FinalPrice, q.Status, q.Snapshot)
		if err == nil {
			q.ID, _ = res.LastInsertId()
			var out domain.Quote
			if err := tx.Get(&out, `SELECT`+quoteCols+` FROM quotes WHERE id=?`, q.ID); err != nil {
				return domain.Quote{}, err
			}
			return out, nil
		}
		insertErr = err
		if !strings.Contains(err.Error(), "UNIQUE") {
			return domain.Quote{}, err
		}
		seq++
	}
	return domain.Quote{}, fmt.Errorf("quote reference exhausted after %d attempts: %w", referenceAttempts, insertErr)
}

func (r *QuoteRepo) Create(q domain.Quote) (domain.Quote, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Quote{}, err
	}
	defer func() { _ = tx.Rollback() }()

	out, err := insertQuoteTx(tx, q)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Quote{}, err
	}
	return out, nil
}

// CreateFromCart persists one quote per cart line and consumes the
// cart, all in one transaction. A failed insert leaves no partial
// quotes behind and keeps the cart pending so the conversion can be
// retried without duplicating drafts.
func (r *QuoteRepo) CreateFromCart(cartID int64, quotes []domain.Quote) ([]domain.Quote, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		created, err := insertQuoteTx(tx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if _, err := tx.Exec(`
	  UPDATE carts SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?
	`, domain.CartOrdered, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *QuoteRepo) Get(id int64) (domain.Quote, error) {
	var q domain.Quote
	err := r.db.Get(&q, `SELECT`+quoteCols+` FROM quotes WHERE id=?`, id)
	return q, err
}

func (r *QuoteRepo) ListAll() ([]domain.Quote, error) {
	var out []domain.Quote
	err := r.db.Select(&out, `SELECT`+quoteCols+` FROM quotes ORDER BY datetime(created_at) DESC, id DESC`)
	return out, err
}

func (r *QuoteRepo) ListByUser(userID int64) ([]domain.Quote, error) {
	var out []domain.Quote
	err := r.db.Select(&out, `
	  SELECT`+quoteCols+` FROM quotes WHERE user_id=? ORDER BY datetime(created_at) DESC, id DESC
	`, userID)
	return out, err
}

// UpdatePricing overwrites configuration and all price fields. Used
// for the sanctioned draft-recompute path.
func (r *QuoteRepo) UpdatePricing(q domain.Quote) error {
	_, err := r.db.Exec(`
	  UPDATE quotes
	  SET material_id=?, shape_id=?, entry_id=?, discount_id=?, quantity=?, dimension_label=?,
	      price_source=?, unit_price=?, base_price=?, discount_amount=?, final_price=?,
	      status=?, details_snapshot=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, q.MaterialID, q.ShapeID, q.EntryID, q.DiscountID, q.Quantity, q.DimensionLabel,
		q.PriceSource, q.UnitPrice, q.BasePrice, q.DiscountAmount, q.FinalPrice,
		q.Status, q.Snapshot, q.ID)
	return err
}

// SetStatusAndPrice applies an elevated override: status and/or final
// price, no recomputation.
func (r *QuoteRepo) SetStatusAndPrice(id int64, status *string, finalPrice *float64) error {
	set := []string{"updated_at=CURRENT_TIMESTAMP"}
	args := []any{}
	if status != nil {
		set = append(set, "status=?")
		args = append(args, *status)
	}
	if finalPrice != nil {
		set = append(set, "final_price=?")
		args = append(args, *finalPrice)
	}
	args = append(args, id)
	_, err := r.db.Exec(`UPDATE quotes SET `+strings.Join(set, ", ")+` WHERE id=?`, args...)
	return err
}

func (r *QuoteRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM quotes WHERE id=?`, id)
	return err
}
