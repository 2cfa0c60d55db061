package repos

import (
	"database/sql"

	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

const cartCols = `
  id, user_id, session_token, discount_id, status,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *CartRepo) Get(id int64) (domain.Cart, error) {
	var c domain.Cart
	err := r.db.Get(&c, `SELECT`+cartCols+` FROM carts WHERE id=?`, id)
	return c, err
}

// EnsureForUser finds or creates the user's single pending cart. A
// concurrent insert loses on the partial unique index and falls back
// to the select.
func (r *CartRepo) EnsureForUser(userID int64) (domain.Cart, error) {
	get := func() (domain.Cart, error) {
		var c domain.Cart
		err := r.db.Get(&c, `SELECT`+cartCols+` FROM carts WHERE user_id=? AND status='pending'`, userID)
		return c, err
	}
	c, err := get()
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return domain.Cart{}, err
	}
	if _, err := r.db.Exec(`INSERT INTO carts(user_id,status) VALUES(?, 'pending')`, userID); err != nil {
		// Lost the race; the unique index guarantees a row exists now.
		if c, gerr := get(); gerr == nil {
			return c, nil
		}
		return domain.Cart{}, err
	}
	return get()
}

// EnsureForToken finds or creates the pending cart keyed by an
// anonymous session token.
func (r *CartRepo) EnsureForToken(token string) (domain.Cart, error) {
	get := func() (domain.Cart, error) {
		var c domain.Cart
		err := r.db.Get(&c, `SELECT`+cartCols+` FROM carts WHERE session_token=? AND status='pending'`, token)
		return c, err
	}
	c, err := get()
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return domain.Cart{}, err
	}
	if _, err := r.db.Exec(`INSERT INTO carts(session_token,status) VALUES(?, 'pending')`, token); err != nil {
		if c, gerr := get(); gerr == nil {
			return c, nil
		}
		return domain.Cart{}, err
	}
	return get()
}

// AnonPendingByToken returns the pending cart owned by the session
// token alone (no user attached), or sql.ErrNoRows.
func (r *CartRepo) AnonPendingByToken(token string) (domain.Cart, error) {
	var c domain.Cart
	err := r.db.Get(&c, `
	  SELECT`+cartCols+` FROM carts
	  WHERE session_token=? AND user_id IS NULL AND status='pending'
	`, token)
	return c, err
}

// Merge moves every item of the anonymous cart onto the user's cart
// and deletes the emptied anonymous cart, in one transaction. Lines
// move wholesale; no line-level dedup happens here.
func (r *CartRepo) Merge(anonCartID, userCartID int64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE cart_items SET cart_id=?, updated_at=CURRENT_TIMESTAMP WHERE cart_id=?`, userCartID, anonCartID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM carts WHERE id=?`, anonCartID); err != nil {
		return err
	}
	return tx.Commit()
}

const itemCols = `
  id, cart_id, entry_id, quantity, fixed_unit_price, engraving_text, mounting_option,
  custom_options, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *CartRepo) Items(cartID int64) ([]domain.CartItem, error) {
	var out []domain.CartItem
	err := r.db.Select(&out, `SELECT`+itemCols+` FROM cart_items WHERE cart_id=? ORDER BY id`, cartID)
	return out, err
}

func (r *CartRepo) Item(id int64) (domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.Get(&it, `SELECT`+itemCols+` FROM cart_items WHERE id=?`, id)
	return it, err
}

// FindLine resolves the logical line identity: same entry, same fixed
// unit price, same engraving, same mounting option.
func (r *CartRepo) FindLine(cartID, entryID int64, unitPrice float64, engraving, mounting string) (domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.Get(&it, `
	  SELECT`+itemCols+` FROM cart_items
	  WHERE cart_id=? AND entry_id=? AND fixed_unit_price=? AND engraving_text=? AND mounting_option=?
	`, cartID, entryID, unitPrice, engraving, mounting)
	return it, err
}

func (r *CartRepo) InsertLine(it domain.CartItem) (int64, error) {
	res, err := r.db.Exec(`
	  INSERT INTO cart_items(cart_id, entry_id, quantity, fixed_unit_price, engraving_text, mounting_option, custom_options)
	  VALUES(?,?,?,?,?,?,?)
	`, it.CartID, it.EntryID, it.Quantity, it.FixedUnitPrice, it.EngravingText, it.MountingOption, it.CustomOptions)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *CartRepo) AddQuantity(itemID int64, by int) error {
	_, err := r.db.Exec(`
	  UPDATE cart_items SET quantity = quantity + ?, updated_at=CURRENT_TIMESTAMP WHERE id=?
	`, by, itemID)
	return err
}

func (r *CartRepo) SetQuantity(itemID int64, qty int) error {
	_, err := r.db.Exec(`
	  UPDATE cart_items SET quantity = ?, updated_at=CURRENT_TIMESTAMP WHERE id=?
	`, qty, itemID)
	return err
}

func (r *CartRepo) DeleteLine(itemID int64) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE id=?`, itemID)
	return err
}

func (r *CartRepo) SetDiscount(cartID int64, discountID *int64) error {
	_, err := r.db.Exec(`UPDATE carts SET discount_id=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, discountID, cartID)
	return err
}
