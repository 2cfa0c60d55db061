package repos

import (
	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

type FavoriteRepo struct{ db *sqlx.DB }

func NewFavoriteRepo(db *sqlx.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

func (r *FavoriteRepo) Add(userID, quoteID int64) error {
	_, err := r.db.Exec(`
	  INSERT INTO favorites(user_id, quote_id) VALUES(?,?)
	  ON CONFLICT(user_id, quote_id) DO NOTHING
	`, userID, quoteID)
	return err
}

func (r *FavoriteRepo) Remove(userID, quoteID int64) error {
	_, err := r.db.Exec(`DELETE FROM favorites WHERE user_id=? AND quote_id=?`, userID, quoteID)
	return err
}

// List returns the user's bookmarked quotes, newest bookmark first.
func (r *FavoriteRepo) List(userID int64) ([]domain.Quote, error) {
	var out []domain.Quote
	err := r.db.Select(&out, `
	  SELECT q.id, q.reference, q.user_id, q.order_id, q.client_details, q.material_id, q.shape_id,
	         q.entry_id, q.discount_id, q.quantity, q.dimension_label, q.price_source, q.unit_price,
	         q.base_price, q.discount_amount, q.final_price, q.status, q.details_snapshot,
	         q.created_at, COALESCE(q.updated_at,'') AS updated_at
	  FROM favorites f
	  JOIN quotes q ON q.id = f.quote_id
	  WHERE f.user_id=?
	  ORDER BY datetime(f.created_at) DESC, q.id DESC
	`, userID)
	return out, err
}
