package repos

import (
	"github.com/jmoiron/sqlx"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Row used by admin inventory pages
type InventoryRow struct {
	MaterialID int64  `db:"material_id" json:"material_id"`
	Material   string `db:"material" json:"material"`
	Qty        int    `db:"qty" json:"qty"`
}

func (r *InventoryRepo) ListAll() ([]InventoryRow, error) {
	var rows []InventoryRow
	err := r.db.Select(&rows, `
		SELECT i.material_id, m.name AS material, i.qty
		FROM inventory i
		JOIN materials m ON m.id = i.material_id
		ORDER BY m.name
	`)
	return rows, err
}

// Qty returns current stock for a material. If no row exists, sqlx.Get
// surfaces sql.ErrNoRows.
func (r *InventoryRepo) Qty(materialID int64) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT qty FROM inventory WHERE material_id = ?`, materialID)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// Reserve subtracts "by" units when enough stock exists and reports
// how many were actually taken. Untracked materials and short stock
// reserve zero; callers must release only what Reserve reported, or
// every skipped-then-released reservation inflates the count.
func (r *InventoryRepo) Reserve(e sqlx.Ext, materialID int64, by int) (int, error) {
	res, err := e.Exec(`
		UPDATE inventory
		SET qty = qty - ?, updated_at=CURRENT_TIMESTAMP
		WHERE material_id = ? AND qty >= ?
	`, by, materialID, by)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, nil
	}
	return by, nil
}

// Release gives back a prior reservation. A zero reservation is a
// no-op.
func (r *InventoryRepo) Release(e sqlx.Ext, materialID int64, by int) error {
	if by <= 0 {
		return nil
	}
	_, err := e.Exec(`
		UPDATE inventory SET qty = qty + ?, updated_at=CURRENT_TIMESTAMP WHERE material_id = ?
	`, by, materialID)
	return err
}

// UpsertQty sets qty for a material, creating the row if needed.
func (r *InventoryRepo) UpsertQty(materialID int64, qty int) error {
	_, err := r.db.Exec(`
		INSERT INTO inventory(material_id, qty, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(material_id) DO UPDATE SET qty = excluded.qty, updated_at=CURRENT_TIMESTAMP
	`, materialID, qty)
	return err
}
