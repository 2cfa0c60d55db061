package repos

import (
	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

// CatalogRepo serves the read-only reference data (categories,
// materials, shapes) and the fixed price catalog.
type CatalogRepo struct{ db *sqlx.DB }

func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) Categories() ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
	  SELECT id, name, description, is_active, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM categories WHERE is_active=1 ORDER BY name
	`)
	return out, err
}

func (r *CatalogRepo) Materials() ([]domain.Material, error) {
	var out []domain.Material
	err := r.db.Select(&out, `
	  SELECT id, category_id, name, slug, description, color, is_active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM materials WHERE is_active=1 ORDER BY name
	`)
	return out, err
}

func (r *CatalogRepo) Material(id int64) (domain.Material, error) {
	var m domain.Material
	err := r.db.Get(&m, `
	  SELECT id, category_id, name, slug, description, color, is_active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM materials WHERE id=?
	`, id)
	return m, err
}

func (r *CatalogRepo) Shapes() ([]domain.Shape, error) {
	var out []domain.Shape
	err := r.db.Select(&out, `
	  SELECT id, name, description, is_active, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM shapes WHERE is_active=1 ORDER BY name
	`)
	return out, err
}

const entryCols = `
  id, material_id, shape_id, category_id, dimension_label, unit_price, is_active,
  created_at, COALESCE(updated_at,'') AS updated_at`

// EntryByID looks up a price entry regardless of active flag; callers
// that price new work filter on IsActive themselves.
func (r *CatalogRepo) EntryByID(id int64) (domain.PriceEntry, error) {
	var e domain.PriceEntry
	err := r.db.Get(&e, `SELECT`+entryCols+` FROM price_entries WHERE id=?`, id)
	return e, err
}

// EntryByTriple resolves the (material, shape, dimension label) key.
func (r *CatalogRepo) EntryByTriple(materialID, shapeID int64, label string) (domain.PriceEntry, error) {
	var e domain.PriceEntry
	err := r.db.Get(&e, `
	  SELECT`+entryCols+` FROM price_entries
	  WHERE material_id=? AND shape_id=? AND dimension_label=?
	`, materialID, shapeID, label)
	return e, err
}

func (r *CatalogRepo) Entries(materialID, shapeID, categoryID int64) ([]domain.PriceEntry, error) {
	where := `is_active = 1`
	args := []any{}
	if materialID > 0 {
		where += ` AND material_id = ?`
		args = append(args, materialID)
	}
	if shapeID > 0 {
		where += ` AND shape_id = ?`
		args = append(args, shapeID)
	}
	if categoryID > 0 {
		where += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	var out []domain.PriceEntry
	err := r.db.Select(&out, `
	  SELECT`+entryCols+` FROM price_entries WHERE `+where+` ORDER BY unit_price`, args...)
	return out, err
}

func (r *CatalogRepo) CreateEntry(e domain.PriceEntry) (int64, error) {
	res, err := r.db.Exec(`
	  INSERT INTO price_entries(material_id, shape_id, category_id, dimension_label, unit_price, is_active)
	  VALUES(?,?,?,?,?,?)
	`, e.MaterialID, e.ShapeID, e.CategoryID, e.DimensionLabel, e.UnitPrice, e.IsActive)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *CatalogRepo) UpdateEntry(e domain.PriceEntry) error {
	_, err := r.db.Exec(`
	  UPDATE price_entries
	  SET material_id=?, shape_id=?, category_id=?, dimension_label=?, unit_price=?, is_active=?,
	      updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, e.MaterialID, e.ShapeID, e.CategoryID, e.DimensionLabel, e.UnitPrice, e.IsActive, e.ID)
	return err
}

// EntryReferenced reports whether any quote or cart line still points
// at the entry. Referenced entries must not be deleted; historical
// snapshots depend on them.
func (r *CatalogRepo) EntryReferenced(id int64) (bool, error) {
	var n int
	err := r.db.Get(&n, `
	  SELECT (SELECT COUNT(*) FROM quotes WHERE entry_id=?) +
	         (SELECT COUNT(*) FROM cart_items WHERE entry_id=?)
	`, id, id)
	return n > 0, err
}

func (r *CatalogRepo) DeleteEntry(id int64) error {
	_, err := r.db.Exec(`DELETE FROM price_entries WHERE id=?`, id)
	return err
}
