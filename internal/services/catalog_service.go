package services

import (
	"database/sql"
	"strings"

	"gravado/internal/domain"
	"gravado/internal/repos"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

// CatalogService fronts the reference data and the fixed price grid.
type CatalogService struct {
	Catalog *repos.CatalogRepo
}

func NewCatalogService(catalog *repos.CatalogRepo) *CatalogService {
	return &CatalogService{Catalog: catalog}
}

func (s *CatalogService) Categories() ([]domain.Category, error) {
	out, err := s.Catalog.Categories()
	return out, domain.Internal(err)
}

func (s *CatalogService) Materials() ([]domain.Material, error) {
	out, err := s.Catalog.Materials()
	return out, domain.Internal(err)
}

func (s *CatalogService) Shapes() ([]domain.Shape, error) {
	out, err := s.Catalog.Shapes()
	return out, domain.Internal(err)
}

func (s *CatalogService) Entries(materialID, shapeID, categoryID int64) ([]domain.PriceEntry, error) {
	out, err := s.Catalog.Entries(materialID, shapeID, categoryID)
	return out, domain.Internal(err)
}

func (s *CatalogService) Entry(id int64) (domain.PriceEntry, error) {
	e, err := s.Catalog.EntryByID(id)
	if err == sql.ErrNoRows {
		return domain.PriceEntry{}, domain.NotFound("price entry", id)
	}
	return e, domain.Internal(err)
}

type EntryInput struct {
	MaterialID     int64
	ShapeID        int64
	CategoryID     int64
	DimensionLabel string
	UnitPrice      float64
	IsActive       bool
}

func (in EntryInput) validate() error {
	fields := map[string]string{}
	if in.MaterialID <= 0 {
		fields["material_id"] = "is required"
	}
	if in.ShapeID <= 0 {
		fields["shape_id"] = "is required"
	}
	if in.DimensionLabel == "" {
		fields["dimension_label"] = "is required"
	}
	if in.UnitPrice < 0 {
		fields["unit_price"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// CreateEntry inserts a new grid entry. The UNIQUE(material, shape,
// dimension) index makes duplicates a conflict rather than a silent
// second row.
func (s *CatalogService) CreateEntry(in EntryInput) (domain.PriceEntry, error) {
	if err := in.validate(); err != nil {
		return domain.PriceEntry{}, err
	}
	id, err := s.Catalog.CreateEntry(domain.PriceEntry{
		MaterialID:     in.MaterialID,
		ShapeID:        in.ShapeID,
		CategoryID:     in.CategoryID,
		DimensionLabel: in.DimensionLabel,
		UnitPrice:      in.UnitPrice,
		IsActive:       in.IsActive,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.PriceEntry{}, domain.Conflict("a price entry for this material, shape and dimension already exists")
		}
		return domain.PriceEntry{}, domain.Internal(err)
	}
	return s.Entry(id)
}

func (s *CatalogService) UpdateEntry(id int64, in EntryInput) (domain.PriceEntry, error) {
	if err := in.validate(); err != nil {
		return domain.PriceEntry{}, err
	}
	e, err := s.Entry(id)
	if err != nil {
		return domain.PriceEntry{}, err
	}
	e.MaterialID = in.MaterialID
	e.ShapeID = in.ShapeID
	e.CategoryID = in.CategoryID
	e.DimensionLabel = in.DimensionLabel
	e.UnitPrice = in.UnitPrice
	e.IsActive = in.IsActive
	if err := s.Catalog.UpdateEntry(e); err != nil {
		if isUniqueViolation(err) {
			return domain.PriceEntry{}, domain.Conflict("a price entry for this material, shape and dimension already exists")
		}
		return domain.PriceEntry{}, domain.Internal(err)
	}
	return s.Entry(id)
}

// DeleteEntry refuses to remove an entry any quote or cart line still
// points at; deactivate instead.
func (s *CatalogService) DeleteEntry(id int64) error {
	if _, err := s.Entry(id); err != nil {
		return err
	}
	used, err := s.Catalog.EntryReferenced(id)
	if err != nil {
		return domain.Internal(err)
	}
	if used {
		return domain.Conflict("price entry is referenced by quotes or carts; deactivate it instead")
	}
	return domain.Internal(s.Catalog.DeleteEntry(id))
}
