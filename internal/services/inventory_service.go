package services

import (
	"database/sql"

	"gravado/internal/domain"
	"gravado/internal/repos"
)

type InventoryService struct {
	Inv *repos.InventoryRepo
}

func NewInventoryService(inv *repos.InventoryRepo) *InventoryService {
	return &InventoryService{Inv: inv}
}

// CheckAvailability maps raw stock to IN_STOCK / LOW_STOCK /
// OUT_OF_STOCK. Materials without an inventory row read as 0.
func (s *InventoryService) CheckAvailability(materialID int64) (domain.Availability, error) {
	qty, err := s.Inv.Qty(materialID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, domain.Internal(err)
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

func (s *InventoryService) List() ([]repos.InventoryRow, error) {
	out, err := s.Inv.ListAll()
	return out, domain.Internal(err)
}

func (s *InventoryService) SetQty(materialID int64, qty int) error {
	if qty < 0 {
		return domain.Invalid("qty", "must not be negative")
	}
	return domain.Internal(s.Inv.UpsertQty(materialID, qty))
}
