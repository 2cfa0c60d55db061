package services

import (
	"database/sql"

	"gravado/internal/authz"
	"gravado/internal/domain"
	"gravado/internal/repos"
)

// FavoriteService lets clients bookmark their own quotes.
type FavoriteService struct {
	Favorites *repos.FavoriteRepo
	Quotes    *repos.QuoteRepo
}

func NewFavoriteService(favorites *repos.FavoriteRepo, quotes *repos.QuoteRepo) *FavoriteService {
	return &FavoriteService{Favorites: favorites, Quotes: quotes}
}

func (s *FavoriteService) Add(actor *domain.User, quoteID int64) error {
	q, err := s.Quotes.Get(quoteID)
	if err == sql.ErrNoRows {
		return domain.NotFound("quote", quoteID)
	}
	if err != nil {
		return domain.Internal(err)
	}
	if !authz.OwnerOrDeny(authz.Decide(actor, authz.QuoteView), actor.ID, q.UserID) {
		return domain.Unauthorized("this quote belongs to another client")
	}
	return domain.Internal(s.Favorites.Add(actor.ID, quoteID))
}

func (s *FavoriteService) Remove(actor *domain.User, quoteID int64) error {
	return domain.Internal(s.Favorites.Remove(actor.ID, quoteID))
}

func (s *FavoriteService) List(actor *domain.User) ([]domain.Quote, error) {
	out, err := s.Favorites.List(actor.ID)
	return out, domain.Internal(err)
}
