package handlers

import (
	"gravado/internal/config"
	"gravado/internal/repos"
	"gravado/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Auth       *services.AuthService
	AuthH      *AuthHandler
	CatalogH   *CatalogHandler
	CartH      *CartHandler
	QuoteH     *QuoteHandler
	OrderH     *OrderHandler
	FavoriteH  *FavoriteHandler
	AttachH    *AttachmentHandler
	AdminH     *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	catalogRepo := repos.NewCatalogRepo(db)
	discountRepo := repos.NewDiscountRepo(db)
	cartRepo := repos.NewCartRepo(db)
	quoteRepo := repos.NewQuoteRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	userRepo := repos.NewUserRepo(db)
	activityRepo := repos.NewActivityRepo(db)
	attachmentRepo := repos.NewAttachmentRepo(db)
	favoriteRepo := repos.NewFavoriteRepo(db)
	inventoryRepo := repos.NewInventoryRepo(db)

	activity := services.NewActivityRecorder(activityRepo)
	pricing := services.NewPricingService(catalogRepo, discountRepo, cfg.EngravingRate)
	cartSvc := services.NewCartService(cartRepo, quoteRepo, pricing, activity)
	quoteSvc := services.NewQuoteService(quoteRepo, pricing, attachmentRepo, activity)
	orderSvc := services.NewOrderService(orderRepo, quoteRepo, activity)
	catalogSvc := services.NewCatalogService(catalogRepo)
	discountSvc := services.NewDiscountService(discountRepo)
	invSvc := services.NewInventoryService(inventoryRepo)
	favSvc := services.NewFavoriteService(favoriteRepo, quoteRepo)
	auth := &services.AuthService{Users: userRepo, Carts: cartSvc, Activity: activity}

	return &Deps{
		Auth:      auth,
		AuthH:     &AuthHandler{Auth: auth},
		CatalogH:  &CatalogHandler{Catalog: catalogSvc, Inv: invSvc, Pricing: pricing},
		CartH:     &CartHandler{Cart: cartSvc},
		QuoteH:    &QuoteHandler{Quotes: quoteSvc, Attachments: attachmentRepo},
		OrderH:    &OrderHandler{Orders: orderSvc},
		FavoriteH: &FavoriteHandler{Fav: favSvc},
		AttachH:   &AttachmentHandler{Attachments: attachmentRepo},
		AdminH: &AdminHandler{
			Catalog:    catalogSvc,
			Discounts:  discountSvc,
			Inv:        invSvc,
			Users:      userRepo,
			Activities: activityRepo,
		},
	}
}
