package services

import (
	"database/sql"
	"encoding/json"
	"unicode/utf8"

	"gravado/internal/domain"
	"gravado/internal/repos"
)

// Identity is the cart owner key: the authenticated user when present,
// otherwise the anonymous session token alone. Never both as primary.
type Identity struct {
	User  *domain.User
	Token string
}

type CartService struct {
	Carts    *repos.CartRepo
	Quotes   *repos.QuoteRepo
	Pricing  *PricingService
	Activity *ActivityRecorder
}

func NewCartService(carts *repos.CartRepo, quotes *repos.QuoteRepo, pricing *PricingService, activity *ActivityRecorder) *CartService {
	return &CartService{Carts: carts, Quotes: quotes, Pricing: pricing, Activity: activity}
}

type CartView struct {
	Cart  domain.Cart       `json:"cart"`
	Items []domain.CartItem `json:"items"`
	Total float64           `json:"total"`
}

// Resolve returns the identity's single pending cart, folding any
// anonymous session cart into the user's cart on first authenticated
// access. The merge is idempotent: a second attempt finds no anonymous
// cart and is a no-op. Two authenticated users' carts are never
// merged; the anonymous lookup requires a cart with no user attached.
func (s *CartService) Resolve(id Identity) (domain.Cart, error) {
	if id.User == nil {
		c, err := s.Carts.EnsureForToken(id.Token)
		return c, domain.Internal(err)
	}

	userCart, err := s.Carts.EnsureForUser(id.User.ID)
	if err != nil {
		return domain.Cart{}, domain.Internal(err)
	}
	if id.Token == "" {
		return userCart, nil
	}
	anon, err := s.Carts.AnonPendingByToken(id.Token)
	if err == sql.ErrNoRows {
		return userCart, nil
	}
	if err != nil {
		return domain.Cart{}, domain.Internal(err)
	}
	if anon.ID == userCart.ID {
		return userCart, nil
	}
	if err := s.Carts.Merge(anon.ID, userCart.ID); err != nil {
		return domain.Cart{}, domain.Internal(err)
	}
	return userCart, nil
}

func (s *CartService) View(id Identity) (CartView, error) {
	cart, err := s.Resolve(id)
	if err != nil {
		return CartView{}, err
	}
	return s.view(cart)
}

func (s *CartService) view(cart domain.Cart) (CartView, error) {
	items, err := s.Carts.Items(cart.ID)
	if err != nil {
		return CartView{}, domain.Internal(err)
	}
	total := 0.0
	for _, it := range items {
		total += it.LineTotal()
	}
	return CartView{Cart: cart, Items: items, Total: round2(total)}, nil
}

type AddItemRequest struct {
	EntryID        int64
	Quantity       int
	EngravingText  string
	MountingOption string
	CustomOptions  json.RawMessage
}

// AddItem prices the line once (catalog price plus engraving) and then
// either increments an existing identical line or starts a new one.
func (s *CartService) AddItem(id Identity, req AddItemRequest) (CartView, error) {
	if req.Quantity < 1 {
		return CartView{}, domain.Invalid("quantity", "must be at least 1")
	}
	if req.EntryID < 1 {
		return CartView{}, domain.Invalid("entry_id", "is required")
	}

	cart, err := s.Resolve(id)
	if err != nil {
		return CartView{}, err
	}

	entry, err := s.Pricing.Catalog.EntryByID(req.EntryID)
	if err == sql.ErrNoRows {
		return CartView{}, domain.NotFound("price entry", req.EntryID)
	}
	if err != nil {
		return CartView{}, domain.Internal(err)
	}

	est, err := s.Pricing.Estimate(EstimateRequest{
		MaterialID:    entry.MaterialID,
		ShapeID:       entry.ShapeID,
		EntryID:       entry.ID,
		Quantity:      req.Quantity,
		EngravingText: req.EngravingText,
	})
	if err != nil {
		return CartView{}, err
	}

	line, err := s.Carts.FindLine(cart.ID, entry.ID, est.UnitPrice, req.EngravingText, req.MountingOption)
	switch {
	case err == nil:
		if err := s.Carts.AddQuantity(line.ID, req.Quantity); err != nil {
			return CartView{}, domain.Internal(err)
		}
	case err == sql.ErrNoRows:
		_, err := s.Carts.InsertLine(domain.CartItem{
			CartID:         cart.ID,
			EntryID:        entry.ID,
			Quantity:       req.Quantity,
			FixedUnitPrice: est.UnitPrice,
			EngravingText:  req.EngravingText,
			MountingOption: req.MountingOption,
			CustomOptions:  string(req.CustomOptions),
		})
		if err != nil {
			return CartView{}, domain.Internal(err)
		}
	default:
		return CartView{}, domain.Internal(err)
	}

	return s.view(cart)
}

// UpdateItemQuantity changes a line's quantity; the item must belong
// to the identity's resolved cart.
func (s *CartService) UpdateItemQuantity(id Identity, itemID int64, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, domain.Invalid("quantity", "must be at least 1")
	}
	cart, item, err := s.ownedItem(id, itemID)
	if err != nil {
		return CartView{}, err
	}
	if err := s.Carts.SetQuantity(item.ID, qty); err != nil {
		return CartView{}, domain.Internal(err)
	}
	return s.view(cart)
}

func (s *CartService) RemoveItem(id Identity, itemID int64) error {
	_, item, err := s.ownedItem(id, itemID)
	if err != nil {
		return err
	}
	return domain.Internal(s.Carts.DeleteLine(item.ID))
}

// ApplyDiscount attaches a code to the cart. Eligibility is not
// checked here; the pricing engine decides at conversion time whether
// the code actually contributes anything.
func (s *CartService) ApplyDiscount(id Identity, code string) (CartView, error) {
	cart, err := s.Resolve(id)
	if err != nil {
		return CartView{}, err
	}
	d, err := s.Pricing.Discounts.ByCode(code)
	if err == sql.ErrNoRows {
		return CartView{}, domain.NotFound("discount code", nil)
	}
	if err != nil {
		return CartView{}, domain.Internal(err)
	}
	if !d.IsActive {
		return CartView{}, domain.NotFound("discount code", nil)
	}
	if err := s.Carts.SetDiscount(cart.ID, &d.ID); err != nil {
		return CartView{}, domain.Internal(err)
	}
	cart.DiscountID = &d.ID
	return s.view(cart)
}

func (s *CartService) ClearDiscount(id Identity) (CartView, error) {
	cart, err := s.Resolve(id)
	if err != nil {
		return CartView{}, err
	}
	if err := s.Carts.SetDiscount(cart.ID, nil); err != nil {
		return CartView{}, domain.Internal(err)
	}
	cart.DiscountID = nil
	return s.view(cart)
}

func (s *CartService) ownedItem(id Identity, itemID int64) (domain.Cart, domain.CartItem, error) {
	cart, err := s.Resolve(id)
	if err != nil {
		return domain.Cart{}, domain.CartItem{}, err
	}
	item, err := s.Carts.Item(itemID)
	if err == sql.ErrNoRows {
		return domain.Cart{}, domain.CartItem{}, domain.NotFound("cart item", itemID)
	}
	if err != nil {
		return domain.Cart{}, domain.CartItem{}, domain.Internal(err)
	}
	if item.CartID != cart.ID {
		return domain.Cart{}, domain.CartItem{}, domain.NotFound("cart item", itemID)
	}
	return cart, item, nil
}

// ConvertToQuotes turns each cart line into its own draft quote (one
// configuration per reference) and consumes the cart. Requires an
// authenticated owner.
func (s *CartService) ConvertToQuotes(id Identity, ip string) ([]domain.Quote, error) {
	if id.User == nil {
		return nil, domain.Unauthorized("sign in to request a quote")
	}
	cart, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	items, err := s.Carts.Items(cart.ID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	client, err := json.Marshal(domain.ClientDetails{
		Name:  id.User.Name,
		Email: id.User.Email,
		Phone: id.User.Phone,
	})
	if err != nil {
		return nil, domain.Internal(err)
	}

	// The cart-level code is worth one evaluation against the cart
	// total; per-line evaluation would grant a fixed code once per line
	// and test min_order_amount against each line instead of the cart.
	// The amount is then prorated across lines by base price, rounding
	// remainder on the last line.
	lineBases := make([]float64, len(items))
	cartTotal := 0.0
	for i, it := range items {
		lineBases[i] = round2(it.FixedUnitPrice * float64(it.Quantity))
		cartTotal += lineBases[i]
	}
	cartTotal = round2(cartTotal)
	totalDiscount := s.Pricing.evaluateDiscount(cart.DiscountID, &id.User.ID, cartTotal)

	allocated := 0.0
	rows := make([]domain.Quote, 0, len(items))
	for i, it := range items {
		entry, err := s.Pricing.Catalog.EntryByID(it.EntryID)
		if err != nil {
			return nil, domain.Internal(err)
		}

		// The line's fixed unit price is authoritative: it was computed
		// at insertion time and must not drift with the live catalog.
		basePrice := lineBases[i]
		discountAmount := 0.0
		if totalDiscount > 0 {
			if i == len(items)-1 {
				discountAmount = round2(totalDiscount - allocated)
			} else {
				discountAmount = round2(totalDiscount * basePrice / cartTotal)
			}
			if discountAmount > basePrice {
				discountAmount = basePrice
			}
			allocated = round2(allocated + discountAmount)
		}
		finalPrice := round2(basePrice - discountAmount)
		engravingCost := round2(float64(utf8.RuneCountInString(it.EngravingText)) * s.Pricing.EngravingRate)

		entryID := entry.ID
		snap := domain.QuoteSnapshot{
			Version:        domain.SnapshotVersion,
			EntryID:        &entryID,
			MaterialID:     entry.MaterialID,
			ShapeID:        entry.ShapeID,
			DimensionLabel: entry.DimensionLabel,
			PriceSource:    domain.PriceSourceStandard,
			BaseUnitPrice:  round2(it.FixedUnitPrice - engravingCost),
			EngravingText:  it.EngravingText,
			EngravingCost:  engravingCost,
			UnitPrice:      it.FixedUnitPrice,
			Quantity:       it.Quantity,
			BasePrice:      basePrice,
			DiscountID:     cart.DiscountID,
			DiscountAmount: discountAmount,
			FinalPrice:     finalPrice,
		}
		if it.CustomOptions != "" {
			snap.Customization = json.RawMessage(it.CustomOptions)
		}
		snapJSON, err := json.Marshal(snap)
		if err != nil {
			return nil, domain.Internal(err)
		}

		rows = append(rows, domain.Quote{
			UserID:         id.User.ID,
			ClientDetails:  string(client),
			MaterialID:     entry.MaterialID,
			ShapeID:        entry.ShapeID,
			EntryID:        &entryID,
			DiscountID:     cart.DiscountID,
			Quantity:       it.Quantity,
			DimensionLabel: entry.DimensionLabel,
			PriceSource:    domain.PriceSourceStandard,
			UnitPrice:      it.FixedUnitPrice,
			BasePrice:      basePrice,
			DiscountAmount: discountAmount,
			FinalPrice:     finalPrice,
			Status:         domain.QuoteDraft,
			Snapshot:       string(snapJSON),
		})
	}

	quotes, err := s.Quotes.CreateFromCart(cart.ID, rows)
	if err != nil {
		return nil, domain.Internal(err)
	}
	for _, q := range quotes {
		s.Activity.Record("quote_drafted", &id.User.ID,
			&domain.Subject{Kind: domain.SubjectQuote, ID: q.ID},
			map[string]any{"ref": q.Reference, "from_cart": cart.ID}, ip)
	}
	return quotes, nil
}
