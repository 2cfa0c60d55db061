package services_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"gravado/internal/domain"
	"gravado/internal/repos"
	"gravado/internal/services"
)

func newCartService(db *sqlx.DB) *services.CartService {
	return services.NewCartService(
		repos.NewCartRepo(db),
		repos.NewQuoteRepo(db),
		newPricing(db),
		services.NewActivityRecorder(repos.NewActivityRepo(db)),
	)
}

func TestCartResolve_OnePendingCartPerIdentity(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)

	anon := services.Identity{Token: "sess-a"}
	c1, err := svc.Resolve(anon)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := svc.Resolve(anon)
	if err != nil {
		t.Fatal(err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("resolve must be idempotent: %d vs %d", c1.ID, c2.ID)
	}

	claire := testUser(t, db, "claire@gravado.test")
	u1, err := svc.Resolve(services.Identity{User: claire})
	if err != nil {
		t.Fatal(err)
	}
	u2, err := svc.Resolve(services.Identity{User: claire})
	if err != nil {
		t.Fatal(err)
	}
	if u1.ID != u2.ID || u1.ID == c1.ID {
		t.Fatalf("user cart wrong: %d %d %d", u1.ID, u2.ID, c1.ID)
	}
}

func TestCartAddItem_MergesIdenticalLines(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	id := services.Identity{Token: "sess-b"}

	view, err := svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 2, EngravingText: "Salle 12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("want 1 line, got %d", len(view.Items))
	}

	// Same entry, same engraving: quantities add up on the same line.
	view, err = svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 3, EngravingText: "Salle 12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 5 {
		t.Fatalf("want one line of 5, got %+v", view.Items)
	}

	// Different engraving: a new line.
	view, err = svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 1, EngravingText: "Salle 13"})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 2 {
		t.Fatalf("want 2 lines, got %d", len(view.Items))
	}
}

func TestCartMerge_MovesItemsAndDeletesAnonCart(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	token := "sess-merge"

	if _, err := svc.AddItem(services.Identity{Token: token}, services.AddItemRequest{EntryID: 1, Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(services.Identity{Token: token}, services.AddItemRequest{EntryID: 3, Quantity: 2}); err != nil {
		t.Fatal(err)
	}

	claire := testUser(t, db, "claire@gravado.test")
	view, err := svc.View(services.Identity{User: claire, Token: token})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 2 {
		t.Fatalf("want both lines after merge, got %d", len(view.Items))
	}
	if view.Cart.UserID == nil || *view.Cart.UserID != claire.ID {
		t.Fatalf("merged cart must belong to the user: %+v", view.Cart)
	}

	// The anonymous cart is gone; the same token now resolves fresh.
	if _, err := repos.NewCartRepo(db).AnonPendingByToken(token); err != sql.ErrNoRows {
		t.Fatalf("anonymous cart should be deleted, got %v", err)
	}
}

func TestCartConvert_RequiresUserAndItems(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)

	_, err := svc.ConvertToQuotes(services.Identity{Token: "sess-c"}, "")
	var ae *domain.AuthorizationError
	if !errors.As(err, &ae) {
		t.Fatalf("anonymous conversion must be rejected, got %v", err)
	}

	claire := testUser(t, db, "claire@gravado.test")
	_, err = svc.ConvertToQuotes(services.Identity{User: claire}, "")
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("want ErrEmptyCart, got %v", err)
	}
}

func TestCartConvert_OneQuotePerLine(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	claire := testUser(t, db, "claire@gravado.test")
	id := services.Identity{User: claire}

	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 2, EngravingText: "Cabinet A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 3, Quantity: 1}); err != nil {
		t.Fatal(err)
	}

	quotes, err := svc.ConvertToQuotes(id, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 {
		t.Fatalf("want one quote per line, got %d", len(quotes))
	}
	year := time.Now().Year()
	for _, q := range quotes {
		if q.Status != domain.QuoteDraft {
			t.Fatalf("converted quotes start as drafts, got %s", q.Status)
		}
		if q.UserID != claire.ID {
			t.Fatalf("quote owner mismatch: %+v", q)
		}
		if want := fmt.Sprintf("DEV-%d-", year); len(q.Reference) == 0 || q.Reference[:len(want)] != want {
			t.Fatalf("bad reference %q", q.Reference)
		}
		snap, err := q.DecodeSnapshot()
		if err != nil {
			t.Fatal(err)
		}
		if snap.Version != domain.SnapshotVersion || snap.UnitPrice != q.UnitPrice {
			t.Fatalf("snapshot mismatch: %+v vs %+v", snap, q)
		}
	}

	// The cart is consumed: the next resolve starts a fresh one.
	view, err := svc.View(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("cart must be empty after conversion, got %d items", len(view.Items))
	}
}

func TestCartConvert_FixedDiscountGrantedOnceAcrossLines(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	claire := testUser(t, db, "claire@gravado.test")
	id := services.Identity{User: claire}

	// Two lines of 30000 each. WELCOME5000 is a fixed 5000 off; the
	// code is worth 5000 against the whole cart, not 5000 per line.
	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 3, Quantity: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApplyDiscount(id, "WELCOME5000"); err != nil {
		t.Fatal(err)
	}

	quotes, err := svc.ConvertToQuotes(id, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 {
		t.Fatalf("want 2 quotes, got %d", len(quotes))
	}
	totalDiscount, totalFinal := 0.0, 0.0
	for _, q := range quotes {
		totalDiscount += q.DiscountAmount
		totalFinal += q.FinalPrice
	}
	if totalDiscount != 5000 {
		t.Fatalf("fixed discount must total 5000 across lines, got %v", totalDiscount)
	}
	if totalFinal != 55000 {
		t.Fatalf("want 55000 after discount, got %v", totalFinal)
	}
}

func TestCartConvert_DiscountMinimumAgainstCartTotal(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	karim := testUser(t, db, "karim@gravado.test")
	id := services.Identity{User: karim}

	// ETE10 requires a 50000 minimum. Each line alone is below it but
	// the cart total qualifies, so the 10% applies and is prorated.
	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 3, Quantity: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApplyDiscount(id, "ETE10"); err != nil {
		t.Fatal(err)
	}

	quotes, err := svc.ConvertToQuotes(id, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range quotes {
		if q.DiscountAmount != 3000 {
			t.Fatalf("want 3000 prorated per line, got %v on %s", q.DiscountAmount, q.Reference)
		}
	}
}

func TestCartConvert_RollsBackAsAUnit(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	claire := testUser(t, db, "claire@gravado.test")
	id := services.Identity{User: claire}

	view, err := svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 1})
	if err != nil {
		t.Fatal(err)
	}

	good := domain.Quote{
		UserID: claire.ID, ClientDetails: "{}", MaterialID: 1, ShapeID: 1,
		Quantity: 1, DimensionLabel: "20x30cm", PriceSource: domain.PriceSourceStandard,
		UnitPrice: 10000, BasePrice: 10000, FinalPrice: 10000,
		Status: domain.QuoteDraft, Snapshot: "{}",
	}
	bad := good
	bad.Status = "not-a-status"

	qrepo := repos.NewQuoteRepo(db)
	if _, err := qrepo.CreateFromCart(view.Cart.ID, []domain.Quote{good, bad}); err == nil {
		t.Fatal("a failing row must fail the whole conversion")
	}

	// Nothing committed: no quotes, cart still pending with its line.
	quotes, err := qrepo.ListByUser(claire.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 0 {
		t.Fatalf("partial quotes leaked: %+v", quotes)
	}
	after, err := svc.View(id)
	if err != nil {
		t.Fatal(err)
	}
	if after.Cart.Status != domain.CartPending || len(after.Items) != 1 {
		t.Fatalf("cart must stay pending for a retry: %+v", after.Cart)
	}
}

func TestCartConvert_UsesFixedLinePriceNotLiveCatalog(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)
	karim := testUser(t, db, "karim@gravado.test")
	id := services.Identity{User: karim}

	if _, err := svc.AddItem(id, services.AddItemRequest{EntryID: 1, Quantity: 1}); err != nil {
		t.Fatal(err)
	}

	// Raise the catalog price after the line was added.
	catalog := repos.NewCatalogRepo(db)
	entry, err := catalog.EntryByID(1)
	if err != nil {
		t.Fatal(err)
	}
	entry.UnitPrice = 99999
	if err := catalog.UpdateEntry(entry); err != nil {
		t.Fatal(err)
	}

	quotes, err := svc.ConvertToQuotes(id, "")
	if err != nil {
		t.Fatal(err)
	}
	if quotes[0].UnitPrice != 10000 {
		t.Fatalf("conversion must honor the fixed line price, got %v", quotes[0].UnitPrice)
	}
}

func TestCartItemOwnership(t *testing.T) {
	db := testDB(t)
	svc := newCartService(db)

	viewA, err := svc.AddItem(services.Identity{Token: "sess-x"}, services.AddItemRequest{EntryID: 1, Quantity: 1})
	if err != nil {
		t.Fatal(err)
	}

	// Another session cannot touch that line.
	_, err = svc.UpdateItemQuantity(services.Identity{Token: "sess-y"}, viewA.Items[0].ID, 5)
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("foreign item must read as not found, got %v", err)
	}

	view, err := svc.UpdateItemQuantity(services.Identity{Token: "sess-x"}, viewA.Items[0].ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if view.Items[0].Quantity != 5 {
		t.Fatalf("want quantity 5, got %d", view.Items[0].Quantity)
	}

	if err := svc.RemoveItem(services.Identity{Token: "sess-x"}, viewA.Items[0].ID); err != nil {
		t.Fatal(err)
	}
}
