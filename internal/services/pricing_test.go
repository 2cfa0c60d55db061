package services_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"gravado/internal/domain"
	"gravado/internal/repos"
	"gravado/internal/services"
)

// testDB opens a fully seeded in-memory database: entry 1 is
// 20x30cm laiton/rectangle at 10000, ETE10 is 10% off above 50000,
// WELCOME5000 is 5000 off above 20000.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testUser(t *testing.T, db *sqlx.DB, email string) *domain.User {
	t.Helper()
	u, err := repos.NewUserRepo(db).ByEmail(email)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func newPricing(db *sqlx.DB) *services.PricingService {
	return services.NewPricingService(repos.NewCatalogRepo(db), repos.NewDiscountRepo(db), 5.0)
}

func TestEstimate_StandardEntryWithEngraving(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)

	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID:    1,
		ShapeID:       1,
		EntryID:       1,
		Quantity:      3,
		EngravingText: "Dr Smith", // 8 characters
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.EngravingCost != 40 {
		t.Fatalf("want engraving cost 40, got %v", res.EngravingCost)
	}
	if res.UnitPrice != 10040 {
		t.Fatalf("want unit price 10040, got %v", res.UnitPrice)
	}
	if res.BasePrice != 30120 || res.FinalPrice != 30120 {
		t.Fatalf("want base=final=30120, got base=%v final=%v", res.BasePrice, res.FinalPrice)
	}
	if res.PriceSource != domain.PriceSourceStandard {
		t.Fatalf("want standard source, got %s", res.PriceSource)
	}
	if res.Snapshot.Version != domain.SnapshotVersion || res.Snapshot.EntryID == nil {
		t.Fatalf("snapshot not filled: %+v", res.Snapshot)
	}
}

func TestEstimate_TripleLookup(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)

	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID:     2,
		ShapeID:        1,
		DimensionLabel: "20x30cm",
		Quantity:       1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.UnitPrice != 15000 {
		t.Fatalf("want inox 20x30cm at 15000, got %v", res.UnitPrice)
	}
}

func TestEstimate_ManualPriceIsCustom(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)

	manual := 1234.56
	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID:      1,
		ShapeID:         1,
		DimensionLabel:  "90x120cm",
		ManualUnitPrice: &manual,
		Quantity:        2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.PriceSource != domain.PriceSourceCustom {
		t.Fatalf("want custom source, got %s", res.PriceSource)
	}
	if res.EntryID != nil {
		t.Fatal("custom price must not reference an entry")
	}
	if res.BasePrice != 2469.12 {
		t.Fatalf("want 2469.12, got %v", res.BasePrice)
	}
}

func TestEstimate_NoPriceSource(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)

	_, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, Quantity: 1,
	})
	if !errors.Is(err, domain.ErrNoPriceSource) {
		t.Fatalf("want ErrNoPriceSource, got %v", err)
	}

	// Manual price and entry id together are just as unresolvable.
	manual := 100.0
	_, err = svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, ManualUnitPrice: &manual, Quantity: 1,
	})
	if !errors.Is(err, domain.ErrNoPriceSource) {
		t.Fatalf("want ErrNoPriceSource for competing sources, got %v", err)
	}
}

func TestEstimate_EntryMismatch(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)

	// Entry 1 belongs to material 1; claiming material 2 is an
	// inconsistent configuration, not a not-found.
	_, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 2, ShapeID: 1, EntryID: 1, Quantity: 1,
	})
	var ci *domain.ConfigurationInconsistencyError
	if !errors.As(err, &ci) {
		t.Fatalf("want ConfigurationInconsistencyError, got %v", err)
	}
}

func TestEstimate_BadQuantity(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)

	_, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 0,
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestEstimate_PercentageDiscountRespectsMinimum(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)
	ete10 := int64(1)

	// Base 10000 is below ETE10's 50000 floor: silent zero.
	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 1, DiscountID: &ete10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount != 0 || res.FinalPrice != 10000 {
		t.Fatalf("want no discount below minimum, got %+v", res)
	}

	// Base 60000 clears the floor: 10% off.
	res, err = svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 6, DiscountID: &ete10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount != 6000 || res.FinalPrice != 54000 {
		t.Fatalf("want 6000 off 60000, got amount=%v final=%v", res.DiscountAmount, res.FinalPrice)
	}
}

func TestEstimate_FixedDiscount(t *testing.T) {
	db := testDB(t)
	svc := newPricing(db)
	welcome := int64(2)

	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 3, DiscountID: &welcome,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount != 5000 || res.FinalPrice != 25000 {
		t.Fatalf("want 5000 off 30000, got amount=%v final=%v", res.DiscountAmount, res.FinalPrice)
	}
}

func TestEstimate_FixedDiscountCappedAtBase(t *testing.T) {
	db := testDB(t)
	discounts := repos.NewDiscountRepo(db)
	id, err := discounts.Create(domain.Discount{
		Name: "Cap test", Code: "CAPTEST", Kind: domain.DiscountFixed,
		Value: 5000, MinOrderAmount: 0, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	svc := newPricing(db)

	manual := 200.0
	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, DimensionLabel: "special",
		ManualUnitPrice: &manual, Quantity: 1, DiscountID: &id,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount != 200 || res.FinalPrice != 0 {
		t.Fatalf("discount must cap at base: %+v", res)
	}
}

func TestEstimate_InactiveAndExpiredDiscounts(t *testing.T) {
	db := testDB(t)
	discounts := repos.NewDiscountRepo(db)

	expired := "2020-01-01"
	idExpired, err := discounts.Create(domain.Discount{
		Name: "Old promo", Code: "OLD", Kind: domain.DiscountPercentage,
		Value: 50, IsActive: true, ExpiresAt: &expired,
	})
	if err != nil {
		t.Fatal(err)
	}
	idInactive, err := discounts.Create(domain.Discount{
		Name: "Disabled promo", Code: "OFF", Kind: domain.DiscountPercentage,
		Value: 50, IsActive: false,
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := newPricing(db)
	for _, id := range []int64{idExpired, idInactive} {
		id := id
		res, err := svc.Estimate(services.EstimateRequest{
			MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 1, DiscountID: &id,
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.DiscountAmount != 0 {
			t.Fatalf("ineligible discount %d must contribute 0, got %v", id, res.DiscountAmount)
		}
	}
}

func TestEstimate_UsageCapCountsNonDraftQuotes(t *testing.T) {
	db := testDB(t)
	discounts := repos.NewDiscountRepo(db)
	one := int64(1)
	id, err := discounts.Create(domain.Discount{
		Name: "Single use", Code: "ONCE", Kind: domain.DiscountFixed,
		Value: 1000, IsActive: true, MaxUsage: &one,
	})
	if err != nil {
		t.Fatal(err)
	}

	claire := testUser(t, db, "claire@gravado.test")
	quotes := repos.NewQuoteRepo(db)
	if _, err := quotes.Create(domain.Quote{
		UserID: claire.ID, ClientDetails: "{}", MaterialID: 1, ShapeID: 1,
		Quantity: 1, DimensionLabel: "20x30cm", PriceSource: domain.PriceSourceStandard,
		UnitPrice: 10000, BasePrice: 10000, DiscountID: &id, DiscountAmount: 1000,
		FinalPrice: 9000, Status: domain.QuoteSent, Snapshot: "{}",
	}); err != nil {
		t.Fatal(err)
	}

	svc := newPricing(db)
	res, err := svc.Estimate(services.EstimateRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 1, DiscountID: &id,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount != 0 {
		t.Fatalf("exhausted discount must contribute 0, got %v", res.DiscountAmount)
	}
}
