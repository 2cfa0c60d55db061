package services_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"gravado/internal/domain"
	"gravado/internal/repos"
	"gravado/internal/services"
)

func newQuoteService(db *sqlx.DB) *services.QuoteService {
	return services.NewQuoteService(
		repos.NewQuoteRepo(db),
		newPricing(db),
		repos.NewAttachmentRepo(db),
		services.NewActivityRecorder(repos.NewActivityRepo(db)),
	)
}

func createQuote(t *testing.T, svc *services.QuoteService, actor *domain.User, status string) domain.Quote {
	t.Helper()
	q, err := svc.Create(actor, services.CreateQuoteRequest{
		MaterialID:    1,
		ShapeID:       1,
		EntryID:       1,
		Quantity:      2,
		EngravingText: "Etage 3",
		Client:        domain.ClientDetails{Name: actor.Name, Email: actor.Email},
		Status:        status,
	}, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestQuoteCreate_DefaultsToSentWithUniqueReferences(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		q := createQuote(t, svc, claire, "")
		if q.Status != domain.QuoteSent {
			t.Fatalf("want default status sent, got %s", q.Status)
		}
		if seen[q.Reference] {
			t.Fatalf("duplicate reference %s", q.Reference)
		}
		seen[q.Reference] = true
	}
}

func TestQuoteCreate_RequiresClientDetails(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")

	_, err := svc.Create(claire, services.CreateQuoteRequest{
		MaterialID: 1, ShapeID: 1, EntryID: 1, Quantity: 1,
	}, "")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if _, okName := ve.Fields["client_details.name"]; !okName {
		t.Fatalf("missing field detail: %+v", ve.Fields)
	}
}

func TestQuoteList_RoleScoped(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")
	karim := testUser(t, db, "karim@gravado.test")
	controller := testUser(t, db, "controle@gravado.test")

	createQuote(t, svc, claire, "")
	createQuote(t, svc, karim, "")

	mine, err := svc.List(claire)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].UserID != claire.ID {
		t.Fatalf("client must only see own quotes: %+v", mine)
	}

	all, err := svc.List(controller)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("controller must see every quote, got %d", len(all))
	}

	// And a direct read across owners is denied.
	other, err := svc.List(karim)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(claire, other[0].ID); err == nil {
		t.Fatal("cross-owner read must fail")
	}
}

func TestQuoteUpdate_ClientDraftEditRecomputes(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")

	q := createQuote(t, svc, claire, domain.QuoteDraft)
	if q.Quantity != 2 {
		t.Fatalf("setup: %+v", q)
	}

	qty := 5
	updated, err := svc.Update(claire, q.ID, services.UpdateQuoteRequest{Quantity: &qty}, "")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Quantity != 5 {
		t.Fatalf("want quantity 5, got %d", updated.Quantity)
	}
	// unit 10000 + 7 chars * 5 = 10035; base recomputed for 5 units.
	if updated.BasePrice != 50175 || updated.FinalPrice != 50175 {
		t.Fatalf("want recomputed base 50175, got base=%v final=%v", updated.BasePrice, updated.FinalPrice)
	}

	// The snapshot follows the recomputation.
	snap, err := updated.DecodeSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.BasePrice != 50175 {
		t.Fatalf("snapshot not refreshed: %+v", snap)
	}
}

func TestQuoteUpdate_ClientCannotEditSentQuote(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")

	q := createQuote(t, svc, claire, domain.QuoteSent)
	qty := 9
	_, err := svc.Update(claire, q.ID, services.UpdateQuoteRequest{Quantity: &qty}, "")
	var it *domain.IllegalTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("want IllegalTransitionError, got %v", err)
	}
}

func TestQuoteUpdate_ClientSubmitsDraft(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")

	q := createQuote(t, svc, claire, domain.QuoteDraft)
	sent := domain.QuoteSent
	updated, err := svc.Update(claire, q.ID, services.UpdateQuoteRequest{Status: &sent}, "")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.QuoteSent {
		t.Fatalf("want sent, got %s", updated.Status)
	}
}

func TestQuoteUpdate_ClientCannotOverridePriceOrStatus(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")

	q := createQuote(t, svc, claire, domain.QuoteDraft)

	price := 1.0
	if _, err := svc.Update(claire, q.ID, services.UpdateQuoteRequest{FinalPrice: &price}, ""); err == nil {
		t.Fatal("client final price override must fail")
	}
	calculated := domain.QuoteCalculated
	if _, err := svc.Update(claire, q.ID, services.UpdateQuoteRequest{Status: &calculated}, ""); err == nil {
		t.Fatal("client status escalation must fail")
	}
}

func TestQuoteUpdate_ElevatedOverrideSkipsRecompute(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")
	controller := testUser(t, db, "controle@gravado.test")

	q := createQuote(t, svc, claire, domain.QuoteSent)

	calculated := domain.QuoteCalculated
	price := 19999.0
	updated, err := svc.Update(controller, q.ID, services.UpdateQuoteRequest{
		Status:     &calculated,
		FinalPrice: &price,
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.QuoteCalculated || updated.FinalPrice != 19999 {
		t.Fatalf("override not applied: %+v", updated)
	}
	// The computed breakdown stays untouched.
	if updated.UnitPrice != q.UnitPrice || updated.BasePrice != q.BasePrice {
		t.Fatalf("override must not recompute: %+v", updated)
	}
}

func TestQuoteUpdate_ElevatedFollowsStatusTransitions(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")
	controller := testUser(t, db, "controle@gravado.test")

	q := createQuote(t, svc, claire, domain.QuoteSent)

	rejected := domain.QuoteRejected
	if _, err := svc.Update(controller, q.ID, services.UpdateQuoteRequest{Status: &rejected}, ""); err != nil {
		t.Fatal(err)
	}
	// Re-stating the current status is a no-op, not a transition.
	if _, err := svc.Update(controller, q.ID, services.UpdateQuoteRequest{Status: &rejected}, ""); err != nil {
		t.Fatal(err)
	}

	// A rejected quote cannot be pushed back into review.
	calculated := domain.QuoteCalculated
	_, err := svc.Update(controller, q.ID, services.UpdateQuoteRequest{Status: &calculated}, "")
	var it *domain.IllegalTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("want IllegalTransitionError, got %v", err)
	}
}

func TestQuoteDelete_Gates(t *testing.T) {
	db := testDB(t)
	svc := newQuoteService(db)
	claire := testUser(t, db, "claire@gravado.test")
	admin := testUser(t, db, "admin@gravado.test")

	draft := createQuote(t, svc, claire, domain.QuoteDraft)
	if err := svc.Delete(claire, draft.ID, ""); err != nil {
		t.Fatal(err)
	}

	sent := createQuote(t, svc, claire, domain.QuoteSent)
	err := svc.Delete(claire, sent.ID, "")
	var it *domain.IllegalTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("client may only delete drafts, got %v", err)
	}

	// Elevated actors bypass the draft gate.
	if err := svc.Delete(admin, sent.ID, ""); err != nil {
		t.Fatal(err)
	}
}
