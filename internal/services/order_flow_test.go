package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"gravado/internal/domain"
	"gravado/internal/repos"
	"gravado/internal/services"
)

func newOrderService(db *sqlx.DB) *services.OrderService {
	return services.NewOrderService(
		repos.NewOrderRepo(db),
		repos.NewQuoteRepo(db),
		services.NewActivityRecorder(repos.NewActivityRepo(db)),
	)
}

var testShipping = domain.ShippingAddress{
	Street: "12 rue des Lilas", City: "Lyon", PostalCode: "69003",
}

// calculatedQuote walks a quote through the staff review so it is
// convertible.
func calculatedQuote(t *testing.T, db *sqlx.DB, owner *domain.User) domain.Quote {
	t.Helper()
	qsvc := newQuoteService(db)
	controller := testUser(t, db, "controle@gravado.test")

	q := createQuote(t, qsvc, owner, domain.QuoteSent)
	calculated := domain.QuoteCalculated
	q, err := qsvc.Update(controller, q.ID, services.UpdateQuoteRequest{Status: &calculated}, "")
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestOrderConvert_HappyPath(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	q := calculatedQuote(t, db, claire)

	o, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(o.Reference, "CMD-") {
		t.Fatalf("bad order reference %q", o.Reference)
	}
	if o.Status != domain.OrderPendingPayment {
		t.Fatalf("want pending_payment, got %s", o.Status)
	}
	if o.FinalPrice != q.FinalPrice || o.Quantity != q.Quantity {
		t.Fatalf("order must snapshot the quote: %+v vs %+v", o, q)
	}

	after, err := repos.NewQuoteRepo(db).Get(q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != domain.QuoteOrdered || after.OrderID == nil || *after.OrderID != o.ID {
		t.Fatalf("quote not flipped to ordered: %+v", after)
	}

	// Stock for material 1 dropped by the quantity.
	qty, err := repos.NewInventoryRepo(db).Qty(1)
	if err != nil {
		t.Fatal(err)
	}
	if qty != 40-q.Quantity {
		t.Fatalf("want reserved stock %d, got %d", 40-q.Quantity, qty)
	}
}

func TestOrderConvert_Gates(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	karim := testUser(t, db, "karim@gravado.test")

	// Missing address fields fail before anything else.
	q := calculatedQuote(t, db, claire)
	_, err := osvc.Convert(claire, q.ID, services.ConvertRequest{}, "")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}

	// A foreign quote is off limits even when convertible.
	_, err = osvc.Convert(karim, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	var ae *domain.AuthorizationError
	if !errors.As(err, &ae) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}

	// A quote still under review cannot convert.
	qsvc := newQuoteService(db)
	sent := createQuote(t, qsvc, claire, domain.QuoteSent)
	_, err = osvc.Convert(claire, sent.ID, services.ConvertRequest{Shipping: testShipping}, "")
	var it *domain.IllegalTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("want IllegalTransitionError, got %v", err)
	}
}

func TestOrderConvert_AtMostOnce(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	q := calculatedQuote(t, db, claire)

	if _, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, ""); err != nil {
		t.Fatal(err)
	}
	_, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	var ce *domain.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("second conversion must conflict, got %v", err)
	}
}

func TestOrderCancel_RestoresQuote(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	q := calculatedQuote(t, db, claire)

	o, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := osvc.Cancel(claire, o.ID, ""); err != nil {
		t.Fatal(err)
	}

	after, err := repos.NewQuoteRepo(db).Get(q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != domain.QuoteCalculated || after.OrderID != nil {
		t.Fatalf("cancel must restore the quote: %+v", after)
	}

	// Stock released.
	qty, err := repos.NewInventoryRepo(db).Qty(1)
	if err != nil {
		t.Fatal(err)
	}
	if qty != 40 {
		t.Fatalf("want stock restored to 40, got %d", qty)
	}

	// And the quote is convertible once more.
	if _, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, ""); err != nil {
		t.Fatal(err)
	}
}

func TestOrderCancel_ShortStockRoundTrip(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	inv := repos.NewInventoryRepo(db)
	claire := testUser(t, db, "claire@gravado.test")
	q := calculatedQuote(t, db, claire)

	// Not enough stock for the quantity: the conversion still goes
	// through but reserves nothing.
	if err := inv.UpsertQty(1, 1); err != nil {
		t.Fatal(err)
	}
	o, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	if err != nil {
		t.Fatal(err)
	}
	if o.ReservedQty != 0 {
		t.Fatalf("short stock must reserve nothing, got %d", o.ReservedQty)
	}
	if qty, _ := inv.Qty(1); qty != 1 {
		t.Fatalf("stock must be untouched after convert, got %d", qty)
	}

	// Cancellation gives back only what was taken.
	if err := osvc.Cancel(claire, o.ID, ""); err != nil {
		t.Fatal(err)
	}
	if qty, _ := inv.Qty(1); qty != 1 {
		t.Fatalf("cancel inflated stock: want 1, got %d", qty)
	}
}

func TestOrderCancel_BlockedInProductionForClients(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	controller := testUser(t, db, "controle@gravado.test")
	q := calculatedQuote(t, db, claire)

	o, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	if err != nil {
		t.Fatal(err)
	}

	shipped := domain.OrderShipped
	if _, err := osvc.Update(controller, o.ID, services.UpdateOrderRequest{Status: &shipped}, ""); err != nil {
		t.Fatal(err)
	}

	err = osvc.Cancel(claire, o.ID, "")
	var it *domain.IllegalTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("client cancel in production must fail, got %v", err)
	}

	// Staff can still unwind it.
	if err := osvc.Cancel(controller, o.ID, ""); err != nil {
		t.Fatal(err)
	}
}

func TestOrderUpdate_ClientEditsAndStatusGate(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	controller := testUser(t, db, "controle@gravado.test")
	q := calculatedQuote(t, db, claire)

	o, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	if err != nil {
		t.Fatal(err)
	}

	// Client fixes the address pre-production.
	newAddr := domain.ShippingAddress{Street: "5 avenue Foch", City: "Lyon", PostalCode: "69006"}
	pay := "PAY-123"
	o2, err := osvc.Update(claire, o.ID, services.UpdateOrderRequest{
		Shipping: &newAddr, PaymentReference: &pay,
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if o2.PaymentReference == nil || *o2.PaymentReference != "PAY-123" {
		t.Fatalf("payment reference not stored: %+v", o2)
	}
	if !strings.Contains(o2.ShippingAddress, "Foch") {
		t.Fatalf("address not updated: %s", o2.ShippingAddress)
	}

	// Clients never move status.
	paid := domain.OrderPaid
	if _, err := osvc.Update(claire, o.ID, services.UpdateOrderRequest{Status: &paid}, ""); err == nil {
		t.Fatal("client status change must fail")
	}

	// Once in production the client cannot edit anything.
	processing := domain.OrderProcessing
	if _, err := osvc.Update(controller, o.ID, services.UpdateOrderRequest{Status: &processing}, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := osvc.Update(claire, o.ID, services.UpdateOrderRequest{Shipping: &newAddr}, ""); err == nil {
		t.Fatal("client edit in production must fail")
	}
}

func TestOrderUpdate_CompletedAtLifecycle(t *testing.T) {
	db := testDB(t)
	osvc := newOrderService(db)
	claire := testUser(t, db, "claire@gravado.test")
	controller := testUser(t, db, "controle@gravado.test")
	q := calculatedQuote(t, db, claire)

	o, err := osvc.Convert(claire, q.ID, services.ConvertRequest{Shipping: testShipping}, "")
	if err != nil {
		t.Fatal(err)
	}

	completed := domain.OrderCompleted
	o2, err := osvc.Update(controller, o.ID, services.UpdateOrderRequest{Status: &completed}, "")
	if err != nil {
		t.Fatal(err)
	}
	if o2.CompletedAt == nil {
		t.Fatal("completed_at must be set on completion")
	}

	// Leaving completed clears the timestamp.
	shipped := domain.OrderShipped
	o3, err := osvc.Update(controller, o.ID, services.UpdateOrderRequest{Status: &shipped}, "")
	if err != nil {
		t.Fatal(err)
	}
	if o3.CompletedAt != nil {
		t.Fatalf("completed_at must clear when leaving completed: %+v", o3.CompletedAt)
	}
}
