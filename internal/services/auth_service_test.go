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

func newAuthService(db *sqlx.DB) *services.AuthService {
	return &services.AuthService{
		Users:    repos.NewUserRepo(db),
		Carts:    newCartService(db),
		Activity: services.NewActivityRecorder(repos.NewActivityRepo(db)),
	}
}

func TestAuthLoginLogout(t *testing.T) {
	db := testDB(t)
	auth := newAuthService(db)

	if _, err := auth.Login("sid-1", "claire@gravado.test", "wrong-password", "", ""); err != services.ErrBadCreds {
		t.Fatalf("want ErrBadCreds, got %v", err)
	}
	if _, err := auth.Login("sid-1", "nobody@gravado.test", "Passw0rd!", "", ""); err != services.ErrBadCreds {
		t.Fatalf("want ErrBadCreds for unknown email, got %v", err)
	}

	u, err := auth.Login("sid-1", "claire@gravado.test", "Passw0rd!", "", "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	cur, err := auth.CurrentUser("sid-1")
	if err != nil || cur.ID != u.ID {
		t.Fatalf("session not bound: %v %+v", err, cur)
	}

	if err := auth.Logout("sid-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := auth.CurrentUser("sid-1"); err == nil {
		t.Fatal("session must be unbound after logout")
	}
}

func TestAuthLogin_AdoptsAnonymousCart(t *testing.T) {
	db := testDB(t)
	auth := newAuthService(db)
	carts := newCartService(db)

	token := "sid-cart"
	if _, err := carts.AddItem(services.Identity{Token: token}, services.AddItemRequest{EntryID: 1, Quantity: 2}); err != nil {
		t.Fatal(err)
	}

	u, err := auth.Login(token, "karim@gravado.test", "Passw0rd!", token, "")
	if err != nil {
		t.Fatal(err)
	}

	view, err := carts.View(services.Identity{User: u})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 2 {
		t.Fatalf("anonymous cart not adopted: %+v", view.Items)
	}
}

func TestAuthRegister(t *testing.T) {
	db := testDB(t)
	auth := newAuthService(db)

	_, err := auth.Register("sid-r", "not-an-email", "New User", "weak", "", "", "")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}

	// A long-enough password still needs its character classes, and the
	// message says so.
	_, err = auth.Register("sid-r", "new@gravado.test", "New User", "longenough", "", "", "")
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if msg := ve.Fields["password"]; !strings.Contains(msg, "digit") {
		t.Fatalf("password message must state the policy, got %q", msg)
	}

	u, err := auth.Register("sid-r", "new@gravado.test", "New User", "Str0ngPass", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != domain.RoleClient {
		t.Fatalf("registered users are clients, got %s", u.Role)
	}
	if cur, err := auth.CurrentUser("sid-r"); err != nil || cur.ID != u.ID {
		t.Fatalf("register must log the user in: %v", err)
	}

	_, err = auth.Register("sid-r2", "new@gravado.test", "Other", "Str0ngPass", "", "", "")
	var ce *domain.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("duplicate email must conflict, got %v", err)
	}
}
