package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gravado/internal/domain"
	"gravado/internal/repos"
	"gravado/internal/validate"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users    *repos.UserRepo
	Carts    *CartService
	Activity *ActivityRecorder
}

// Login verifies credentials, binds the session, and adopts any cart
// the visitor built while anonymous.
func (s *AuthService) Login(sid, email, password, cartToken, ip string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	if cartToken != "" {
		if _, err := s.Carts.Resolve(Identity{User: u, Token: cartToken}); err != nil {
			return nil, err
		}
	}
	s.Activity.Record("login", &u.ID,
		&domain.Subject{Kind: domain.SubjectUser, ID: u.ID}, nil, ip)
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

// Register creates a client account. Role assignment is not exposed
// here; staff accounts are created through the admin surface.
func (s *AuthService) Register(sid, email, name, password, phone, cartToken, ip string) (*domain.User, error) {
	fields := map[string]string{}
	email = strings.ToLower(email)
	if e, ok := validate.Email(email); ok {
		email = e
	} else {
		fields["email"] = "must be a valid email address"
	}
	if n, ok := validate.Name(name); ok {
		name = n
	} else {
		fields["name"] = "is required"
	}
	if !validate.Password(password) {
		fields["password"] = "must be 8-64 characters with an upper, a lower, and a digit"
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	if _, err := s.Users.ByEmail(email); err == nil {
		return nil, domain.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if _, err := s.Users.Create(email, name, string(hash), domain.RoleClient, phone); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("email already registered")
		}
		return nil, domain.Internal(err)
	}
	return s.Login(sid, email, password, cartToken, ip)
}
