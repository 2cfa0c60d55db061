package domain

const (
	RoleClient     = "client"
	RoleController = "controller"
	RoleAdmin      = "admin"
)

type User struct {
	ID    int64  `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
	Hash  string `db:"password_hash" json:"-"`
	Role  string `db:"role" json:"role"`
	Phone string `db:"phone" json:"phone,omitempty"`
}

// Elevated reports whether the user's role bypasses per-owner and
// per-state restrictions on quotes and orders.
func (u *User) Elevated() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleController)
}
